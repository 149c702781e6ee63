package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/narvanalabs/redbutton/internal/api/errors"
	"github.com/narvanalabs/redbutton/internal/auth"
	"github.com/narvanalabs/redbutton/internal/bitrise"
	"github.com/narvanalabs/redbutton/internal/builds"
	"github.com/narvanalabs/redbutton/internal/metrics"
	"github.com/narvanalabs/redbutton/internal/models"
	"github.com/narvanalabs/redbutton/web/pages"
)

// recentLimit is how many running builds the home page shows.
const recentLimit = 5

// BuildController is implemented by *builds.Controller.
type BuildController interface {
	ListRecent(ctx context.Context, f builds.Filter) ([]models.Build, error)
	Describe(ctx context.Context, slug string) (*models.Build, error)
	Last(ctx context.Context) (*models.Build, error)
	TriggerNew(ctx context.Context, branch, workflow string) (*builds.TriggerResult, error)
	Abort(ctx context.Context, slug, reason string) error
}

// BuildHandler serves the build pages and actions.
type BuildHandler struct {
	builds BuildController
	render *Renderer
	logger *slog.Logger
}

// NewBuildHandler creates a new build handler.
func NewBuildHandler(controller BuildController, render *Renderer, logger *slog.Logger) *BuildHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildHandler{
		builds: controller,
		render: render,
		logger: logger,
	}
}

// Index handles GET /. Anonymous visitors get the landing page without any
// provider call.
func (h *BuildHandler) Index(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.render.Page(w, r, http.StatusOK, pages.Landing())
		return
	}

	status := models.BuildStatusNotFinished
	list, err := h.builds.ListRecent(r.Context(), builds.Filter{
		Status: &status,
		SortBy: bitrise.SortByCreatedAt,
		Limit:  recentLimit,
	})
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Page(w, r, http.StatusOK, pages.Index(pages.IndexData{
		User:   user,
		Builds: list,
		Now:    h.render.now(),
	}))
}

// NewBuild handles POST /new-build.
func (h *BuildHandler) NewBuild(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.APIError(w, r, apierrors.NewValidationError("Invalid form data"))
		return
	}
	branch := strings.TrimSpace(r.PostFormValue("branch"))
	workflow := strings.TrimSpace(r.PostFormValue("workflow"))

	result, err := h.builds.TriggerNew(r.Context(), branch, workflow)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.logger.Info("new build requested",
		"slug", result.Slug,
		"sub", subjectOf(r),
		"aborted", result.Aborted,
		"abort_failures", len(result.Failed),
	)
	http.Redirect(w, r, buildURL(result.Slug), http.StatusFound)
}

// Last handles GET /last.
func (h *BuildHandler) Last(w http.ResponseWriter, r *http.Request) {
	b, err := h.builds.Last(r.Context())
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	http.Redirect(w, r, buildURL(b.Slug), http.StatusFound)
}

// Show handles GET /build/{slug}.
func (h *BuildHandler) Show(w http.ResponseWriter, r *http.Request) {
	b, err := h.builds.Describe(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	user, _ := auth.IdentityFromContext(r.Context())
	h.render.Page(w, r, http.StatusOK, pages.Build(pages.BuildData{
		User:  user,
		Build: b,
		Now:   h.render.now(),
	}))
}

// Abort handles POST /build/{slug}/abort. An unknown slug renders 404 without
// sending an abort. A rejected abort, e.g. for a build that already finished,
// is logged and the browser is still sent back to the detail page.
func (h *BuildHandler) Abort(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, err := h.builds.Describe(r.Context(), slug); err != nil {
		h.render.Error(w, r, err)
		return
	}

	if err := h.builds.Abort(r.Context(), slug, builds.ManualAbortReason); err != nil {
		metrics.RecordBestEffortFailure("manual_abort")
		h.logger.Warn("abort not accepted", "slug", slug, "error", err)
	} else {
		h.logger.Info("build aborted", "slug", slug, "sub", subjectOf(r))
	}

	http.Redirect(w, r, buildURL(slug), http.StatusFound)
}

func subjectOf(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return id.Subject
	}
	return ""
}

func buildURL(slug string) string {
	return "/build/" + url.PathEscape(slug)
}
