// Package handlers implements the HTTP handlers of the web server.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/narvanalabs/redbutton/internal/api/errors"
	"github.com/narvanalabs/redbutton/internal/auth"
	"github.com/narvanalabs/redbutton/web/pages"
)

// Renderer writes HTML views and error pages.
type Renderer struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewRenderer creates a renderer.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger, now: time.Now}
}

// Page renders c with the given status.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		rd.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}

// Error classifies err and renders the matching error page.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.FromError(err).WithRequestID(middleware.GetReqID(r.Context()))
	status := apiErr.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		rd.logger.Error("request failed",
			"path", r.URL.Path,
			"error_code", apiErr.Code,
			"error", err,
			"request_id", apiErr.RequestID,
		)
	}
	rd.APIError(w, r, apiErr)
}

// APIError renders an already classified error.
func (rd *Renderer) APIError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	user, _ := auth.IdentityFromContext(r.Context())
	rd.Page(w, r, apiErr.HTTPStatusCode(), pages.Error(pages.ErrorData{
		User:      user,
		Status:    apiErr.HTTPStatusCode(),
		Message:   apiErr.Message,
		RequestID: apiErr.RequestID,
	}))
}

// NotFound renders the 404 page for unknown routes.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.APIError(w, r, apierrors.NewNotFoundError("There is nothing here"))
}

// MethodNotAllowed renders a 405 page.
func (rd *Renderer) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rd.Page(w, r, http.StatusMethodNotAllowed, pages.Error(pages.ErrorData{
		Status:  http.StatusMethodNotAllowed,
		Message: "This action is not available here",
	}))
}

// Unauthorized is the rejection callback of the authentication guard.
func (rd *Renderer) Unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	rd.Error(w, r, err)
}
