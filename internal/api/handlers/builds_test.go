package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/narvanalabs/redbutton/internal/bitrise"
	"github.com/narvanalabs/redbutton/internal/builds"
	"github.com/narvanalabs/redbutton/internal/models"
)

type stubController struct {
	known    map[string]bool
	abortErr error
	aborted  []string
}

func (s *stubController) ListRecent(context.Context, builds.Filter) ([]models.Build, error) {
	return nil, nil
}

func (s *stubController) Describe(_ context.Context, slug string) (*models.Build, error) {
	if !s.known[slug] {
		return nil, &bitrise.Error{StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	return &models.Build{Slug: slug, Number: 7}, nil
}

func (s *stubController) Last(context.Context) (*models.Build, error) {
	return nil, bitrise.ErrNotFound
}

func (s *stubController) TriggerNew(context.Context, string, string) (*builds.TriggerResult, error) {
	return &builds.TriggerResult{Slug: "new"}, nil
}

func (s *stubController) Abort(_ context.Context, slug, _ string) error {
	s.aborted = append(s.aborted, slug)
	return s.abortErr
}

func serveAbort(h *BuildHandler, slug string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/build/{slug}/abort", h.Abort)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/build/"+slug+"/abort", nil))
	return rr
}

func TestAbortUnknownBuildSendsNoAbort(t *testing.T) {
	ctrl := &stubController{known: map[string]bool{}}
	h := NewBuildHandler(ctrl, NewRenderer(quietLogger()), quietLogger())

	rr := serveAbort(h, "X")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, ctrl.aborted)
}

func TestAbortRejectedByProviderStillRedirects(t *testing.T) {
	ctrl := &stubController{
		known:    map[string]bool{"B1": true},
		abortErr: &bitrise.Error{StatusCode: http.StatusBadRequest, Message: "build already finished"},
	}
	h := NewBuildHandler(ctrl, NewRenderer(quietLogger()), quietLogger())

	rr := serveAbort(h, "B1")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/build/B1", rr.Header().Get("Location"))
	assert.Equal(t, []string{"B1"}, ctrl.aborted)
}

func TestLastWithoutBuildsIsNotFound(t *testing.T) {
	h := NewBuildHandler(&stubController{}, NewRenderer(quietLogger()), quietLogger())

	rr := httptest.NewRecorder()
	h.Last(rr, httptest.NewRequest(http.MethodGet, "/last", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
