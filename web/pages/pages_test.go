package pages

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvanalabs/redbutton/internal/models"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestLandingLinksToLogin(t *testing.T) {
	out := render(t, Landing())
	assert.Contains(t, out, `href="/login"`)
	assert.NotContains(t, out, "/logout")
}

func TestIndexListsBuilds(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 10, 0, 0, time.UTC)
	out := render(t, Index(IndexData{
		User: &models.Identity{Subject: "auth0|alice", Name: "Alice"},
		Builds: []models.Build{
			{Slug: "b2", Number: 12, Status: models.BuildStatusNotFinished, Branch: "main", Workflow: "primary", TriggeredAt: now.Add(-time.Minute)},
			{Slug: "b1", Number: 11, Status: models.BuildStatusNotFinished, Branch: "main", Workflow: "primary", TriggeredAt: now.Add(-5 * time.Minute)},
		},
		Now: now,
	}))

	assert.Contains(t, out, `action="/new-build"`)
	assert.Contains(t, out, `href="/build/b2"`)
	assert.Contains(t, out, `href="/build/b1"`)
	assert.Less(t, strings.Index(out, "/build/b2"), strings.Index(out, "/build/b1"), "provider order is kept")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, `href="/logout"`)
}

func TestIndexEmpty(t *testing.T) {
	out := render(t, Index(IndexData{User: &models.Identity{Subject: "s"}}))
	assert.Contains(t, out, "Nothing is running.")
}

func TestBuildShowsAbortOnlyWhileRunning(t *testing.T) {
	running := &models.Build{Slug: "b1", Number: 7, Status: models.BuildStatusNotFinished}
	out := render(t, Build(BuildData{Build: running, Now: time.Now()}))
	assert.Contains(t, out, `action="/build/b1/abort"`)

	aborted := &models.Build{Slug: "b1", Number: 7, Status: models.BuildStatusAborted, AbortReason: "cancelled via big red button"}
	out = render(t, Build(BuildData{Build: aborted, Now: time.Now()}))
	assert.NotContains(t, out, "/abort")
	assert.Contains(t, out, "cancelled via big red button")
}

func TestBuildEscapesProviderText(t *testing.T) {
	b := &models.Build{Slug: "b1", CommitMessage: `<script>alert("x")</script>`, Status: models.BuildStatusSuccess}
	out := render(t, Build(BuildData{Build: b}))
	assert.NotContains(t, out, `<script>alert`)
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestErrorPage(t *testing.T) {
	out := render(t, Error(ErrorData{Status: http.StatusUnauthorized, Message: "Please sign in", RequestID: "req-1"}))
	assert.Contains(t, out, "401")
	assert.Contains(t, out, "Unauthorized")
	assert.Contains(t, out, `href="/login"`)
	assert.Contains(t, out, "req-1")

	out = render(t, Error(ErrorData{Status: http.StatusBadGateway, Message: "CI down"}))
	assert.Contains(t, out, "Bad Gateway")
	assert.NotContains(t, out, `href="/login"`)
}

func TestBadgeClassesMerge(t *testing.T) {
	cls := badgeClass(models.BuildStatusFailed)
	assert.Contains(t, cls, "bg-red-100")
	assert.NotContains(t, cls, "bg-gray-100", "conflicting utilities are merged away")
	assert.Equal(t, badgeBase, badgeClass(models.BuildStatus(42)))
}
