package bitrise

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/narvanalabs/redbutton/internal/models"
)

// SortByCreatedAt orders builds newest first.
const SortByCreatedAt = "created_at"

// ListOptions are passed through to the provider's build listing unchanged.
type ListOptions struct {
	Status   *models.BuildStatus
	SortBy   string
	Limit    int
	Branch   string
	Workflow string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.SortBy != "" {
		q.Set("sort_by", o.SortBy)
	}
	if o.Status != nil {
		q.Set("status", strconv.Itoa(int(*o.Status)))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Branch != "" {
		q.Set("branch", o.Branch)
	}
	if o.Workflow != "" {
		q.Set("workflow", o.Workflow)
	}
	return q
}

// TriggerParams selects what a new build runs.
type TriggerParams struct {
	Branch   string
	Workflow string
}

// TriggerResponse is the provider's answer to a build trigger.
type TriggerResponse struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	BuildSlug         string `json:"build_slug"`
	BuildNumber       int    `json:"build_number"`
	BuildURL          string `json:"build_url"`
	TriggeredWorkflow string `json:"triggered_workflow"`
}

// AbortParams describe an abort request.
type AbortParams struct {
	Reason            string
	WithSuccess       bool
	SkipNotifications bool
}

type listResponse struct {
	Data   []models.Build `json:"data"`
	Paging struct {
		TotalItemCount int    `json:"total_item_count"`
		PageItemLimit  int    `json:"page_item_limit"`
		Next           string `json:"next"`
	} `json:"paging"`
}

type buildResponse struct {
	Data models.Build `json:"data"`
}

type triggerRequest struct {
	HookInfo struct {
		Type string `json:"type"`
	} `json:"hook_info"`
	BuildParams struct {
		Branch     string `json:"branch,omitempty"`
		WorkflowID string `json:"workflow_id,omitempty"`
	} `json:"build_params"`
}

type abortRequest struct {
	AbortReason       string `json:"abort_reason"`
	AbortWithSuccess  bool   `json:"abort_with_success"`
	SkipNotifications bool   `json:"skip_notifications"`
}

func buildsPath(appSlug string) string {
	return "/apps/" + url.PathEscape(appSlug) + "/builds"
}

// ListBuilds lists builds of an app in provider order.
func (c *Client) ListBuilds(ctx context.Context, appSlug string, opts ListOptions) ([]models.Build, error) {
	path := buildsPath(appSlug)
	if q := opts.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp listResponse
	if err := c.do(ctx, "list_builds", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []models.Build{}, nil
	}
	return resp.Data, nil
}

// GetBuild fetches a single build. A missing build yields an error wrapping ErrNotFound.
func (c *Client) GetBuild(ctx context.Context, appSlug, buildSlug string) (*models.Build, error) {
	var resp buildResponse
	path := buildsPath(appSlug) + "/" + url.PathEscape(buildSlug)
	if err := c.do(ctx, "get_build", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// TriggerBuild starts a new build. The request is never retried.
func (c *Client) TriggerBuild(ctx context.Context, appSlug string, params TriggerParams) (*TriggerResponse, error) {
	var body triggerRequest
	body.HookInfo.Type = "bitrise"
	body.BuildParams.Branch = params.Branch
	body.BuildParams.WorkflowID = params.Workflow

	var resp TriggerResponse
	if err := c.do(ctx, "trigger_build", http.MethodPost, buildsPath(appSlug), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AbortBuild requests that a build be aborted. The request is never retried.
func (c *Client) AbortBuild(ctx context.Context, appSlug, buildSlug string, params AbortParams) error {
	body := abortRequest{
		AbortReason:       params.Reason,
		AbortWithSuccess:  params.WithSuccess,
		SkipNotifications: params.SkipNotifications,
	}
	path := buildsPath(appSlug) + "/" + url.PathEscape(buildSlug) + "/abort"
	return c.do(ctx, "abort_build", http.MethodPost, path, body, nil)
}

// App is a client bound to a single app.
type App struct {
	client *Client
	slug   string
}

// App returns a view of the client bound to appSlug.
func (c *Client) App(appSlug string) *App {
	return &App{client: c, slug: appSlug}
}

// Slug returns the app identifier.
func (a *App) Slug() string { return a.slug }

// ListBuilds lists builds of the bound app.
func (a *App) ListBuilds(ctx context.Context, opts ListOptions) ([]models.Build, error) {
	return a.client.ListBuilds(ctx, a.slug, opts)
}

// GetBuild fetches a build of the bound app.
func (a *App) GetBuild(ctx context.Context, buildSlug string) (*models.Build, error) {
	return a.client.GetBuild(ctx, a.slug, buildSlug)
}

// TriggerBuild starts a build of the bound app.
func (a *App) TriggerBuild(ctx context.Context, params TriggerParams) (*TriggerResponse, error) {
	return a.client.TriggerBuild(ctx, a.slug, params)
}

// AbortBuild aborts a build of the bound app.
func (a *App) AbortBuild(ctx context.Context, buildSlug string, params AbortParams) error {
	return a.client.AbortBuild(ctx, a.slug, buildSlug, params)
}
