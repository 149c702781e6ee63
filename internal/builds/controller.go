// Package builds keeps at most one build of the CI app active.
//
// The controller never holds build state of its own. Every decision is made
// from a fresh listing of the provider, which is eventually consistent, so the
// single-active-build guarantee is best effort: every not-finished build seen
// in the listing gets an abort request before the new build is triggered.
package builds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/narvanalabs/redbutton/internal/bitrise"
	"github.com/narvanalabs/redbutton/internal/metrics"
	"github.com/narvanalabs/redbutton/internal/models"
)

// Default values applied by NewController.
const (
	DefaultAbortLimit     = 5
	DefaultObsoleteReason = "obsolete, superseded by new build"
	ManualAbortReason     = "cancelled via big red button"
	DefaultBranch         = "main"
	DefaultWorkflow       = "primary"
)

// Re-exported provider errors so callers need not import the client package.
var (
	ErrNotFound            = bitrise.ErrNotFound
	ErrUpstreamUnavailable = bitrise.ErrUpstreamUnavailable
)

// Provider is the subset of the CI API the controller relies on.
// *bitrise.App implements it.
type Provider interface {
	ListBuilds(ctx context.Context, opts bitrise.ListOptions) ([]models.Build, error)
	GetBuild(ctx context.Context, slug string) (*models.Build, error)
	TriggerBuild(ctx context.Context, params bitrise.TriggerParams) (*bitrise.TriggerResponse, error)
	AbortBuild(ctx context.Context, slug string, params bitrise.AbortParams) error
}

// Options configure a Controller. Zero values select the defaults.
type Options struct {
	AbortLimit      int
	ObsoleteReason  string
	DefaultBranch   string
	DefaultWorkflow string
}

// Filter narrows a build listing. It is passed to the provider as is.
type Filter struct {
	Status *models.BuildStatus
	SortBy string
	Limit  int
}

// AbortFailure records an abort that the provider did not accept.
type AbortFailure struct {
	Slug string
	Err  error
}

// TriggerResult describes the outcome of TriggerNew.
type TriggerResult struct {
	Slug    string
	Number  int
	Aborted []string
	Failed  []AbortFailure
}

// Controller orchestrates build listing, aborting and triggering.
type Controller struct {
	provider Provider
	opts     Options
	logger   *slog.Logger
}

// NewController creates a controller on top of provider.
func NewController(provider Provider, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AbortLimit <= 0 {
		opts.AbortLimit = DefaultAbortLimit
	}
	if opts.ObsoleteReason == "" {
		opts.ObsoleteReason = DefaultObsoleteReason
	}
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = DefaultBranch
	}
	if opts.DefaultWorkflow == "" {
		opts.DefaultWorkflow = DefaultWorkflow
	}
	return &Controller{
		provider: provider,
		opts:     opts,
		logger:   logger.With("component", "builds"),
	}
}

// ListRecent returns builds in provider order. No local filtering or
// reordering is applied.
func (c *Controller) ListRecent(ctx context.Context, f Filter) ([]models.Build, error) {
	builds, err := c.provider.ListBuilds(ctx, bitrise.ListOptions{
		Status: f.Status,
		SortBy: f.SortBy,
		Limit:  f.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	return builds, nil
}

// Describe fetches one build. It returns an error wrapping ErrNotFound when
// the provider does not know the slug.
func (c *Controller) Describe(ctx context.Context, slug string) (*models.Build, error) {
	build, err := c.provider.GetBuild(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("describing build %s: %w", slug, err)
	}
	return build, nil
}

// Last returns the most recently created build of any status.
func (c *Controller) Last(ctx context.Context) (*models.Build, error) {
	builds, err := c.ListRecent(ctx, Filter{SortBy: bitrise.SortByCreatedAt, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		return nil, fmt.Errorf("no builds yet: %w", ErrNotFound)
	}
	return &builds[0], nil
}

// Abort sends a single abort request with notifications suppressed. The
// provider error is returned unchanged; callers decide whether it matters.
func (c *Controller) Abort(ctx context.Context, slug, reason string) error {
	err := c.provider.AbortBuild(ctx, slug, bitrise.AbortParams{
		Reason:            reason,
		SkipNotifications: true,
	})
	metrics.RecordAbort(metrics.OriginManual, err)
	return err
}

// TriggerNew aborts every not-finished build in a snapshot of at most
// AbortLimit newest builds, then triggers a new build on branch and workflow.
// Empty arguments fall back to the configured defaults.
//
// Abort failures do not stop the sequence. They are logged and reported in
// the result. A failed snapshot listing fails the call before anything is
// aborted or triggered.
func (c *Controller) TriggerNew(ctx context.Context, branch, workflow string) (*TriggerResult, error) {
	if branch == "" {
		branch = c.opts.DefaultBranch
	}
	if workflow == "" {
		workflow = c.opts.DefaultWorkflow
	}

	status := models.BuildStatusNotFinished
	running, err := c.ListRecent(ctx, Filter{
		Status: &status,
		SortBy: bitrise.SortByCreatedAt,
		Limit:  c.opts.AbortLimit,
	})
	if err != nil {
		return nil, err
	}

	result := &TriggerResult{}
	seen := make(map[string]struct{}, len(running))
	for _, b := range running {
		if _, dup := seen[b.Slug]; dup {
			continue
		}
		seen[b.Slug] = struct{}{}

		err := c.provider.AbortBuild(ctx, b.Slug, bitrise.AbortParams{
			Reason:            c.opts.ObsoleteReason,
			SkipNotifications: true,
		})
		metrics.RecordAbort(metrics.OriginSupersede, err)
		if err != nil {
			metrics.RecordBestEffortFailure("supersede_abort")
			c.logger.Warn("failed to abort obsolete build", "slug", b.Slug, "error", err)
			result.Failed = append(result.Failed, AbortFailure{Slug: b.Slug, Err: err})
			continue
		}
		c.logger.Info("aborted obsolete build", "slug", b.Slug, "number", b.Number)
		result.Aborted = append(result.Aborted, b.Slug)
	}

	resp, err := c.provider.TriggerBuild(ctx, bitrise.TriggerParams{Branch: branch, Workflow: workflow})
	if err != nil {
		return nil, fmt.Errorf("triggering build: %w", err)
	}
	if resp.BuildSlug == "" {
		return nil, errors.New("triggering build: provider returned no build slug")
	}
	metrics.RecordTrigger()

	c.logger.Info("triggered build",
		"slug", resp.BuildSlug,
		"number", resp.BuildNumber,
		"branch", branch,
		"workflow", workflow,
		"aborted", len(result.Aborted),
		"abort_failures", len(result.Failed),
	)

	result.Slug = resp.BuildSlug
	result.Number = resp.BuildNumber
	return result, nil
}
