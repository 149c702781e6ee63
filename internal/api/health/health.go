// Package health reports whether the service can reach its dependencies.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is implemented by the CI provider client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs health checks.
type Checker struct {
	provider      Pinger
	allowlistSize int
	startTime     time.Time
	version       string
	timeout       time.Duration
	logger        *slog.Logger
	mu            sync.RWMutex
}

// NewChecker creates a new health checker. allowlistSize is reported as
// degraded when zero since nobody could sign in.
func NewChecker(provider Pinger, allowlistSize int, version string) *Checker {
	return &Checker{
		provider:      provider,
		allowlistSize: allowlistSize,
		startTime:     time.Now(),
		version:       version,
		timeout:       5 * time.Second,
		logger:        slog.Default(),
	}
}

// SetLogger sets the logger that receives failed check details.
func (c *Checker) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	logger := c.logger
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components := map[string]ComponentStatus{
		"ci_provider": c.checkProvider(checkCtx, logger),
		"allowlist":   c.checkAllowlist(),
	}

	overallStatus := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
		if comp.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}

	return &Response{
		Status:     overallStatus,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

// checkProvider keeps error detail out of the public response; it goes to
// the log instead.
func (c *Checker) checkProvider(ctx context.Context, logger *slog.Logger) ComponentStatus {
	if c.provider == nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "CI provider not configured",
		}
	}

	if err := c.provider.Ping(ctx); err != nil {
		logger.Warn("CI provider health check failed", "error", err)
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "CI provider unreachable",
		}
	}

	return ComponentStatus{
		Status:  StatusHealthy,
		Message: "reachable",
	}
}

func (c *Checker) checkAllowlist() ComponentStatus {
	if c.allowlistSize == 0 {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "allowlist is empty",
		}
	}
	return ComponentStatus{Status: StatusHealthy}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")

		switch response.Status {
		case StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(response)
	}
}
