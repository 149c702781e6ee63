package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// MockPinger is a mock implementation of the Pinger interface for testing.
type MockPinger struct {
	ShouldFail bool
	Error      error
}

func (m *MockPinger) Ping(ctx context.Context) error {
	if m.ShouldFail {
		if m.Error != nil {
			return m.Error
		}
		return errors.New("mock ping failed")
	}
	return nil
}

// Property: the health response reflects CI provider reachability.
// For any version, provider state and allowlist size, the response carries a
// ci_provider component, the overall status follows the worst component and
// the HTTP status is 503 only when unhealthy.
func TestPropertyHealthCheckProviderVerification(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	genVersion := gen.RegexMatch("v?[0-9]+\\.[0-9]+\\.[0-9]+")

	properties.Property("overall status follows the worst component", prop.ForAll(
		func(version string, reachable bool, allowlistSize int) bool {
			checker := NewChecker(&MockPinger{ShouldFail: !reachable}, allowlistSize, version)
			response := checker.Check(context.Background())

			provider, ok := response.Components["ci_provider"]
			if !ok {
				t.Log("Response missing 'ci_provider' component")
				return false
			}

			var want Status
			switch {
			case !reachable:
				want = StatusUnhealthy
			case allowlistSize == 0:
				want = StatusDegraded
			default:
				want = StatusHealthy
			}

			if reachable != (provider.Status == StatusHealthy) {
				return false
			}
			return response.Status == want && response.Version == version
		},
		genVersion,
		gen.Bool(),
		gen.IntRange(0, 3),
	))

	properties.Property("handler returns 503 only when unhealthy", prop.ForAll(
		func(reachable bool, allowlistSize int) bool {
			checker := NewChecker(&MockPinger{ShouldFail: !reachable}, allowlistSize, "v1.0.0")

			rr := httptest.NewRecorder()
			checker.Handler()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			var response map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Logf("Failed to decode response: %v", err)
				return false
			}
			if _, ok := response["components"].(map[string]any)["ci_provider"]; !ok {
				return false
			}

			if reachable {
				return rr.Code == http.StatusOK
			}
			return rr.Code == http.StatusServiceUnavailable
		},
		gen.Bool(),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

func TestNilProviderIsUnhealthy(t *testing.T) {
	response := NewChecker(nil, 1, "dev").Check(context.Background())
	if response.Status != StatusUnhealthy {
		t.Errorf("Status = %s, want unhealthy", response.Status)
	}
}

func TestCheckHonoursTimeout(t *testing.T) {
	slow := pingerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	checker := NewChecker(slow, 1, "dev")
	checker.SetTimeout(10 * time.Millisecond)

	start := time.Now()
	response := checker.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honour timeout")
	}
	if response.Components["ci_provider"].Status != StatusUnhealthy {
		t.Errorf("ci_provider = %s, want unhealthy", response.Components["ci_provider"].Status)
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHandlerHidesProviderErrorDetail(t *testing.T) {
	detail := `Get "https://api.bitrise.io/v0.1/me": dial tcp 10.0.0.7:443: connect: connection refused`
	var logs bytes.Buffer
	checker := NewChecker(&MockPinger{ShouldFail: true, Error: errors.New(detail)}, 1, "dev")
	checker.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	rr := httptest.NewRecorder()
	checker.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "10.0.0.7") || strings.Contains(rr.Body.String(), "api.bitrise.io") {
		t.Errorf("response leaks provider error: %s", rr.Body.String())
	}
	var response Response
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if got := response.Components["ci_provider"].Message; got != "CI provider unreachable" {
		t.Errorf("message = %q", got)
	}
	if !strings.Contains(logs.String(), "10.0.0.7") {
		t.Errorf("provider error not logged: %s", logs.String())
	}
}
