// Package metrics exposes Prometheus collectors for provider calls and the
// build lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redbutton"

var (
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "CI provider calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "CI provider call latency including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	buildsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "builds_triggered_total",
		Help:      "Builds started through the big red button.",
	})

	abortRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "abort_requests_total",
		Help:      "Abort requests issued, by origin and outcome.",
	}, []string{"origin", "outcome"})

	bestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "best_effort_failures_total",
		Help:      "Non-critical steps that failed and were ignored.",
	}, []string{"step"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Inbound HTTP requests by method and status code.",
	}, []string{"method", "code"})
)

// Abort origins.
const (
	OriginSupersede = "supersede"
	OriginManual    = "manual"
)

// ObserveProviderCall records the outcome and latency of a provider call.
func ObserveProviderCall(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(operation, outcome).Inc()
	providerLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordTrigger counts a triggered build.
func RecordTrigger() {
	buildsTriggered.Inc()
}

// RecordAbort counts an abort request.
func RecordAbort(origin string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	abortRequests.WithLabelValues(origin, outcome).Inc()
}

// RecordBestEffortFailure counts an ignored failure of a non-critical step.
func RecordBestEffortFailure(step string) {
	bestEffortFailures.WithLabelValues(step).Inc()
}

// RecordHTTPRequest counts an inbound request.
func RecordHTTPRequest(method string, status int) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
