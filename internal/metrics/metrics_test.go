package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAbortOutcomes(t *testing.T) {
	okBefore := testutil.ToFloat64(abortRequests.WithLabelValues(OriginManual, "ok"))
	errBefore := testutil.ToFloat64(abortRequests.WithLabelValues(OriginManual, "error"))

	RecordAbort(OriginManual, nil)
	RecordAbort(OriginManual, errors.New("boom"))
	RecordAbort(OriginManual, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(abortRequests.WithLabelValues(OriginManual, "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(abortRequests.WithLabelValues(OriginManual, "error")))
}

func TestObserveProviderCall(t *testing.T) {
	before := testutil.ToFloat64(providerRequests.WithLabelValues("list_builds", "error"))

	ObserveProviderCall("list_builds", time.Now(), errors.New("unavailable"))

	assert.Equal(t, before+1, testutil.ToFloat64(providerRequests.WithLabelValues("list_builds", "error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordTrigger()
	RecordBestEffortFailure("supersede_abort")
	RecordHTTPRequest(http.MethodGet, http.StatusOK)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "redbutton_builds_triggered_total")
	assert.Contains(t, body, `redbutton_best_effort_failures_total{step="supersede_abort"}`)
	assert.Contains(t, body, `redbutton_http_requests_total{code="200",method="GET"}`)
}
