package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordBuild(BuildStarted)
	m.RecordBuild(BuildStarted)
	m.RecordBuild(BuildFailed)
	m.RecordDrift()
	m.RecordInput("cmdMount")

	require.Equal(t, 2.0, testutil.ToFloat64(m.builds.WithLabelValues(BuildStarted)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.builds.WithLabelValues(BuildFailed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.drifts))
	require.Equal(t, 1.0, testutil.ToFloat64(m.inputs.WithLabelValues("cmdMount")))

	m.SetPhase("", "Disconnected")
	m.SetPhase("Disconnected", "SessionActive")
	require.Zero(t, testutil.ToFloat64(m.phase.WithLabelValues("Disconnected")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("SessionActive")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordBuild(BuildStarted)
	m.RecordDrift()
	m.RecordDrop()
	m.SetPhase("", "Disconnected")
	m.RecordHTTPRequest("GET", "/v1/state", 200, time.Millisecond)
}

func TestHandlerExposesRegistry(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordHTTPRequest(http.MethodGet, "/v1/state", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `zkdash_http_requests_total{method="GET",path="/v1/state",status="200"} 1`)
}
