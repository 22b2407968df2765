package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregationCounters(t *testing.T) {
	m := New()
	m.Aggregation(3, nil)
	m.Aggregation(0, errors.New("bad score"))
	m.Aggregation(1, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.aggregations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregations.WithLabelValues("invalid")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.Aggregation(1, nil)
	m.PredictionFetch("mock", nil)
	m.ChatRequest(errors.New("x"))
}

func TestWrapHandlerRecordsStatus(t *testing.T) {
	m := New()
	h := m.WrapHandler("/calendar", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/calendar", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/calendar", "422")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{route="/calendar",status="422"} 1`)
}
