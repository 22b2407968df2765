package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	aggregations      *prometheus.CounterVec
	aggregatedDays    prometheus.Histogram
	predictionFetches *prometheus.CounterVec
	chatRequests      *prometheus.CounterVec
}

// New registers the service metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_aggregations_total",
			Help: "Calendar aggregations by outcome (ok, invalid).",
		}, []string{"outcome"}),
		aggregatedDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calendar_aggregated_days",
			Help:    "Number of distinct dates per aggregated calendar.",
			Buckets: []float64{0, 1, 3, 7, 14, 31, 62},
		}),
		predictionFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_fetches_total",
			Help: "Prediction batch fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Assistant chat requests by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.aggregations,
		m.aggregatedDays,
		m.predictionFetches,
		m.chatRequests,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Aggregation(days int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.aggregations.WithLabelValues("invalid").Inc()
		return
	}
	m.aggregations.WithLabelValues("ok").Inc()
	m.aggregatedDays.Observe(float64(days))
}

func (m *Metrics) PredictionFetch(source string, err error) {
	if m == nil {
		return
	}
	m.predictionFetches.WithLabelValues(source, outcome(err)).Inc()
}

func (m *Metrics) ChatRequest(err error) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
