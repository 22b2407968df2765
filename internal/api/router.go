package api

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"tower-insights-go/internal/assistant"
	"tower-insights-go/internal/logger"
	"tower-insights-go/internal/metrics"
	"tower-insights-go/internal/processor"
	"tower-insights-go/internal/types"
)

const (
	maxForecastDays = 31
	maxUploadBytes  = 10 << 20
)

type Server struct {
	Processor    *processor.Processor
	Assistant    *assistant.Client
	Metrics      *metrics.Metrics
	Log          *logger.Logger
	Towers       func() ([]types.Tower, error)
	ForecastDays int
	Now          func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Server) route(r *mux.Router, path string, h http.HandlerFunc, methods ...string) {
	r.Handle(path, s.Metrics.WrapHandler(path, h)).Methods(methods...)
}

// NewRouter wires the dashboard API.
func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter()

	s.route(r, "/healthz", s.healthHandler, http.MethodGet)
	s.route(r, "/calendar", s.aggregateHandler, http.MethodPost)
	s.route(r, "/calendar/upload", s.uploadHandler, http.MethodPost)
	s.route(r, "/calendar/forecast", s.forecastHandler, http.MethodGet)
	s.route(r, "/calendar/forecast/{date}", s.dayHandler, http.MethodGet)
	s.route(r, "/calendar/export", s.exportHandler, http.MethodGet)
	s.route(r, "/towers", s.towersHandler, http.MethodGet)
	s.route(r, "/network/status", s.networkStatusHandler, http.MethodGet)
	s.route(r, "/chat", s.chatHandler, http.MethodPost)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", logger.RequestIDHeader}),
	)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(s.Log.Component("api")),
		handlers.PrintRecoveryStack(false),
	)(cors(r))
}
