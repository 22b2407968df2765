package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"tower-insights-go/internal/actionable"
	"tower-insights-go/internal/aggregator"
	"tower-insights-go/internal/dataset"
	"tower-insights-go/internal/network"
	"tower-insights-go/internal/processor"
	"tower-insights-go/internal/risk"
	"tower-insights-go/internal/types"
)

// wireRecord is a PredictionRecord as posted by clients. The score is a
// pointer so an omitted score is rejected instead of read as zero.
type wireRecord struct {
	TowerID          string   `json:"tower_id"`
	Location         string   `json:"location"`
	Date             string   `json:"date"`
	FailureScore     *float64 `json:"failure_score"`
	FailureType      string   `json:"failure_type"`
	PredictedFailure *bool    `json:"predicted_failure"`
}

type aggregateRequest struct {
	Records []wireRecord `json:"records"`
}

// records validates the posted rows and converts them to prediction records.
func (b aggregateRequest) records() ([]types.PredictionRecord, error) {
	out := make([]types.PredictionRecord, 0, len(b.Records))
	for i, w := range b.Records {
		if w.FailureScore == nil {
			return nil, fmt.Errorf("record %d (tower %q): missing failure_score", i, w.TowerID)
		}
		out = append(out, types.PredictionRecord{
			TowerID:          w.TowerID,
			Location:         w.Location,
			Date:             types.NormalizeDate(w.Date),
			FailureScore:     *w.FailureScore,
			FailureType:      w.FailureType,
			PredictedFailure: w.PredictedFailure,
		})
	}
	return out, nil
}

type chatRequest struct {
	Prompt  string              `json:"prompt"`
	History []types.ChatMessage `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type dayResponse struct {
	Summary aggregator.DaySummary  `json:"summary"`
	Details []actionable.DayDetail `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps processing errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case processor.IsInvalidData(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dataset.ErrInvalidRow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, processor.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) aggregateHandler(w http.ResponseWriter, r *http.Request) {
	reqLog := s.Log.WithRequest(r).WithField("handler", "aggregate")

	var body aggregateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		reqLog.WithError(err).Warn("malformed aggregate request")
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	recs, err := body.records()
	if err != nil {
		reqLog.WithError(err).Warn("aggregate request rejected")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.aggregate(w, r, recs)
}

// uploadHandler aggregates an xlsx prediction sheet posted as the request body.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	reqLog := s.Log.WithRequest(r).WithField("handler", "upload")

	recs, err := dataset.ReadPredictions(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		reqLog.WithError(err).Warn("prediction sheet rejected")
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.aggregate(w, r, recs)
}

func (s *Server) aggregate(w http.ResponseWriter, r *http.Request, recs []types.PredictionRecord) {
	reqLog := s.Log.WithRequest(r)
	failingOnly, _ := strconv.ParseBool(r.URL.Query().Get("failing_only"))
	minRisk, err := minRiskParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cal, err := s.Processor.Aggregate(recs, failingOnly)
	if err != nil {
		reqLog.WithError(err).Warn("aggregation failed")
		writeError(w, statusFor(err), err.Error())
		return
	}
	reqLog.WithField("days", cal.Len()).Info("calendar aggregated")
	writeJSON(w, http.StatusOK, cal.AtLeast(minRisk))
}

// minRiskParam reads ?min_risk=, defaulting to low so nothing is filtered.
func minRiskParam(r *http.Request) (risk.Category, error) {
	v := r.URL.Query().Get("min_risk")
	if v == "" {
		return risk.CategoryLow, nil
	}
	c, err := risk.ParseCategory(v)
	if err != nil {
		return "", fmt.Errorf("min_risk: %w", err)
	}
	return c, nil
}

// forecastWindow reads ?from=YYYY-MM-DD&days=N, defaulting to today and the
// configured forecast length.
func (s *Server) forecastWindow(r *http.Request) (time.Time, int, error) {
	from := s.now()
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(types.DateLayout, v)
		if err != nil {
			return time.Time{}, 0, errors.New("from must be YYYY-MM-DD")
		}
		from = t
	}
	days := s.ForecastDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxForecastDays {
			return time.Time{}, 0, errors.New("days must be an integer in [1, 31]")
		}
		days = n
	}
	if days <= 0 {
		days = 3
	}
	return from, days, nil
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request, handler string) (processor.Result, bool) {
	reqLog := s.Log.WithRequest(r).WithField("handler", handler)
	from, days, err := s.forecastWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return processor.Result{}, false
	}
	minRisk, err := minRiskParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return processor.Result{}, false
	}
	res, err := s.Processor.Forecast(r.Context(), from, days)
	if err != nil {
		reqLog.WithError(err).Warn("forecast failed")
		writeError(w, statusFor(err), err.Error())
		return processor.Result{}, false
	}
	reqLog.WithField("duration_ms", res.DurationMs).Info("forecast built")
	res.Calendar = res.Calendar.AtLeast(minRisk)
	return res, true
}

func (s *Server) forecastHandler(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.forecast(w, r, "forecast"); ok {
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) dayHandler(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse(types.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	res, ok := s.forecast(w, r, "day")
	if !ok {
		return
	}
	day, found := res.Calendar.Get(date)
	if !found {
		writeError(w, http.StatusNotFound, "no predicted failures on "+date)
		return
	}
	details, err := actionable.Details(day, res.Records)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{Summary: day, Details: details})
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := s.forecast(w, r, "export")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := dataset.ExportCalendar(res.Calendar, &buf); err != nil {
		s.Log.WithRequest(r).WithError(err).Error("export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="failure-calendar-`+res.From+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) towers() ([]types.Tower, error) {
	if s.Towers == nil {
		return []types.Tower{}, nil
	}
	towers, err := s.Towers()
	if err != nil {
		return nil, err
	}
	if towers == nil {
		towers = []types.Tower{}
	}
	return towers, nil
}

func (s *Server) towersOrError(w http.ResponseWriter, r *http.Request) ([]types.Tower, bool) {
	towers, err := s.towers()
	if err != nil {
		s.Log.WithRequest(r).WithError(err).Error("tower inventory unavailable")
		writeError(w, http.StatusInternalServerError, "tower inventory unavailable")
		return nil, false
	}
	return towers, true
}

func (s *Server) towersHandler(w http.ResponseWriter, r *http.Request) {
	if towers, ok := s.towersOrError(w, r); ok {
		writeJSON(w, http.StatusOK, towers)
	}
}

func (s *Server) networkStatusHandler(w http.ResponseWriter, r *http.Request) {
	if towers, ok := s.towersOrError(w, r); ok {
		writeJSON(w, http.StatusOK, network.Summarize(towers))
	}
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	reqLog := s.Log.WithRequest(r).WithField("handler", "chat")
	if s.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if body.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	towers, ok := s.towersOrError(w, r)
	if !ok {
		return
	}
	reply, err := s.Assistant.Reply(r.Context(), body.Prompt, network.Summarize(towers), body.History)
	s.Metrics.ChatRequest(err)
	if err != nil {
		reqLog.WithError(err).Warn("assistant reply failed")
		writeError(w, http.StatusBadGateway, "I encountered an error processing your request. Please try again later.")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
