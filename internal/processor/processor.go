package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tower-insights-go/internal/actionable"
	"tower-insights-go/internal/aggregator"
	"tower-insights-go/internal/logger"
	"tower-insights-go/internal/metrics"
	"tower-insights-go/internal/risk"
	"tower-insights-go/internal/types"
)

// ErrFetch marks failures to obtain predictions, as opposed to bad data.
var ErrFetch = errors.New("fetch predictions")

// Result is returned by /calendar/forecast
type Result struct {
	From       string                   `json:"from"`
	Days       int                      `json:"days"`
	Source     string                   `json:"source"`
	Calendar   *aggregator.Calendar     `json:"calendar"`
	ActionCard actionable.ActionCard    `json:"action_card"`
	Records    []types.PredictionRecord `json:"-"`
	DurationMs int64                    `json:"duration_ms"`
}

type Processor struct {
	source  Source
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func New(source Source, m *metrics.Metrics) *Processor {
	return &Processor{
		source:  source,
		metrics: m,
		log:     logger.New().Component("processor").WithField("source", source.Name()),
	}
}

// Aggregate runs the calendar fold over records, optionally dropping records
// that are not predicted failures first.
func (p *Processor) Aggregate(records []types.PredictionRecord, failingOnly bool) (*aggregator.Calendar, error) {
	if failingOnly {
		records = aggregator.FailingOnly(records)
	}
	cal, err := aggregator.Aggregate(records)
	if err != nil {
		p.metrics.Aggregation(0, err)
		p.log.WithError(err).Warn("aggregation rejected batch")
		return nil, err
	}
	p.metrics.Aggregation(cal.Len(), nil)
	return cal, nil
}

// Forecast fetches the next days of predictions starting at from and builds
// the failure calendar from the predicted failures.
func (p *Processor) Forecast(ctx context.Context, from time.Time, days int) (Result, error) {
	start := time.Now()
	res := Result{From: from.Format(types.DateLayout), Days: days, Source: p.source.Name()}
	if days <= 0 {
		return res, fmt.Errorf("days must be > 0, got %d", days)
	}

	recs, err := p.source.Fetch(ctx, from, days)
	p.metrics.PredictionFetch(p.source.Name(), err)
	if err != nil {
		p.log.WithError(err).Error("prediction fetch failed")
		return res, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	failing := aggregator.FailingOnly(recs)
	cal, err := p.Aggregate(failing, false)
	if err != nil {
		return res, err
	}
	res.Calendar = cal
	res.Records = failing
	res.ActionCard = actionable.Generate(cal)
	res.DurationMs = time.Since(start).Milliseconds()

	p.log.WithFields(logrus.Fields{
		"fetched":     len(recs),
		"failing":     len(failing),
		"days":        cal.Len(),
		"duration_ms": res.DurationMs,
	}).Info("forecast calendar built")
	return res, nil
}

// IsInvalidData reports whether err came from a malformed prediction score.
func IsInvalidData(err error) bool {
	var rangeErr *risk.OutOfRangeError
	var scoreErr *risk.InvalidScoreError
	return errors.As(err, &rangeErr) || errors.As(err, &scoreErr)
}
