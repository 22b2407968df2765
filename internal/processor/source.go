package processor

import (
	"context"
	"errors"
	"time"

	"tower-insights-go/internal/dataset"
	"tower-insights-go/internal/mockdata"
	"tower-insights-go/internal/prediction"
	"tower-insights-go/internal/types"
)

// Source supplies the prediction records for a forecast window.
type Source interface {
	Name() string
	Fetch(ctx context.Context, from time.Time, days int) ([]types.PredictionRecord, error)
}

// ServiceSource asks the prediction service about a fixed set of towers.
// With Batch set the whole window is requested in one call instead of one
// call per tower and date.
type ServiceSource struct {
	Client   *prediction.Client
	TowerIDs []string
	Batch    bool
}

func (s *ServiceSource) Name() string { return "service" }

func (s *ServiceSource) Fetch(ctx context.Context, from time.Time, days int) ([]types.PredictionRecord, error) {
	if len(s.TowerIDs) == 0 {
		return nil, errors.New("no tower ids configured")
	}
	if !s.Batch {
		return s.Client.Forecast(ctx, s.TowerIDs, from, days)
	}
	start := from.Format(types.DateLayout)
	end := from.AddDate(0, 0, days-1).Format(types.DateLayout)
	recs, err := s.Client.GetBatchPredictions(ctx, s.TowerIDs, start, end)
	if err != nil {
		return nil, err
	}
	return inWindow(recs, from, days), nil
}

// DatasetSource reads a prediction spreadsheet and keeps the rows inside the
// requested window.
type DatasetSource struct {
	Path string
}

func (s *DatasetSource) Name() string { return "dataset" }

func (s *DatasetSource) Fetch(_ context.Context, from time.Time, days int) ([]types.PredictionRecord, error) {
	recs, err := dataset.LoadPredictions(s.Path)
	if err != nil {
		return nil, err
	}
	return inWindow(recs, from, days), nil
}

// MockSource generates towers and predictions from a fixed seed, so every
// call sees the same network.
type MockSource struct {
	Seed       int64
	TowerCount int
	Now        func() time.Time
}

func (s *MockSource) Name() string { return "mock" }

func (s *MockSource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Towers returns the generated network.
func (s *MockSource) Towers() ([]types.Tower, error) {
	return mockdata.NewGenerator(s.Seed).Towers(s.TowerCount, s.now())
}

func (s *MockSource) Fetch(_ context.Context, from time.Time, days int) ([]types.PredictionRecord, error) {
	g := mockdata.NewGenerator(s.Seed)
	towers, err := g.Towers(s.TowerCount, s.now())
	if err != nil {
		return nil, err
	}
	return g.Predictions(towers, from, days), nil
}

func inWindow(recs []types.PredictionRecord, from time.Time, days int) []types.PredictionRecord {
	start := from.Format(types.DateLayout)
	end := from.AddDate(0, 0, days).Format(types.DateLayout)
	out := make([]types.PredictionRecord, 0, len(recs))
	for _, r := range recs {
		if r.Date >= start && r.Date < end {
			out = append(out, r)
		}
	}
	return out
}
