package mockdata

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"tower-insights-go/internal/types"
)

var locations = []string{
	"North Region",
	"South Region",
	"East Region",
	"West Region",
	"Central District",
	"Coastal Area",
	"Mountain Range",
	"Urban Zone",
	"Rural Area",
	"Highway Junction",
}

var failureReasons = []string{
	"Power failure",
	"Weather damage",
	"Hardware malfunction",
	"Software issue",
	"Signal interference",
	"Antenna misalignment",
	"Maintenance error",
	"Vandalism",
}

// FailureTypes are the labels used for generated predictions.
var FailureTypes = []string{
	"Power Outage",
	"Hardware Malfunction",
	"Signal Interference",
	"Weather Damage",
	"Software Failure",
}

// Generator produces repeatable demo towers and predictions. It is not safe
// for concurrent use.
type Generator struct {
	rng *rand.Rand
	ids io.Reader
}

func NewGenerator(seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))
	return &Generator{rng: rng, ids: rng}
}

// between returns an int in [min, max].
func (g *Generator) between(min, max int) int {
	return g.rng.Intn(max-min+1) + min
}

func (g *Generator) pick(vals []string) string {
	return vals[g.rng.Intn(len(vals))]
}

// StatusFor derives the display status from the 0-100 failure probability and
// signal strength.
func StatusFor(failureProbability, signalStrength int) types.TowerStatus {
	switch {
	case failureProbability > 75 || signalStrength < 60:
		return types.StatusFailed
	case failureProbability > 30 || signalStrength < 80:
		return types.StatusAtRisk
	default:
		return types.StatusOperational
	}
}

// Towers generates n towers relative to now.
func (g *Generator) Towers(n int, now time.Time) ([]types.Tower, error) {
	if n < 0 {
		n = 0
	}
	towers := make([]types.Tower, 0, n)
	for i := 0; i < n; i++ {
		signal := g.between(50, 100)
		prob := g.between(0, 100)
		loc := g.pick(locations)

		history, err := g.failureHistory(g.between(0, 5), now)
		if err != nil {
			return nil, fmt.Errorf("tower %d failure history: %w", i+1, err)
		}
		t := types.Tower{
			ID:                 fmt.Sprintf("TWR%03d", i+1),
			Name:               fmt.Sprintf("Tower %s-%d", loc[:1], i+1),
			Location:           loc,
			Status:             StatusFor(prob, signal),
			SignalStrength:     signal,
			FailureProbability: prob,
			LastMaintenance:    now.AddDate(0, 0, -g.between(5, 180)).Format(types.DateLayout),
			FailureHistory:     history,
		}
		if g.rng.Float64() > 0.3 {
			t.NextMaintenance = now.AddDate(0, 0, g.between(1, 90)).Format(types.DateLayout)
		}
		towers = append(towers, t)
	}
	return towers, nil
}

// failureHistory returns n past failures, newest first.
func (g *Generator) failureHistory(n int, now time.Time) ([]types.FailureEvent, error) {
	events := make([]types.FailureEvent, 0, n)
	for i := 0; i < n; i++ {
		id, err := uuid.NewRandomFromReader(g.ids)
		if err != nil {
			return nil, fmt.Errorf("event id: %w", err)
		}
		events = append(events, types.FailureEvent{
			ID:       id.String(),
			Date:     now.AddDate(0, 0, -g.between(5, 300)).Format(types.DateLayout),
			Reason:   g.pick(failureReasons),
			Duration: g.between(1, 48),
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date > events[j].Date })
	return events, nil
}

// Predictions generates one record per tower per day, starting at from. The
// score drifts around the tower's own failure probability.
func (g *Generator) Predictions(towers []types.Tower, from time.Time, days int) []types.PredictionRecord {
	if days < 0 {
		days = 0
	}
	out := make([]types.PredictionRecord, 0, len(towers)*days)
	for d := 0; d < days; d++ {
		date := from.AddDate(0, 0, d).Format(types.DateLayout)
		for _, t := range towers {
			score := float64(t.FailureProbability)/100 + (g.rng.Float64()*0.3 - 0.15)
			score = math.Round(math.Min(1, math.Max(0, score))*100) / 100
			failing := score >= 0.5
			out = append(out, types.PredictionRecord{
				TowerID:          t.ID,
				Location:         t.Location,
				Date:             date,
				FailureScore:     score,
				FailureType:      g.pick(FailureTypes),
				PredictedFailure: &failing,
			})
		}
	}
	return out
}
