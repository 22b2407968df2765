package actionable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tower-insights-go/internal/aggregator"
	"tower-insights-go/internal/risk"
	"tower-insights-go/internal/types"
)

func records() []types.PredictionRecord {
	return []types.PredictionRecord{
		{TowerID: "T1", Location: "North Region", Date: "2025-04-21", FailureScore: 0.35, FailureType: "Power Outage"},
		{TowerID: "T2", Location: "Urban Zone", Date: "2025-04-22", FailureScore: 0.86, FailureType: "Hardware Malfunction"},
		{TowerID: "T3", Location: "Coastal Area", Date: "2025-04-22", FailureScore: 0.62, FailureType: "Hardware Malfunction"},
	}
}

func TestGeneratePicksWorstDay(t *testing.T) {
	cal, err := aggregator.Aggregate(records())
	require.NoError(t, err)

	card := Generate(cal)
	assert.Equal(t, "2 tower(s) at critical risk on 2025-04-22, mostly Hardware Malfunction", card.Insight)
	assert.Contains(t, card.Action, "Dispatch field crew")
}

func TestGenerateQuietCalendar(t *testing.T) {
	cal, err := aggregator.Aggregate(records()[:1])
	require.NoError(t, err)
	assert.Equal(t, "Continue routine monitoring", Generate(cal).Action)

	empty, err := aggregator.Aggregate(nil)
	require.NoError(t, err)
	assert.Equal(t, "Continue routine monitoring", Generate(empty).Action)
}

func TestDetailsForDay(t *testing.T) {
	recs := records()
	cal, err := aggregator.Aggregate(recs)
	require.NoError(t, err)
	day, _ := cal.Get("2025-04-22")

	details, err := Details(day, recs)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, DayDetail{
		TowerID:        "T2",
		Location:       "Urban Zone",
		RiskScore:      86,
		Risk:           risk.CategoryCritical,
		FailureType:    "Hardware Malfunction",
		Recommendation: "Dispatch field crew within 24h; inspect for Hardware Malfunction and stage backup power",
	}, details[0])
	assert.Equal(t, risk.CategoryHigh, details[1].Risk)
}
