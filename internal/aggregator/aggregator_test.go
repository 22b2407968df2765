package aggregator

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tower-insights-go/internal/risk"
	"tower-insights-go/internal/types"
)

func rec(tower, date string, score float64, failureType string) types.PredictionRecord {
	return types.PredictionRecord{TowerID: tower, Date: date, FailureScore: score, FailureType: failureType}
}

func TestAggregateEmptyInput(t *testing.T) {
	cal, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cal.Len())

	raw, err := json.Marshal(cal)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestAggregateWorstRiskFold(t *testing.T) {
	cal, err := Aggregate([]types.PredictionRecord{
		rec("T1", "2025-04-25", 0.9, "Power Outage"),
		rec("T2", "2025-04-25", 0.4, "Power Outage"),
		rec("T3", "2025-04-25", 0.1, "Hardware Malfunction"),
	})
	require.NoError(t, err)

	day, ok := cal.Get("2025-04-25")
	require.True(t, ok)
	assert.Equal(t, risk.CategoryCritical, day.Risk)
	assert.Equal(t, 3, day.Count)
	assert.Equal(t, "Power Outage", day.PrimaryFailureType)
}

func TestAggregateAllLowStaysLow(t *testing.T) {
	cal, err := Aggregate([]types.PredictionRecord{
		rec("T1", "d", 0.0, "x"),
		rec("T2", "d", 0.2, "x"),
	})
	require.NoError(t, err)
	day, _ := cal.Get("d")
	assert.Equal(t, risk.CategoryLow, day.Risk)
}

func TestAggregatePreservesTowerOrderAndDuplicates(t *testing.T) {
	cal, err := Aggregate([]types.PredictionRecord{
		rec("T2", "d", 0.5, "a"),
		rec("T1", "d", 0.5, "a"),
		rec("T2", "d", 0.5, "a"),
	})
	require.NoError(t, err)
	day, _ := cal.Get("d")
	assert.Equal(t, []string{"T2", "T1", "T2"}, day.TowerIDs)
	assert.Equal(t, 3, day.Count)
}

func TestAggregatePrimaryTypeTieBreak(t *testing.T) {
	tests := []struct {
		name     string
		types    []string
		expected string
	}{
		{name: "first seen wins a tie", types: []string{"Power Outage", "Hardware Malfunction"}, expected: "Power Outage"},
		{name: "majority wins", types: []string{"Power Outage", "Hardware Malfunction", "Hardware Malfunction"}, expected: "Hardware Malfunction"},
		{name: "tie after interleaving", types: []string{"B", "A", "A", "B"}, expected: "B"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var in []types.PredictionRecord
			for _, ft := range tc.types {
				in = append(in, rec("T", "d", 0.5, ft))
			}
			cal, err := Aggregate(in)
			require.NoError(t, err)
			day, _ := cal.Get("d")
			if day.PrimaryFailureType != tc.expected {
				t.Fatalf("primary type\nwant: %s\n got: %s", tc.expected, day.PrimaryFailureType)
			}
		})
	}
}

func TestAggregateMultiDateGrouping(t *testing.T) {
	cal, err := Aggregate([]types.PredictionRecord{
		rec("T1", "2025-04-22", 0.65, "Signal Interference"),
		rec("T2", "2025-04-21", 0.35, "Power Outage"),
		rec("T3", "2025-04-22", 0.2, "Weather Damage"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-04-22", "2025-04-21"}, cal.Dates())

	first, _ := cal.Get("2025-04-22")
	assert.Equal(t, DaySummary{
		Date:               "2025-04-22",
		Count:              2,
		Risk:               risk.CategoryHigh,
		TowerIDs:           []string{"T1", "T3"},
		PrimaryFailureType: "Signal Interference",
	}, first)

	second, _ := cal.Get("2025-04-21")
	assert.Equal(t, DaySummary{
		Date:               "2025-04-21",
		Count:              1,
		Risk:               risk.CategoryMedium,
		TowerIDs:           []string{"T2"},
		PrimaryFailureType: "Power Outage",
	}, second)
}

func TestAggregateMalformedRecordFailsAtomically(t *testing.T) {
	cal, err := Aggregate([]types.PredictionRecord{
		rec("T1", "2025-04-21", 0.5, "a"),
		rec("T2", "2025-04-22", 1.5, "a"),
	})
	assert.Nil(t, cal)

	var rangeErr *risk.OutOfRangeError
	require.True(t, errors.As(err, &rangeErr), "expected OutOfRangeError, got %v", err)
	assert.Equal(t, 1.5, rangeErr.Score)
	assert.Contains(t, err.Error(), `tower "T2"`)
}

func TestAggregateReportsFirstBadRecordInInputOrder(t *testing.T) {
	_, err := Aggregate([]types.PredictionRecord{
		rec("T1", "2025-04-21", 0.2, "a"),
		rec("T2", "2025-04-22", -0.1, "a"),
		rec("T3", "2025-04-21", 2, "a"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1 ")
	assert.Contains(t, err.Error(), `tower "T2"`)
}

func TestAggregateNaNFails(t *testing.T) {
	_, err := Aggregate([]types.PredictionRecord{rec("T1", "d", math.NaN(), "a")})
	var scoreErr *risk.InvalidScoreError
	require.ErrorAs(t, err, &scoreErr)
}

func TestAggregateDeterministic(t *testing.T) {
	in := []types.PredictionRecord{
		rec("T1", "2025-04-21", 0.7, "a"),
		rec("T2", "2025-04-22", 0.1, "b"),
		rec("T3", "2025-04-21", 0.3, "b"),
		rec("T4", "2025-04-23", 0.95, "c"),
	}
	a, err := Aggregate(in)
	require.NoError(t, err)
	b, err := Aggregate(in)
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.Equal(t, string(ja), string(jb))
	assert.Equal(t, a.Days(), b.Days())
}

func TestCalendarJSONKeepsOrder(t *testing.T) {
	cal, err := Aggregate([]types.PredictionRecord{
		rec("T1", "2025-04-23", 0.1, "a"),
		rec("T2", "2025-04-21", 0.1, "a"),
	})
	require.NoError(t, err)
	raw, err := json.Marshal(cal)
	require.NoError(t, err)
	assert.Equal(t,
		`{"2025-04-23":{"date":"2025-04-23","count":1,"risk":"low","towers":["T1"],"primary_type":"a"},`+
			`"2025-04-21":{"date":"2025-04-21","count":1,"risk":"low","towers":["T2"],"primary_type":"a"}}`,
		string(raw))
}

func TestFailingOnly(t *testing.T) {
	yes, no := true, false
	in := []types.PredictionRecord{
		{TowerID: "T1", PredictedFailure: &yes},
		{TowerID: "T2", PredictedFailure: &no},
		{TowerID: "T3"},
	}
	out := FailingOnly(in)
	require.Len(t, out, 2)
	assert.Equal(t, "T1", out[0].TowerID)
	assert.Equal(t, "T3", out[1].TowerID)
}

func TestCalendarAtLeast(t *testing.T) {
	cal, err := Aggregate([]types.PredictionRecord{
		rec("T1", "2025-04-23", 0.9, "a"),
		rec("T2", "2025-04-21", 0.1, "a"),
		rec("T3", "2025-04-22", 0.65, "a"),
	})
	require.NoError(t, err)

	high := cal.AtLeast(risk.CategoryHigh)
	assert.Equal(t, []string{"2025-04-23", "2025-04-22"}, high.Dates())
	assert.Equal(t, 3, cal.Len())
	assert.Equal(t, cal.Dates(), cal.AtLeast(risk.CategoryLow).Dates())
}
