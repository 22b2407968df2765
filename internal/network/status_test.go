package network

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tower-insights-go/internal/types"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.SystemHealth)
	assert.NotNil(t, s.PriorityTowers)
}

func TestSummarizeCountsAndHealth(t *testing.T) {
	towers := []types.Tower{
		{ID: "T1", Status: types.StatusOperational, SignalStrength: 90, FailureProbability: 10},
		{ID: "T2", Status: types.StatusAtRisk, SignalStrength: 70, FailureProbability: 40,
			FailureHistory: []types.FailureEvent{{Reason: "Power failure"}, {Reason: "Vandalism"}}},
		{ID: "T3", Status: types.StatusFailed, SignalStrength: 55, FailureProbability: 80},
		{ID: "T4", Status: types.StatusOperational, SignalStrength: 85, FailureProbability: 60},
	}

	s := Summarize(towers)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Operational)
	assert.Equal(t, 1, s.AtRisk)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 50, s.OperationalPct)
	assert.Equal(t, 25, s.FailedPct)
	assert.InDelta(t, 75.0, s.AvgSignal, 1e-9)
	assert.Equal(t, 72, s.SystemHealth)

	require.Len(t, s.PriorityTowers, 3)
	assert.Equal(t, "T2", s.PriorityTowers[0].ID)
	assert.Equal(t, "Power failure", s.PriorityTowers[0].LastIssue)
	assert.Equal(t, "None", s.PriorityTowers[1].LastIssue)
	assert.Equal(t, "T4", s.PriorityTowers[2].ID)
}

func TestSummarizeCapsPriorityTowers(t *testing.T) {
	var towers []types.Tower
	for i := 0; i < 8; i++ {
		towers = append(towers, types.Tower{ID: fmt.Sprintf("T%d", i), Status: types.StatusFailed, SignalStrength: 50})
	}
	s := Summarize(towers)
	require.Len(t, s.PriorityTowers, maxPriorityTowers)
	assert.Equal(t, "T0", s.PriorityTowers[0].ID)
	assert.Equal(t, 50-8*3, s.SystemHealth)
}
