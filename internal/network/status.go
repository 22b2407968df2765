package network

import (
	"math"

	"tower-insights-go/internal/types"
)

const maxPriorityTowers = 5

type PriorityTower struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Location           string            `json:"location"`
	Status             types.TowerStatus `json:"status"`
	SignalStrength     int               `json:"signal_strength"`
	FailureProbability int               `json:"failure_probability"`
	LastIssue          string            `json:"last_issue"`
}

// Status is the network-wide health snapshot shown on the dashboard and fed
// to the assistant as context.
type Status struct {
	Total          int             `json:"total"`
	Operational    int             `json:"operational"`
	AtRisk         int             `json:"at_risk"`
	Failed         int             `json:"failed"`
	OperationalPct int             `json:"operational_pct"`
	AtRiskPct      int             `json:"at_risk_pct"`
	FailedPct      int             `json:"failed_pct"`
	AvgSignal      float64         `json:"avg_signal"`
	SystemHealth   int             `json:"system_health"`
	PriorityTowers []PriorityTower `json:"priority_towers"`
}

func Summarize(towers []types.Tower) Status {
	s := Status{Total: len(towers), PriorityTowers: []PriorityTower{}}
	if len(towers) == 0 {
		return s
	}

	signal := 0
	for _, t := range towers {
		switch t.Status {
		case types.StatusOperational:
			s.Operational++
		case types.StatusAtRisk:
			s.AtRisk++
		case types.StatusFailed:
			s.Failed++
		}
		signal += t.SignalStrength

		if len(s.PriorityTowers) < maxPriorityTowers && (t.FailureProbability > 50 || t.Status != types.StatusOperational) {
			last := "None"
			if len(t.FailureHistory) > 0 {
				last = t.FailureHistory[0].Reason
			}
			s.PriorityTowers = append(s.PriorityTowers, PriorityTower{
				ID:                 t.ID,
				Name:               t.Name,
				Location:           t.Location,
				Status:             t.Status,
				SignalStrength:     t.SignalStrength,
				FailureProbability: t.FailureProbability,
				LastIssue:          last,
			})
		}
	}

	s.OperationalPct = percent(s.Operational, s.Total)
	s.AtRiskPct = percent(s.AtRisk, s.Total)
	s.FailedPct = percent(s.Failed, s.Total)
	s.AvgSignal = float64(signal) / float64(s.Total)
	s.SystemHealth = int(math.Floor(s.AvgSignal - float64(s.Failed*3)))
	return s
}

func percent(n, total int) int {
	return int(math.Round(float64(n) / float64(total) * 100))
}
