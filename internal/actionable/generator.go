package actionable

import (
	"fmt"

	"tower-insights-go/internal/aggregator"
	"tower-insights-go/internal/risk"
	"tower-insights-go/internal/types"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// DayDetail is one row of the day-detail panel.
type DayDetail struct {
	TowerID        string        `json:"tower_id"`
	Location       string        `json:"location"`
	RiskScore      int           `json:"risk_score"`
	Risk           risk.Category `json:"risk"`
	FailureType    string        `json:"failure_type"`
	Recommendation string        `json:"recommendation"`
}

// Generate turns the worst day of a calendar into an action card.
func Generate(cal *aggregator.Calendar) ActionCard {
	var worst *aggregator.DaySummary
	for _, d := range cal.Days() {
		if worst == nil || d.Risk.Rank() > worst.Risk.Rank() ||
			(d.Risk == worst.Risk && d.Count > worst.Count) {
			worst = &d
		}
	}
	if worst != nil && worst.Risk.Rank() >= risk.CategoryHigh.Rank() {
		return ActionCard{
			Insight: fmt.Sprintf("%d tower(s) at %s risk on %s, mostly %s", worst.Count, worst.Risk, worst.Date, worst.PrimaryFailureType),
			Action:  recommendationFor(worst.Risk, worst.PrimaryFailureType),
			Impact:  "Prevent service outages in affected coverage areas",
		}
	}
	return ActionCard{
		Insight: "No high-risk failure pattern in the forecast window",
		Action:  "Continue routine monitoring",
		Impact:  "Low immediate intervention",
	}
}

// Details lists the contributing records for one day, in summary order.
// Records for other dates are ignored.
func Details(day aggregator.DaySummary, records []types.PredictionRecord) ([]DayDetail, error) {
	out := make([]DayDetail, 0, day.Count)
	for _, r := range records {
		if r.Date != day.Date {
			continue
		}
		c, err := risk.Classify(r.FailureScore)
		if err != nil {
			return nil, fmt.Errorf("tower %q: %w", r.TowerID, err)
		}
		out = append(out, DayDetail{
			TowerID:        r.TowerID,
			Location:       r.Location,
			RiskScore:      risk.ToPercent(r.FailureScore),
			Risk:           c,
			FailureType:    r.FailureType,
			Recommendation: recommendationFor(c, r.FailureType),
		})
	}
	return out, nil
}

func recommendationFor(c risk.Category, failureType string) string {
	switch c {
	case risk.CategoryCritical:
		return fmt.Sprintf("Dispatch field crew within 24h; inspect for %s and stage backup power", failureType)
	case risk.CategoryHigh:
		return fmt.Sprintf("Schedule preventive maintenance this week targeting %s", failureType)
	case risk.CategoryMedium:
		return "Increase telemetry polling and review at next maintenance window"
	default:
		return "No action required"
	}
}
