package aggregator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"tower-insights-go/internal/risk"
	"tower-insights-go/internal/types"
)

// DaySummary is the aggregated view of all prediction records sharing a date.
type DaySummary struct {
	Date               string        `json:"date"`
	Count              int           `json:"count"`
	Risk               risk.Category `json:"risk"`
	TowerIDs           []string      `json:"towers"`
	PrimaryFailureType string        `json:"primary_type"`
}

// Calendar maps dates to day summaries and remembers the order in which
// dates were first seen.
type Calendar struct {
	dates []string
	days  map[string]DaySummary
}

func newCalendar() *Calendar {
	return &Calendar{days: map[string]DaySummary{}}
}

func (c *Calendar) Len() int { return len(c.dates) }

// Dates returns the bucket keys in first-seen order.
func (c *Calendar) Dates() []string {
	out := make([]string, len(c.dates))
	copy(out, c.dates)
	return out
}

func (c *Calendar) Get(date string) (DaySummary, bool) {
	d, ok := c.days[date]
	return d, ok
}

// Days returns the summaries in calendar order.
func (c *Calendar) Days() []DaySummary {
	out := make([]DaySummary, 0, len(c.dates))
	for _, d := range c.dates {
		out = append(out, c.days[d])
	}
	return out
}

// AtLeast returns a calendar holding only the days whose risk is min or
// worse, in the same order.
func (c *Calendar) AtLeast(min risk.Category) *Calendar {
	out := newCalendar()
	for _, d := range c.dates {
		if day := c.days[d]; day.Risk.Rank() >= min.Rank() {
			out.dates = append(out.dates, d)
			out.days[d] = day
		}
	}
	return out
}

// MarshalJSON encodes the calendar as an object keyed by date, keeping
// first-seen order.
func (c *Calendar) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range c.dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.days[d])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type group struct {
	date    string
	worst   risk.Category
	records []types.PredictionRecord
}

// Aggregate folds prediction records into a per-date calendar. The first
// record with a malformed score, in input order, fails the whole call and no
// calendar is returned.
func Aggregate(records []types.PredictionRecord) (*Calendar, error) {
	var order []*group
	byDate := map[string]*group{}
	for i, r := range records {
		c, err := risk.Classify(r.FailureScore)
		if err != nil {
			return nil, fmt.Errorf("record %d (tower %q, date %s): %w", i, r.TowerID, r.Date, err)
		}
		g, ok := byDate[r.Date]
		if !ok {
			g = &group{date: r.Date, worst: risk.CategoryLow}
			byDate[r.Date] = g
			order = append(order, g)
		}
		g.worst = risk.Worse(g.worst, c)
		g.records = append(g.records, r)
	}

	cal := newCalendar()
	for _, g := range order {
		cal.dates = append(cal.dates, g.date)
		cal.days[g.date] = summarize(g)
	}
	return cal, nil
}

func summarize(g *group) DaySummary {
	towers := make([]string, 0, len(g.records))
	for _, r := range g.records {
		towers = append(towers, r.TowerID)
	}
	return DaySummary{
		Date:               g.date,
		Count:              len(g.records),
		Risk:               g.worst,
		TowerIDs:           towers,
		PrimaryFailureType: primaryType(g.records),
	}
}

// primaryType returns the most frequent failure type. Ties go to the label
// seen first.
func primaryType(records []types.PredictionRecord) string {
	counts := map[string]int{}
	var labels []string
	for _, r := range records {
		if _, ok := counts[r.FailureType]; !ok {
			labels = append(labels, r.FailureType)
		}
		counts[r.FailureType]++
	}
	best := ""
	bestN := 0
	for _, l := range labels {
		if counts[l] > bestN {
			best, bestN = l, counts[l]
		}
	}
	return best
}

// FailingOnly keeps the records that count toward a failure tally.
func FailingOnly(records []types.PredictionRecord) []types.PredictionRecord {
	out := make([]types.PredictionRecord, 0, len(records))
	for _, r := range records {
		if r.Counted() {
			out = append(out, r)
		}
	}
	return out
}
