package types

import (
	"fmt"
	"strings"
	"time"
)

// PredictionRecord is one tower's predicted failure outcome for one calendar date.
type PredictionRecord struct {
	TowerID          string  `json:"tower_id"`
	Location         string  `json:"location,omitempty"`
	Date             string  `json:"date"`
	FailureScore     float64 `json:"failure_score"`
	FailureType      string  `json:"failure_type"`
	PredictedFailure *bool   `json:"predicted_failure,omitempty"`
}

// Counted reports whether the record takes part in a day's failure tally.
// A record without an explicit flag is counted.
func (r PredictionRecord) Counted() bool {
	return r.PredictedFailure == nil || *r.PredictedFailure
}

// DateLayout is the calendar bucket key format.
const DateLayout = "2006-01-02"

// NormalizeDate trims a timestamp down to its calendar date. A value whose
// first ten bytes are a date followed by 'T' or ' ' is cut there; anything
// else passes through unchanged.
func NormalizeDate(s string) string {
	n := len(DateLayout)
	if len(s) > n && (s[n] == 'T' || s[n] == ' ') {
		if _, err := time.Parse(DateLayout, s[:n]); err == nil {
			return s[:n]
		}
	}
	return s
}

// ParseDate normalizes s and checks that the result is a real calendar date.
func ParseDate(s string) (string, error) {
	d := NormalizeDate(strings.TrimSpace(s))
	if _, err := time.Parse(DateLayout, d); err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

type TowerStatus string

const (
	StatusOperational TowerStatus = "operational"
	StatusAtRisk      TowerStatus = "at-risk"
	StatusFailed      TowerStatus = "failed"
)

type FailureEvent struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Reason   string `json:"reason"`
	Duration int    `json:"duration_hours"`
}

// Tower is the map/statistics view of a single site. FailureProbability is
// on the 0-100 display scale.
type Tower struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Location           string         `json:"location"`
	Status             TowerStatus    `json:"status"`
	SignalStrength     int            `json:"signal_strength"`
	FailureProbability int            `json:"failure_probability"`
	LastMaintenance    string         `json:"last_maintenance"`
	NextMaintenance    string         `json:"next_maintenance,omitempty"`
	FailureHistory     []FailureEvent `json:"failure_history"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
