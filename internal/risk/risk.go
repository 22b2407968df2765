package risk

import (
	"fmt"
	"math"
	"strings"
)

type Category string

const (
	CategoryLow      Category = "low"
	CategoryMedium   Category = "medium"
	CategoryHigh     Category = "high"
	CategoryCritical Category = "critical"
)

// Probability-scale lower bounds, inclusive.
const (
	mediumThreshold   = 0.3
	highThreshold     = 0.6
	criticalThreshold = 0.8
)

// InvalidScoreError is returned for a score that is not a number.
type InvalidScoreError struct {
	Score float64
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("invalid score: %v is not a number", e.Score)
}

// OutOfRangeError is returned for a score outside [0, 1].
type OutOfRangeError struct {
	Score float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("score out of range: %v not in [0, 1]", e.Score)
}

// Classify maps a failure probability in [0, 1] to a risk category.
func Classify(score float64) (Category, error) {
	if math.IsNaN(score) {
		return "", &InvalidScoreError{Score: score}
	}
	switch {
	case score < 0 || score > 1:
		return "", &OutOfRangeError{Score: score}
	case score < mediumThreshold:
		return CategoryLow, nil
	case score < highThreshold:
		return CategoryMedium, nil
	case score < criticalThreshold:
		return CategoryHigh, nil
	default:
		return CategoryCritical, nil
	}
}

// FromPercent converts a 0-100 display value to the probability scale.
func FromPercent(p float64) float64 {
	return p / 100
}

// ToPercent converts a probability to the rounded 0-100 display scale.
func ToPercent(score float64) int {
	return int(math.Round(score * 100))
}

// Rank gives the position of c in the order low < medium < high < critical.
// Unknown categories rank below low.
func (c Category) Rank() int {
	switch c {
	case CategoryLow:
		return 0
	case CategoryMedium:
		return 1
	case CategoryHigh:
		return 2
	case CategoryCritical:
		return 3
	default:
		return -1
	}
}

func (c Category) Valid() bool {
	return c.Rank() >= 0
}

// Worse returns whichever of a and b ranks strictly higher, or a when equal.
func Worse(a, b Category) Category {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown risk category: %q", s)
	}
	return c, nil
}
