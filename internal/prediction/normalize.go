package prediction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tower-insights-go/internal/types"
)

const unknownFailureType = "Unknown"

// wirePrediction accepts the field spellings the prediction service variants
// emit. A tower-level object may nest its daily rows under "predictions",
// possibly none.
type wirePrediction struct {
	TowerID            string           `json:"tower_id"`
	TowerIDCamel       string           `json:"towerId"`
	Location           string           `json:"location"`
	Date               string           `json:"date"`
	FailureProbability *float64         `json:"failure_probability"`
	Value              *float64         `json:"value"`
	PredictedFailure   *bool            `json:"predicted_failure"`
	FailureType        json.RawMessage  `json:"failure_type"`
	FailureTypeCamel   string           `json:"failureType"`
	Predictions        []wirePrediction `json:"predictions"`
}

type nestedFailureType struct {
	FailureType     string  `json:"failure_type"`
	TypeProbability float64 `json:"type_probability"`
}

// decodePredictions turns a single object or an array of objects into
// normalized records.
func decodePredictions(body []byte) ([]types.PredictionRecord, error) {
	body = bytes.TrimSpace(body)
	var items []wirePrediction
	switch {
	case len(body) == 0:
		return nil, errors.New("empty payload")
	case body[0] == '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
	default:
		var one wirePrediction
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, err
		}
		items = []wirePrediction{one}
	}

	var out []types.PredictionRecord
	for i, w := range items {
		recs, err := w.normalize(wirePrediction{})
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (w wirePrediction) normalize(parent wirePrediction) ([]types.PredictionRecord, error) {
	tower := firstNonEmpty(w.TowerID, w.TowerIDCamel, parent.TowerID, parent.TowerIDCamel)
	location := firstNonEmpty(w.Location, parent.Location)

	// a tower object with an empty predictions list has nothing to report
	if w.Predictions != nil {
		inherit := wirePrediction{TowerID: tower, Location: location}
		var out []types.PredictionRecord
		for i, p := range w.Predictions {
			recs, err := p.normalize(inherit)
			if err != nil {
				return nil, fmt.Errorf("tower %q prediction %d: %w", tower, i, err)
			}
			out = append(out, recs...)
		}
		return out, nil
	}

	var score float64
	switch {
	case w.FailureProbability != nil:
		score = *w.FailureProbability
	case w.Value != nil:
		score = *w.Value
	default:
		return nil, errors.New("missing failure probability")
	}

	ft, err := failureTypeOf(w.FailureType)
	if err != nil {
		return nil, err
	}
	ft = firstNonEmpty(ft, w.FailureTypeCamel, unknownFailureType)

	return []types.PredictionRecord{{
		TowerID:          tower,
		Location:         location,
		Date:             types.NormalizeDate(w.Date),
		FailureScore:     score,
		FailureType:      ft,
		PredictedFailure: w.PredictedFailure,
	}}, nil
}

func failureTypeOf(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var nested nestedFailureType
	if err := json.Unmarshal(raw, &nested); err != nil {
		return "", fmt.Errorf("failure_type: %w", err)
	}
	return strings.TrimSpace(nested.FailureType), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
