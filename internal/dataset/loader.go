package dataset

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tower-insights-go/internal/logger"
	"tower-insights-go/internal/risk"
	"tower-insights-go/internal/types"
)

// ErrInvalidRow marks a data row whose cells cannot be read as a prediction.
var ErrInvalidRow = errors.New("invalid row")

type columns struct {
	tower, date, score, failureType, predicted, location int
}

// detectColumns finds prediction columns by header heuristics.
func detectColumns(header []string) columns {
	c := columns{tower: -1, date: -1, score: -1, failureType: -1, predicted: -1, location: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "tower") || l == "id" || strings.Contains(l, "site"):
			if c.tower == -1 {
				c.tower = i
			}
		case strings.Contains(l, "date") || strings.Contains(l, "day"):
			if c.date == -1 {
				c.date = i
			}
		case strings.Contains(l, "type") || strings.Contains(l, "reason"):
			if c.failureType == -1 {
				c.failureType = i
			}
		case strings.Contains(l, "probab") || strings.Contains(l, "score") || l == "value" || strings.Contains(l, "risk"):
			if c.score == -1 {
				c.score = i
			}
		case strings.Contains(l, "predicted") || l == "failure" || strings.Contains(l, "failing"):
			if c.predicted == -1 {
				c.predicted = i
			}
		case strings.Contains(l, "location") || strings.Contains(l, "region"):
			if c.location == -1 {
				c.location = i
			}
		}
	}
	return c
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// LoadPredictions reads prediction records from the first sheet of an xlsx file.
func LoadPredictions(path string) ([]types.PredictionRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return readPredictions(f)
}

// ReadPredictions is LoadPredictions over an already open stream.
func ReadPredictions(r io.Reader) ([]types.PredictionRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}
	defer f.Close()
	return readPredictions(f)
}

func readPredictions(f *excelize.File) ([]types.PredictionRecord, error) {
	log := logger.New().Component("dataset.loader")
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	// raw values keep date cells as serials instead of locale-formatted text
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}
	cols := detectColumns(rows[0])
	if cols.tower == -1 || cols.date == -1 || cols.score == -1 {
		return nil, fmt.Errorf("missing required columns (tower, date, probability) in header %v", rows[0])
	}
	log.WithField("columns", fmt.Sprintf("%+v", cols)).Debug("detected prediction columns")

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var out []types.PredictionRecord
	skipped := 0
	for i, r := range rows {
		if i == 0 {
			continue
		}
		tower := cell(r, cols.tower)
		rawDate := cell(r, cols.date)
		if tower == "" || rawDate == "" {
			skipped++
			continue
		}
		date, err := dateCell(rawDate, date1904)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrInvalidRow, i+1, err)
		}
		rawScore := cell(r, cols.score)
		score, err := strconv.ParseFloat(strings.TrimSuffix(rawScore, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w %d: invalid probability %q: %w", ErrInvalidRow, i+1, rawScore, err)
		}
		if strings.HasSuffix(rawScore, "%") {
			score = risk.FromPercent(score)
		}
		rec := types.PredictionRecord{
			TowerID:      tower,
			Location:     cell(r, cols.location),
			Date:         date,
			FailureScore: score,
			FailureType:  cell(r, cols.failureType),
		}
		if rec.FailureType == "" {
			rec.FailureType = "Unknown"
		}
		if v := cell(r, cols.predicted); v != "" {
			b, err := strconv.ParseBool(strings.ToLower(v))
			if err != nil {
				return nil, fmt.Errorf("%w %d: invalid predicted flag %q: %w", ErrInvalidRow, i+1, v, err)
			}
			rec.PredictedFailure = &b
		}
		out = append(out, rec)
	}
	log.WithFields(map[string]interface{}{
		"records": len(out),
		"skipped": skipped,
	}).Info("prediction dataset loaded")
	return out, nil
}

// dateCell turns a raw date cell into a calendar key. Numeric cells are Excel
// date serials; text cells must hold an ISO date or timestamp.
func dateCell(raw string, date1904 bool) (string, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return "", fmt.Errorf("invalid date serial %q: %w", raw, err)
		}
		return t.Format(types.DateLayout), nil
	}
	return types.ParseDate(raw)
}
