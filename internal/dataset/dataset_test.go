package dataset

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tower-insights-go/internal/aggregator"
	"tower-insights-go/internal/types"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, addr, &row))
	}
	path := filepath.Join(t.TempDir(), "predictions.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadPredictionsDetectsColumns(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Location", "Tower ID", "Date", "Failure Probability", "Failure Type", "Predicted Failure"},
		{"North Region", "TWR001", "2025-04-21", "0.82", "Power Outage", "true"},
		{"", "", "2025-04-21", "0.5", "x", "true"},
		{"Urban Zone", "TWR002", "2025-04-22T08:00:00Z", "45%", "", "false"},
	})

	recs, err := LoadPredictions(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "TWR001", recs[0].TowerID)
	assert.Equal(t, "North Region", recs[0].Location)
	assert.Equal(t, 0.82, recs[0].FailureScore)
	assert.Equal(t, "Power Outage", recs[0].FailureType)
	require.NotNil(t, recs[0].PredictedFailure)
	assert.True(t, *recs[0].PredictedFailure)

	assert.Equal(t, "2025-04-22", recs[1].Date)
	assert.InDelta(t, 0.45, recs[1].FailureScore, 1e-9)
	assert.Equal(t, "Unknown", recs[1].FailureType)
	assert.False(t, recs[1].Counted())
}

func workbookBytes(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, addr, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadPredictionsDateCells(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"Tower", "Date", "Failure Probability", "Failure Type", "Predicted Failure"},
		{"TWR001", time.Date(2025, 4, 25, 9, 30, 0, 0, time.UTC), 0.9, "Power Outage", true},
		{"TWR002", time.Date(2025, 4, 26, 0, 0, 0, 0, time.UTC), 0.45, "Weather Damage", false},
		{"TWR003", "2025-04-25 14:00:00", "80%", "Power Outage", "true"},
	})

	recs, err := ReadPredictions(buf)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "2025-04-25", recs[0].Date)
	assert.Equal(t, 0.9, recs[0].FailureScore)
	assert.True(t, recs[0].Counted())
	assert.Equal(t, "2025-04-26", recs[1].Date)
	assert.False(t, recs[1].Counted())
	assert.Equal(t, "2025-04-25", recs[2].Date)
	assert.InDelta(t, 0.8, recs[2].FailureScore, 1e-9)

	cal, err := aggregator.Aggregate(recs)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-04-25", "2025-04-26"}, cal.Dates())
}

func TestReadPredictionsRejectsUnparseableDate(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"tower_id", "date", "failure_probability"},
		{"T1", "2025-04-21", 0.3},
		{"T2", "04-25-25", 0.3},
	})
	_, err := ReadPredictions(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Contains(t, err.Error(), "invalid date")
	assert.ErrorIs(t, err, ErrInvalidRow)
}

func TestLoadPredictionsRequiresColumns(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Name", "Notes"},
		{"a", "b"},
	})
	_, err := LoadPredictions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestLoadPredictionsBadProbability(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"tower_id", "date", "failure_probability"},
		{"T1", "2025-04-21", "high"},
	})
	_, err := LoadPredictions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestExportCalendarRoundTrip(t *testing.T) {
	cal, err := aggregator.Aggregate([]types.PredictionRecord{
		{TowerID: "T1", Date: "2025-04-22", FailureScore: 0.9, FailureType: "Power Outage"},
		{TowerID: "T2", Date: "2025-04-22", FailureScore: 0.2, FailureType: "Power Outage"},
		{TowerID: "T3", Date: "2025-04-21", FailureScore: 0.4, FailureType: "Weather Damage"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportCalendar(cal, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(calendarSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Failing Towers", "Risk", "Towers", "Primary Failure Type"}, rows[0])
	assert.Equal(t, []string{"2025-04-22", "2", "critical", "T1, T2", "Power Outage"}, rows[1])
	assert.Equal(t, []string{"2025-04-21", "1", "medium", "T3", "Weather Damage"}, rows[2])
}
