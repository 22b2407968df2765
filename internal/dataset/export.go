package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"tower-insights-go/internal/aggregator"
	"tower-insights-go/internal/logger"
)

const calendarSheet = "Calendar"

var calendarHeader = []interface{}{"Date", "Failing Towers", "Risk", "Towers", "Primary Failure Type"}

// ExportCalendar writes the calendar as an xlsx workbook with one row per
// day, in calendar order.
func ExportCalendar(cal *aggregator.Calendar, w io.Writer) error {
	log := logger.New().Component("dataset.export")

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), calendarSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(calendarSheet, "A1", &calendarHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, d := range cal.Days() {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{d.Date, d.Count, string(d.Risk), strings.Join(d.TowerIDs, ", "), d.PrimaryFailureType}
		if err := f.SetSheetRow(calendarSheet, addr, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		log.WithError(err).Error("write workbook failed")
		return fmt.Errorf("write workbook: %w", err)
	}
	log.WithField("days", cal.Len()).Info("calendar exported")
	return nil
}
