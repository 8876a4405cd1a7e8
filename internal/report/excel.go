package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheetWriter appends rows to the sheets of one workbook.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns ...string) error {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row...); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	return nil
}

func (w *sheetWriter) writeRow(values ...interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}

// WriteXLSX renders e as a workbook with a daily sheet and a per-service sheet.
func WriteXLSX(out io.Writer, e *Earnings) error {
	w := newSheetWriter()
	defer w.file.Close()

	if err := w.addSheet("Daily"); err != nil {
		return err
	}
	if err := w.writeHeader("Date", "Appointments", "Revenue"); err != nil {
		return err
	}
	for _, d := range e.Days {
		if err := w.writeRow(d.Date, d.Count, d.Total); err != nil {
			return err
		}
	}
	if err := w.writeRow("Total", e.Count, e.Total); err != nil {
		return err
	}

	if err := w.addSheet("Services"); err != nil {
		return err
	}
	if err := w.writeHeader("Service", "Appointments", "Revenue"); err != nil {
		return err
	}
	for _, s := range e.ByService {
		if err := w.writeRow(s.Service, s.Count, s.Total); err != nil {
			return err
		}
	}

	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
