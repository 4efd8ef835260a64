package report

import (
	"fmt"
	"io"

	"github.com/phillip-england/locsetup/internal/tasks"
	"github.com/xuri/excelize/v2"
)

const (
	TasksSheet   = "Tasks"
	MissingSheet = "Missing Headers"
)

var WorkbookHeader = []string{"Location", "Subtask", "Key", "Field", "Value"}

// Rows flattens tasks into one row per display item. Subtasks without display items still
// get a row so feature setups show up.
func Rows(list []tasks.Task) [][]string {
	var rows [][]string
	for _, t := range list {
		name := t.Name()
		for _, e := range t.Entries() {
			if len(e.Subtask.Display) == 0 {
				rows = append(rows, []string{name, e.Subtask.Title, e.Key, "", ""})
				continue
			}
			for _, item := range e.Subtask.Display {
				rows = append(rows, []string{name, e.Subtask.Title, e.Key, item.Key, item.Value})
			}
		}
	}
	return rows
}

func WriteWorkbook(w io.Writer, snap tasks.Snapshot) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), TasksSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeSheet(f, TasksSheet, WorkbookHeader, Rows(snap.Tasks), bold); err != nil {
		return err
	}
	for col, width := range map[string]float64{"A": 32, "B": 26, "C": 26, "D": 16, "E": 48} {
		if err := f.SetColWidth(TasksSheet, col, col, width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	if len(snap.MissingHeaders) > 0 {
		if _, err := f.NewSheet(MissingSheet); err != nil {
			return fmt.Errorf("add sheet: %w", err)
		}
		missing := make([][]string, len(snap.MissingHeaders))
		for i, h := range snap.MissingHeaders {
			missing[i] = []string{h}
		}
		if err := writeSheet(f, MissingSheet, []string{"Header"}, missing, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, headerStyle int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, rowNum, err)
	}
	return nil
}
