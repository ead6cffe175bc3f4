// Package report renders result tables as an Excel workbook or a PDF
// document.
package report

import (
	"errors"
	"fmt"
	"io"

	"Storey/internal/table"

	"github.com/xuri/excelize/v2"
)

var ErrNoTables = errors.New("no tables to export")

// Workbook builds a workbook with one sheet per table, in order. The
// default sheet of a new file is reused for the first table.
func Workbook(tables ...table.Table) (*excelize.File, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	f := excelize.NewFile()
	seen := make(map[string]bool, len(tables))
	for i, t := range tables {
		if t.Sheet == "" || seen[t.Sheet] {
			f.Close()
			return nil, fmt.Errorf("sheet name %q is empty or repeated", t.Sheet)
		}
		seen[t.Sheet] = true

		var err error
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), t.Sheet)
		} else {
			_, err = f.NewSheet(t.Sheet)
		}
		if err == nil {
			err = writeSheet(f, t)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", t.Sheet, err)
		}
	}
	return f, nil
}

// WriteWorkbook writes the workbook of tables to w.
func WriteWorkbook(w io.Writer, tables ...table.Table) error {
	f, err := Workbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

// SaveWorkbook writes the workbook of tables to path.
func SaveWorkbook(path string, tables ...table.Table) error {
	f, err := Workbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, t table.Table) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := row
		if err := f.SetSheetRow(t.Sheet, axis, &cells); err != nil {
			return err
		}
	}
	return nil
}
