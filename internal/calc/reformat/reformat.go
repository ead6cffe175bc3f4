// Package reformat ranks an exported story drift table by demand-capacity
// ratio and appends the ranking to the same workbook.
package reformat

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"Storey/internal/calc/combo"

	"github.com/xuri/excelize/v2"
)

const (
	SortedSheet      = "Drift Sorted"
	ComboColumn      = "Load Case/Combo"
	DriftColumn      = "Drift"
	InitialRowColumn = "Initial Row"
	DCRColumn        = "DCR"

	// MaxDrift is the allowable drift used for DCR in exported tables.
	MaxDrift = 0.01

	headerRow = 2 // spreadsheet row holding column names; row 1 is the table title
)

// titleRows are data positions, counted below the header, that the export
// fills with titles and units instead of results.
var titleRows = []int{0, 2}

var (
	ErrNoHeader      = errors.New("drift table header not found")
	ErrMissingColumn = errors.New("drift table column missing")
	ErrBadValue      = errors.New("drift table value invalid")
)

type Row struct {
	InitialRow int      `json:"initial_row"`
	Cells      []string `json:"cells"`
	Drift      float64  `json:"drift"`
	DCR        float64  `json:"dcr"`

	numeric []bool // cells stored as numbers in the source sheet
}

// Sheet is a drift table with the original column names; Cells of every Row
// line up with Header.
type Sheet struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// Extract reads the rows of an exported drift table sheet as returned by
// excelize GetRows, dropping the title rows.
func Extract(rows [][]string) (Sheet, error) {
	if len(rows) < headerRow {
		return Sheet{}, ErrNoHeader
	}
	header := trimHeader(rows[headerRow-1])
	if len(header) == 0 {
		return Sheet{}, ErrNoHeader
	}

	s := Sheet{Header: header, Rows: []Row{}}
	for i, cells := range rows[headerRow:] {
		if isTitleRow(i) {
			continue
		}
		s.Rows = append(s.Rows, Row{
			InitialRow: headerRow + i + 1,
			Cells:      pad(cells, len(header)),
		})
	}
	return s, nil
}

// ParseSorted reads a sheet previously written by Reformat.
func ParseSorted(rows [][]string) (Sheet, error) {
	if len(rows) == 0 {
		return Sheet{}, ErrNoHeader
	}
	header := trimHeader(rows[0])
	if len(header) < 2 || header[0] != InitialRowColumn || header[len(header)-1] != DCRColumn {
		return Sheet{}, fmt.Errorf("%w: not a %q sheet", ErrNoHeader, SortedSheet)
	}
	inner := header[1 : len(header)-1]

	s := Sheet{Header: inner, Rows: []Row{}}
	for i, cells := range rows[1:] {
		cells = pad(cells, len(header))
		n, err := strconv.Atoi(strings.TrimSpace(cells[0]))
		if err != nil {
			return Sheet{}, fmt.Errorf("%w: row %d: initial row %q", ErrBadValue, i+2, cells[0])
		}
		s.Rows = append(s.Rows, Row{InitialRow: n, Cells: cells[1 : len(header)-1]})
	}
	return s, nil
}

// Drifts keeps the rows of drift combinations, computes their DCR against
// MaxDrift and sorts them by DCR, largest first.
func (s Sheet) Drifts() (Sheet, error) {
	ci := s.column(ComboColumn)
	di := s.column(DriftColumn)
	if ci < 0 {
		return Sheet{}, fmt.Errorf("%w: %q", ErrMissingColumn, ComboColumn)
	}
	if di < 0 {
		return Sheet{}, fmt.Errorf("%w: %q", ErrMissingColumn, DriftColumn)
	}

	out := Sheet{Header: s.Header, Rows: []Row{}}
	for _, r := range s.Rows {
		if !combo.IsDrift(r.Cells[ci]) {
			continue
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(r.Cells[di]), 64)
		if err != nil {
			return Sheet{}, fmt.Errorf("%w: row %d: drift %q is not a number", ErrBadValue, r.InitialRow, r.Cells[di])
		}
		r.Drift = d
		r.DCR = d / MaxDrift
		out.Rows = append(out.Rows, r)
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].DCR > out.Rows[j].DCR
	})
	return out, nil
}

// Reformat ranks the drift table on the first sheet of f and writes the
// result to a new sheet, returning its name. Existing sheets are untouched.
func Reformat(f *excelize.File) (string, error) {
	src := f.GetSheetName(0)
	if src == "" {
		return "", fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(src, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", fmt.Errorf("read %q: %w", src, err)
	}
	s, err := Extract(rows)
	if err != nil {
		return "", err
	}
	if err := s.markNumeric(f, src); err != nil {
		return "", err
	}
	sorted, err := s.Drifts()
	if err != nil {
		return "", err
	}

	name := freeSheetName(f, SortedSheet)
	if _, err := f.NewSheet(name); err != nil {
		return "", fmt.Errorf("add sheet %q: %w", name, err)
	}
	if err := sorted.write(f, name); err != nil {
		return "", err
	}
	return name, nil
}

// ReformatFile applies Reformat to the workbook at path in place.
func ReformatFile(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name, err := Reformat(f)
	if err != nil {
		return "", err
	}
	if err := f.Save(); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return name, nil
}

func (s Sheet) write(f *excelize.File, sheet string) error {
	header := make([]any, 0, len(s.Header)+2)
	header = append(header, InitialRowColumn)
	for _, h := range s.Header {
		header = append(header, h)
	}
	header = append(header, DCRColumn)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	di := s.column(DriftColumn)
	for i, r := range s.Rows {
		cells := make([]any, 0, len(r.Cells)+2)
		cells = append(cells, r.InitialRow)
		for j, c := range r.Cells {
			switch {
			case j == di:
				cells = append(cells, r.Drift)
			case j < len(r.numeric) && r.numeric[j]:
				v, _ := strconv.ParseFloat(c, 64)
				cells = append(cells, v)
			case c == "":
				cells = append(cells, nil)
			default:
				cells = append(cells, c)
			}
		}
		cells = append(cells, r.DCR)

		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

// markNumeric records which cells of s hold numbers in sheet src, so they
// are written back as numbers rather than text.
func (s Sheet) markNumeric(f *excelize.File, src string) error {
	for i := range s.Rows {
		r := &s.Rows[i]
		r.numeric = make([]bool, len(r.Cells))
		for j, c := range r.Cells {
			if c == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, r.InitialRow)
			if err != nil {
				return err
			}
			t, err := f.GetCellType(src, axis)
			if err != nil {
				return fmt.Errorf("read %q %s: %w", src, axis, err)
			}
			if t != excelize.CellTypeUnset && t != excelize.CellTypeNumber {
				continue
			}
			_, err = strconv.ParseFloat(c, 64)
			r.numeric[j] = err == nil
		}
	}
	return nil
}

func (s Sheet) column(name string) int {
	for i, h := range s.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func freeSheetName(f *excelize.File, base string) string {
	taken := make(map[string]bool)
	for _, n := range f.GetSheetList() {
		taken[strings.ToLower(n)] = true
	}
	if !taken[strings.ToLower(base)] {
		return base
	}
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i)
		if !taken[strings.ToLower(name)] {
			return name
		}
	}
}

func isTitleRow(i int) bool {
	for _, t := range titleRows {
		if t == i {
			return true
		}
	}
	return false
}

// trimHeader drops trailing empty header cells.
func trimHeader(h []string) []string {
	n := len(h)
	for n > 0 && strings.TrimSpace(h[n-1]) == "" {
		n--
	}
	out := make([]string, n)
	copy(out, h[:n])
	return out
}

func pad(cells []string, n int) []string {
	out := make([]string, n)
	copy(out, cells)
	return out
}
