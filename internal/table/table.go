// Package table holds report tables as they are handed to presentation:
// a fixed column declaration and rows whose numbers are already rounded.
package table

import (
	"math"
	"strconv"
)

type Table struct {
	Sheet   string   `json:"sheet"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func New(sheet string, columns []string, capacity int) Table {
	return Table{Sheet: sheet, Columns: columns, Rows: make([][]any, 0, capacity)}
}

func (t *Table) Append(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	p := math.Pow10(places)
	r := math.Round(v*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return v
	}
	return r
}

// Number is the presentation value of v: a rounded float64, or a string for
// values JSON and spreadsheets cannot hold as numbers.
func Number(v float64, places int) any {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return Round(v, places)
}

// Value is v for JSON encoding: unchanged when finite, otherwise the
// string Number would give.
func Value(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return Number(v, 0)
	}
	return v
}

// Text renders a cell for plain-text output.
func Text(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	}
	return "?"
}
