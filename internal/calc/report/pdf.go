package report

import (
	"fmt"
	"io"
	"time"

	"Storey/internal/table"

	"github.com/phpdave11/gofpdf"
)

const DefaultTitle = "Story Drift and Torsion Check"

type Meta struct {
	Project string    `json:"project"`
	Author  string    `json:"author"`
	Title   string    `json:"title"`
	Notes   string    `json:"notes"`
	Date    time.Time `json:"-"`
}

const (
	pageWidth = 190.0 // A4 less 10mm margins
	rowHeight = 6.0
)

// WritePDF writes a report with the meta block followed by each table.
func WritePDF(w io.Writer, meta Meta, tables ...table.Table) error {
	if meta.Title == "" {
		meta.Title = DefaultTitle
	}
	if meta.Date.IsZero() {
		meta.Date = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(meta.Title))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Project: %s", meta.Project)))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Author: %s", meta.Author)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", meta.Date.Format("2006-01-02")))
	pdf.Ln(10)
	if meta.Notes != "" {
		pdf.MultiCell(0, 6, tr(meta.Notes), "", "L", false)
		pdf.Ln(4)
	}

	for _, t := range tables {
		writeTable(pdf, tr, t)
	}
	return pdf.Output(w)
}

func writeTable(pdf *gofpdf.Fpdf, tr func(string) string, t table.Table) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr(t.Sheet))
	pdf.Ln(9)

	if len(t.Columns) == 0 {
		return
	}
	width := pageWidth / float64(len(t.Columns))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(220, 220, 220)
	for _, c := range t.Columns {
		pdf.CellFormat(width, rowHeight, tr(c), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	if len(t.Rows) == 0 {
		pdf.CellFormat(pageWidth, rowHeight, "no results", "1", 1, "C", false, 0, "")
	}
	for _, row := range t.Rows {
		for i := range t.Columns {
			var cell any
			if i < len(row) {
				cell = row[i]
			}
			align := "L"
			if _, ok := cell.(float64); ok {
				align = "R"
			}
			pdf.CellFormat(width, rowHeight, tr(table.Text(cell)), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)
}
