package report

import (
	"bytes"
	"net/http"

	"Storey/internal/calc/drift"
	"Storey/internal/calc/torsion"
	"Storey/internal/check"
	"Storey/internal/engine"
	"Storey/internal/table"

	"go.uber.org/zap"
)

// Request is a check request with the report header fields.
type Request struct {
	check.Request
	Meta
}

type Handler struct {
	Runner *check.Runner
	Limit  float64
}

// PDF runs the drift and torsion checks and answers the report as PDF.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	req, tables, runID, ok := h.run(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, req.Meta, tables...); err != nil {
		h.Runner.Log.Error("render pdf", zap.String("run_id", runID), zap.Error(err))
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"report.pdf\"")
	w.Header().Set("X-Run-ID", runID)
	buf.WriteTo(w)
}

// Workbook runs the drift and torsion checks and answers both tables as an
// Excel workbook.
func (h *Handler) Workbook(w http.ResponseWriter, r *http.Request) {
	_, tables, runID, ok := h.run(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, tables...); err != nil {
		h.Runner.Log.Error("render workbook", zap.String("run_id", runID), zap.Error(err))
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"results.xlsx\"")
	w.Header().Set("X-Run-ID", runID)
	buf.WriteTo(w)
}

// run answers the error itself and reports ok=false when the checks fail.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) (Request, []table.Table, string, bool) {
	var req Request
	if err := check.Decode(w, r, &req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return req, nil, "", false
	}
	limit := drift.RequestLimit(req.Request, h.Limit)
	if err := drift.ValidateLimit(limit); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, nil, "", false
	}

	var (
		dr drift.Report
		tr torsion.Report
	)
	runID, err := h.Runner.Use(r.Context(), req.Request, func(eh *engine.Handle) error {
		var err error
		if dr, err = drift.Check(r.Context(), eh, limit); err != nil {
			return err
		}
		tr, err = torsion.Check(r.Context(), eh)
		return err
	})
	if err != nil {
		h.Runner.WriteError(w, runID, err)
		return req, nil, runID, false
	}
	h.Runner.LogFailures(runID, dr.Failures)
	h.Runner.LogFailures(runID, tr.Failures)
	return req, []table.Table{dr.Table(), tr.Table()}, runID, true
}
