package torsion

import (
	"net/http"

	"Storey/internal/check"
	"Storey/internal/engine"
	"Storey/internal/table"
)

type Handler struct {
	Runner *check.Runner
}

type Result struct {
	Report
	Table table.Table `json:"table"`
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	req, err := check.DecodeRequest(w, r)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	var rep Report
	runID, err := h.Runner.Use(r.Context(), req, func(eh *engine.Handle) error {
		var err error
		rep, err = Check(r.Context(), eh)
		return err
	})
	if err != nil {
		h.Runner.WriteError(w, runID, err)
		return
	}
	h.Runner.LogFailures(runID, rep.Failures)
	h.Runner.WriteJSON(w, runID, Result{Report: rep, Table: rep.Table()})
}
