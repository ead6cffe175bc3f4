package drift

import (
	"net/http"

	"Storey/internal/check"
	"Storey/internal/engine"
	"Storey/internal/table"
)

type Handler struct {
	Runner *check.Runner
	// Limit applies when a request names none; zero means DefaultLimit.
	Limit float64
}

type Result struct {
	Report
	Table table.Table `json:"table"`
}

// RequestLimit is the limit named by req, else fallback, else DefaultLimit.
func RequestLimit(req check.Request, fallback float64) float64 {
	if req.Limit != nil {
		return *req.Limit
	}
	if fallback != 0 {
		return fallback
	}
	return DefaultLimit
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	req, err := check.DecodeRequest(w, r)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	limit := RequestLimit(req, h.Limit)
	if err := ValidateLimit(limit); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var rep Report
	runID, err := h.Runner.Use(r.Context(), req, func(eh *engine.Handle) error {
		var err error
		rep, err = Check(r.Context(), eh, limit)
		return err
	})
	if err != nil {
		h.Runner.WriteError(w, runID, err)
		return
	}
	h.Runner.LogFailures(runID, rep.Failures)
	h.Runner.WriteJSON(w, runID, Result{Report: rep, Table: rep.Table()})
}
