package check

import (
	"net/http"

	"Storey/internal/calc/combo"
	"Storey/internal/engine"

	"github.com/gorilla/mux"
)

type CombosResult struct {
	Model             string   `json:"model"`
	Combinations      []string `json:"combinations"`
	DriftCombinations []string `json:"drift_combinations"`
}

// Combos lists the load combinations of a model held by the engine.
func (r *Runner) Combos(w http.ResponseWriter, req *http.Request) {
	model := mux.Vars(req)["model"]
	var res CombosResult
	runID, err := r.Use(req.Context(), Request{Model: model}, func(h *engine.Handle) error {
		names, err := h.Combinations(req.Context())
		if err != nil {
			return err
		}
		res = CombosResult{Model: model, Combinations: names, DriftCombinations: combo.Filter(names)}
		return nil
	})
	if err != nil {
		r.WriteError(w, runID, err)
		return
	}
	if res.Combinations == nil {
		res.Combinations = []string{}
	}
	r.WriteJSON(w, runID, res)
}
