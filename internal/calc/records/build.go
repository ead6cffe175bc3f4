package records

import (
	"encoding/json"
	"errors"
	"fmt"

	"Storey/internal/engine"
	"Storey/internal/table"
)

var ErrShapeMismatch = errors.New("engine result arrays differ in length")

// DriftRecord is one story drift for one combination and direction.
type DriftRecord struct {
	Story     string  `json:"story"`
	Combo     string  `json:"combo"`
	Direction string  `json:"direction"`
	Drift     float64 `json:"drift"`
	Ratio     float64 `json:"ratio"`
}

// MarshalJSON writes non-finite drifts and ratios as "inf", "-inf" or "nan".
func (r DriftRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Story     string `json:"story"`
		Combo     string `json:"combo"`
		Direction string `json:"direction"`
		Drift     any    `json:"drift"`
		Ratio     any    `json:"ratio"`
	}{r.Story, r.Combo, r.Direction, table.Value(r.Drift), table.Value(r.Ratio)})
}

// JointRecord is the displacement of one joint at one story.
type JointRecord struct {
	Label string  `json:"label"`
	Story string  `json:"story"`
	Combo string  `json:"combo"`
	DispX float64 `json:"disp_x"`
	DispY float64 `json:"disp_y"`
}

// BuildDriftRecords turns the parallel story drift arrays into records,
// dividing each drift by limit. Input order is kept.
func BuildDriftRecords(combo string, raw engine.StoryDriftResults, limit float64) ([]DriftRecord, error) {
	n := raw.NumberResults
	if err := sameLength(combo, n,
		column{"stories", len(raw.Stories)},
		column{"load cases", len(raw.LoadCases)},
		column{"directions", len(raw.Directions)},
		column{"drifts", len(raw.Drifts)},
	); err != nil {
		return nil, err
	}

	out := make([]DriftRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, DriftRecord{
			Story:     raw.Stories[i],
			Combo:     loadCase(raw.LoadCases[i], combo),
			Direction: raw.Directions[i],
			Drift:     raw.Drifts[i],
			Ratio:     raw.Drifts[i] / limit,
		})
	}
	return out, nil
}

// BuildJointRecords turns the parallel joint displacement arrays into records.
func BuildJointRecords(combo string, raw engine.JointDriftResults) ([]JointRecord, error) {
	n := raw.NumberResults
	if err := sameLength(combo, n,
		column{"labels", len(raw.Labels)},
		column{"stories", len(raw.Stories)},
		column{"load cases", len(raw.LoadCases)},
		column{"disp x", len(raw.DispX)},
		column{"disp y", len(raw.DispY)},
	); err != nil {
		return nil, err
	}

	out := make([]JointRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, JointRecord{
			Label: raw.Labels[i],
			Story: raw.Stories[i],
			Combo: loadCase(raw.LoadCases[i], combo),
			DispX: raw.DispX[i],
			DispY: raw.DispY[i],
		})
	}
	return out, nil
}

type column struct {
	name string
	n    int
}

func sameLength(combo string, want int, cols ...column) error {
	if want < 0 {
		return fmt.Errorf("%w: %q reports %d results", ErrShapeMismatch, combo, want)
	}
	for _, c := range cols {
		if c.n != want {
			return fmt.Errorf("%w: %q has %d %s, want %d", ErrShapeMismatch, combo, c.n, c.name, want)
		}
	}
	return nil
}

func loadCase(reported, requested string) string {
	if reported == "" {
		return requested
	}
	return reported
}
