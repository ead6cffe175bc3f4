package torsion

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"Storey/internal/calc/combo"
	"Storey/internal/calc/records"
	"Storey/internal/engine"
	"Storey/internal/table"
)

const Sheet = "torsion_results"

var Columns = []string{"Story", "Load Combo", "Direction", "Max Displ", "Avg Displ", "Ratio"}

const (
	DirX = "X"
	DirY = "Y"
)

// Record is the displacement amplification of one story under one
// combination, taken in the direction with the larger average displacement.
type Record struct {
	Story           string  `json:"story"`
	Combo           string  `json:"combo"`
	Direction       string  `json:"direction"`
	MaxDisplacement float64 `json:"max_displacement"`
	AvgDisplacement float64 `json:"avg_displacement"`
	Ratio           float64 `json:"ratio"`
}

// MarshalJSON writes an unbounded ratio as "inf" instead of failing.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Story           string `json:"story"`
		Combo           string `json:"combo"`
		Direction       string `json:"direction"`
		MaxDisplacement any    `json:"max_displacement"`
		AvgDisplacement any    `json:"avg_displacement"`
		Ratio           any    `json:"ratio"`
	}{r.Story, r.Combo, r.Direction, table.Value(r.MaxDisplacement), table.Value(r.AvgDisplacement), table.Value(r.Ratio)})
}

type Report struct {
	Records  []Record              `json:"records"`
	Failures []engine.FetchFailure `json:"failures"`
}

// Compute fetches joint displacements for each combination and derives one
// Record per (combination, story) pair that has joints, ranked by ratio.
func Compute(ctx context.Context, combos []string, f engine.Fetcher) (Report, error) {
	rep := Report{Records: []Record{}, Failures: []engine.FetchFailure{}}

	var joints []records.JointRecord
	for _, c := range combos {
		raw, err := f.JointDrifts(ctx, c)
		if err != nil {
			rep.Failures = append(rep.Failures, engine.NewFetchFailure(c, err))
			continue
		}
		recs, err := records.BuildJointRecords(c, raw)
		if err != nil {
			return Report{}, err
		}
		joints = append(joints, recs...)
	}

	stories := distinctStories(joints)
	for _, c := range combos {
		for _, story := range stories {
			if rec, ok := amplification(joints, story, c); ok {
				rep.Records = append(rep.Records, rec)
			}
		}
	}

	sort.SliceStable(rep.Records, func(i, j int) bool {
		return rep.Records[i].Ratio > rep.Records[j].Ratio
	})
	return rep, nil
}

// Check runs Compute over the drift combinations of the open model.
func Check(ctx context.Context, h *engine.Handle) (Report, error) {
	names, err := h.Combinations(ctx)
	if err != nil {
		return Report{}, err
	}
	return Compute(ctx, combo.Filter(names), h)
}

func distinctStories(joints []records.JointRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, j := range joints {
		if !seen[j.Story] {
			seen[j.Story] = true
			out = append(out, j.Story)
		}
	}
	return out
}

func amplification(joints []records.JointRecord, story, c string) (Record, bool) {
	var n int
	var sumX, sumY, maxX, maxY float64
	for _, j := range joints {
		if j.Story != story || j.Combo != c {
			continue
		}
		x, y := math.Abs(j.DispX), math.Abs(j.DispY)
		sumX += x
		sumY += y
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
		n++
	}
	if n == 0 {
		return Record{}, false
	}

	avgX := sumX / float64(n)
	avgY := sumY / float64(n)

	// X governs unless Y is strictly larger.
	rec := Record{Story: story, Combo: c, Direction: DirX, MaxDisplacement: maxX, AvgDisplacement: avgX}
	if avgY > avgX {
		rec.Direction = DirY
		rec.MaxDisplacement = maxY
		rec.AvgDisplacement = avgY
	}

	if rec.AvgDisplacement == 0 {
		rec.Ratio = math.Inf(1)
	} else {
		rec.Ratio = rec.MaxDisplacement / rec.AvgDisplacement
	}
	return rec, true
}

// Table rounds ratio and displacements to 3 places.
func (r Report) Table() table.Table {
	t := table.New(Sheet, Columns, len(r.Records))
	for _, rec := range r.Records {
		t.Append(rec.Story, rec.Combo, rec.Direction,
			table.Number(rec.MaxDisplacement, 3),
			table.Number(rec.AvgDisplacement, 3),
			table.Number(rec.Ratio, 3))
	}
	return t
}
