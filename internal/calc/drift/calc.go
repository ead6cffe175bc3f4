package drift

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"Storey/internal/calc/combo"
	"Storey/internal/calc/records"
	"Storey/internal/engine"
	"Storey/internal/table"
)

// DefaultLimit is the allowable story drift ratio when none is given.
const DefaultLimit = 0.01

const Sheet = "drift_results"

var Columns = []string{"Story", "Combo", "Direction", "Drift", "DCR(Drift/Limit)"}

var ErrInvalidLimit = errors.New("drift limit must be a positive number")

type Report struct {
	Limit    float64               `json:"limit"`
	Records  []records.DriftRecord `json:"records"`
	Failures []engine.FetchFailure `json:"failures"`
}

// ValidateLimit rejects limits that cannot divide a drift into a ratio.
func ValidateLimit(limit float64) error {
	if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
		return fmt.Errorf("%w, got %v", ErrInvalidLimit, limit)
	}
	return nil
}

// ParseLimit reads a limit typed by a user.
func ParseLimit(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLimit, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w, got %q", ErrInvalidLimit, s)
	}
	if err := ValidateLimit(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Compute fetches story drifts for each combination, divides them by limit
// and ranks the records by drift, largest first. A combination whose fetch
// fails is listed in Failures and skipped.
func Compute(ctx context.Context, combos []string, f engine.Fetcher, limit float64) (Report, error) {
	if err := ValidateLimit(limit); err != nil {
		return Report{}, err
	}

	rep := Report{
		Limit:    limit,
		Records:  []records.DriftRecord{},
		Failures: []engine.FetchFailure{},
	}
	for _, c := range combos {
		raw, err := f.StoryDrifts(ctx, c)
		if err != nil {
			rep.Failures = append(rep.Failures, engine.NewFetchFailure(c, err))
			continue
		}
		recs, err := records.BuildDriftRecords(c, raw, limit)
		if err != nil {
			return Report{}, err
		}
		rep.Records = append(rep.Records, recs...)
	}

	sort.SliceStable(rep.Records, func(i, j int) bool {
		return rep.Records[i].Drift > rep.Records[j].Drift
	})
	return rep, nil
}

// Check runs Compute over the drift combinations of the open model.
func Check(ctx context.Context, h *engine.Handle, limit float64) (Report, error) {
	if err := ValidateLimit(limit); err != nil {
		return Report{}, err
	}
	names, err := h.Combinations(ctx)
	if err != nil {
		return Report{}, err
	}
	return Compute(ctx, combo.Filter(names), h, limit)
}

// Table rounds drift to 4 places and the ratio to 2.
func (r Report) Table() table.Table {
	t := table.New(Sheet, Columns, len(r.Records))
	for _, rec := range r.Records {
		t.Append(rec.Story, rec.Combo, rec.Direction, table.Number(rec.Drift, 4), table.Number(rec.Ratio, 2))
	}
	return t
}
