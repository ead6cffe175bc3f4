package records

import (
	"encoding/json"
	"math"
	"testing"

	"Storey/internal/engine"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDriftRecords(t *testing.T) {
	raw := engine.StoryDriftResults{
		NumberResults: 3,
		Stories:       []string{"Story3", "Story3", "Story2"},
		LoadCases:     []string{"Drift-X", "Drift-X", ""},
		Directions:    []string{"X", "Y", "X"},
		Drifts:        []float64{0.015, 0.002, 0.0123},
	}

	limit := 0.01
	got, err := BuildDriftRecords("Drift-X", raw, limit)
	require.NoError(t, err)

	want := []DriftRecord{
		{Story: "Story3", Combo: "Drift-X", Direction: "X", Drift: 0.015, Ratio: raw.Drifts[0] / limit},
		{Story: "Story3", Combo: "Drift-X", Direction: "Y", Drift: 0.002, Ratio: raw.Drifts[1] / limit},
		{Story: "Story2", Combo: "Drift-X", Direction: "X", Drift: 0.0123, Ratio: raw.Drifts[2] / limit},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDriftRecordsRatioIsExact(t *testing.T) {
	for _, limit := range []float64{0.01, 0.02, 0.004, 1.0 / 3.0, 7} {
		for _, d := range []float64{0, 0.015, -0.003, 0.123456789} {
			recs, err := BuildDriftRecords("Drift", engine.StoryDriftResults{
				NumberResults: 1,
				Stories:       []string{"S"},
				LoadCases:     []string{"Drift"},
				Directions:    []string{"X"},
				Drifts:        []float64{d},
			}, limit)
			require.NoError(t, err)
			assert.Equal(t, d/limit, recs[0].Ratio)
		}
	}
}

func TestBuildDriftRecordsShapeMismatch(t *testing.T) {
	raw := engine.StoryDriftResults{
		NumberResults: 2,
		Stories:       []string{"Story1", "Story2"},
		LoadCases:     []string{"Drift-X", "Drift-X"},
		Directions:    []string{"X"},
		Drifts:        []float64{0.01, 0.02},
	}
	_, err := BuildDriftRecords("Drift-X", raw, 0.01)
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), "directions")

	_, err = BuildDriftRecords("Drift-X", engine.StoryDriftResults{NumberResults: -1}, 0.01)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBuildDriftRecordsEmpty(t *testing.T) {
	got, err := BuildDriftRecords("Drift-X", engine.StoryDriftResults{}, 0.01)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildJointRecords(t *testing.T) {
	raw := engine.JointDriftResults{
		NumberResults: 2,
		Stories:       []string{"Story5", "Story5"},
		Labels:        []string{"1", "2"},
		LoadCases:     []string{"Drift-X", "Drift-X"},
		DispX:         []float64{0.02, 0.018},
		DispY:         []float64{0.01, 0.009},
	}
	got, err := BuildJointRecords("Drift-X", raw)
	require.NoError(t, err)

	want := []JointRecord{
		{Label: "1", Story: "Story5", Combo: "Drift-X", DispX: 0.02, DispY: 0.01},
		{Label: "2", Story: "Story5", Combo: "Drift-X", DispX: 0.018, DispY: 0.009},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	raw.DispY = raw.DispY[:1]
	_, err = BuildJointRecords("Drift-X", raw)
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), "disp y")
}

func TestDriftRecordJSONNonFinite(t *testing.T) {
	b, err := json.Marshal([]DriftRecord{
		{Story: "Story1", Combo: "Drift-X", Direction: "X", Drift: math.Inf(1), Ratio: math.Inf(1)},
		{Story: "Story2", Combo: "Drift-X", Direction: "X", Drift: 0.004, Ratio: 0.4},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"story":"Story1","combo":"Drift-X","direction":"X","drift":"inf","ratio":"inf"},
		{"story":"Story2","combo":"Drift-X","direction":"X","drift":0.004,"ratio":0.4}
	]`, string(b))
}
