package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Storey/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
model: TestModel
combinations: [DCon1, Drift-X, Drift-Y]
story_drifts:
  - {story: Story3, load_case: Drift-X, direction: X, drift: 0.015}
  - {story: Story3, load_case: Drift-Y, direction: Y, drift: 0.004}
  - {story: Story3, load_case: DCon1, direction: X, drift: 0.001}
joint_drifts:
  - {label: "1", story: Story5, load_case: Drift-X, disp_x: 0.02, disp_y: 0.01}
  - {label: "2", story: Story5, load_case: Drift-X, disp_x: 0.018, disp_y: 0.009}
`

func TestDecodeYAMLAndJSON(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "TestModel", s.Model)
	assert.Equal(t, []string{"DCon1", "Drift-X", "Drift-Y"}, s.Combinations)
	require.Len(t, s.StoryDrifts, 3)
	assert.Equal(t, 0.015, s.StoryDrifts[0].Drift)
	require.Len(t, s.JointDrifts, 2)
	assert.Equal(t, "1", s.JointDrifts[0].Label)

	js, err := Decode(strings.NewReader(`{"model":"M","combinations":["Drift-X"],"story_drifts":[{"story":"S1","load_case":"Drift-X","direction":"X","drift":0.002}]}`))
	require.NoError(t, err)
	assert.Equal(t, "M", js.Model)
	assert.Equal(t, 0.002, js.StoryDrifts[0].Drift)
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("combinations: [A, A]"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Decode(strings.NewReader("combinations: ['  ']"))
	assert.ErrorContains(t, err, "empty combination")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TestModel", s.Model)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSessionReturnsOnlySelectedCombination(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	h := engine.NewHandle(New(s))
	ctx := context.Background()

	names, err := h.Combinations(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Combinations, names)

	res, err := h.StoryDrifts(ctx, "Drift-X")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NumberResults)
	assert.Equal(t, []string{"Story3"}, res.Stories)
	assert.Equal(t, []string{"X"}, res.Directions)
	assert.Equal(t, []float64{0.015}, res.Drifts)

	res, err = h.StoryDrifts(ctx, "Drift-Y")
	require.NoError(t, err)
	assert.Equal(t, []string{"Drift-Y"}, res.LoadCases)

	jres, err := h.JointDrifts(ctx, "Drift-X")
	require.NoError(t, err)
	assert.Equal(t, 2, jres.NumberResults)
	assert.Equal(t, []float64{0.02, 0.018}, jres.DispX)
	assert.Len(t, jres.DriftY, 2)

	jres, err = h.JointDrifts(ctx, "Drift-Y")
	require.NoError(t, err)
	assert.Zero(t, jres.NumberResults)

	_, err = h.StoryDrifts(ctx, "Seismic")
	assert.ErrorIs(t, err, engine.ErrUnknownCombo)
}

func TestSnapshotOpen(t *testing.T) {
	s := &Snapshot{Model: "TestModel"}
	ctx := context.Background()

	sess, err := s.Open(ctx, "TestModel")
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	_, err = sess.Combinations(ctx)
	assert.ErrorIs(t, err, engine.ErrClosed)

	_, err = s.Open(ctx, "Other")
	assert.ErrorIs(t, err, engine.ErrUnavailable)
}
