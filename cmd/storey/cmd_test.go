package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const towerYAML = `model: Tower
combinations: [DCon1, Drift-X, Drift-Y]
story_drifts:
  - {story: Story1, load_case: Drift-X, direction: X, drift: 0.004}
  - {story: Story3, load_case: Drift-X, direction: X, drift: 0.015}
  - {story: Story2, load_case: DCon1, direction: X, drift: 0.5}
  - {story: Story2, load_case: Drift-Y, direction: Y, drift: 0.009}
joint_drifts:
  - {label: "1", story: Story5, load_case: Drift-X, disp_x: 0.02, disp_y: 0.01}
  - {label: "2", story: Story5, load_case: Drift-X, disp_x: 0.018, disp_y: 0.009}
`

// run executes the CLI in a scratch directory so no .env file is picked up.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tower.yaml")
	require.NoError(t, os.WriteFile(path, []byte(towerYAML), 0o600))
	return path
}

func TestDriftCommand(t *testing.T) {
	out, err := run(t, "drift", "--snapshot", writeSnapshot(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"Story", "Combo", "Direction", "Drift", "DCR(Drift/Limit)"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Story3", "Drift-X", "X", "0.015", "1.5"}, strings.Fields(lines[1]))
	assert.NotContains(t, out, "DCon1")
}

func TestDriftCommandLimit(t *testing.T) {
	out, err := run(t, "drift", "--snapshot", writeSnapshot(t), "--limit", "0.02", "--json")
	require.NoError(t, err)
	var res struct {
		Limit float64 `json:"limit"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0.02, res.Limit)

	_, err = run(t, "drift", "--snapshot", writeSnapshot(t), "--limit", "abc")
	assert.ErrorContains(t, err, "positive number")
}

func TestTorsionCommand(t *testing.T) {
	out, err := run(t, "torsion", "--snapshot", writeSnapshot(t))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Story5", "Drift-X", "X", "0.02", "0.019", "1.053"}, strings.Fields(lines[1]))
}

func TestCheckCommandExports(t *testing.T) {
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "results.xlsx")
	pdf := filepath.Join(dir, "report.pdf")

	out, err := run(t, "check", "--snapshot", writeSnapshot(t), "--xlsx", xlsx, "--pdf", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "drift_results")
	assert.Contains(t, out, "torsion_results")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"drift_results", "torsion_results"}, f.GetSheetList())

	b, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestCheckCommandStrict(t *testing.T) {
	_, err := run(t, "check", "--snapshot", writeSnapshot(t), "--strict")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)

	_, err = run(t, "check", "--snapshot", writeSnapshot(t), "--strict", "--limit", "0.02")
	assert.NoError(t, err)
}

func TestImportThenCheckFromDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "results.db")

	out, err := run(t, "import", writeSnapshot(t), "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, `imported model "Tower"`)

	out, err = run(t, "drift", "--driver", "sqlite", "--dsn", dsn, "--model", "Tower")
	require.NoError(t, err)
	assert.Contains(t, out, "Story3")

	_, err = run(t, "drift", "--driver", "sqlite", "--dsn", dsn, "--model", "Other")
	assert.ErrorContains(t, err, "not stored")

	out, err = run(t, "models", "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "Tower\n", out)
}

func TestNoSource(t *testing.T) {
	_, err := run(t, "drift")
	assert.ErrorContains(t, err, "no result source")

	_, err = run(t, "import", writeSnapshot(t))
	assert.ErrorContains(t, err, "no result database")
}

func TestReformatCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Book1.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]any{
		{"TABLE:  Story Drifts"},
		{"Story", "Load Case/Combo", "Direction", "Drift"},
		{"", "", "", "m/m"},
		{"Story1", "Drift-X", "X", 0.004},
	} {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, axis, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	out, err := run(t, "reformat", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"Drift Sorted"`)

	_, err = run(t, "reformat")
	assert.Error(t, err)
}

func TestCommandFlags(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"config", "snapshot", "driver", "dsn", "model", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
	check, _, err := root.Find([]string{"check"})
	require.NoError(t, err)
	for _, name := range []string{"limit", "json", "xlsx", "pdf", "strict", "title", "project", "author"} {
		assert.NotNil(t, check.Flags().Lookup(name), name)
	}
}

func TestDriftCommandInfiniteDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`model: M
combinations: [Drift-X]
story_drifts:
  - {story: Story1, load_case: Drift-X, direction: X, drift: .inf}
`), 0o600))

	out, err := run(t, "drift", "--snapshot", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"drift": "inf"`)
	assert.Contains(t, out, `"ratio": "inf"`)
}
