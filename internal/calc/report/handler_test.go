package report

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Storey/internal/check"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const body = `{
  "project": "Tower A",
  "snapshot": {
    "model": "Tower",
    "combinations": ["DCon1", "Drift-X"],
    "story_drifts": [
      {"story": "Story1", "load_case": "Drift-X", "direction": "X", "drift": 0.004},
      {"story": "Story2", "load_case": "Drift-X", "direction": "X", "drift": 0.012}
    ],
    "joint_drifts": [
      {"label": "1", "story": "Story2", "load_case": "Drift-X", "disp_x": 0.02, "disp_y": 0.01},
      {"label": "2", "story": "Story2", "load_case": "Drift-X", "disp_x": 0.018, "disp_y": 0.009}
    ]
  }
}`

func newHandler() *Handler {
	return &Handler{Runner: check.NewRunner(nil, zap.NewNop())}
}

func TestWorkbookHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().Workbook(rec, httptest.NewRequest(http.MethodPost, "/tools/report/xlsx", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("drift_results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Story2", "Drift-X", "X", "0.012", "1.2"}, rows[1])

	rows, err = f.GetRows("torsion_results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.053", rows[1][5])
}

func TestPDFHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().PDF(rec, httptest.NewRequest(http.MethodPost, "/tools/report/pdf", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestReportHandlerErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"snapshot":`, http.StatusBadRequest},
		{"bad limit", `{"limit": -1, "snapshot": {"model": "m", "combinations": []}}`, http.StatusBadRequest},
		{"bad snapshot", `{"snapshot": {"model": "m", "combinations": ["A", "A"]}}`, http.StatusBadRequest},
		{"no source", `{"model": "Tower"}`, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newHandler().PDF(rec, httptest.NewRequest(http.MethodPost, "/tools/report/pdf", strings.NewReader(tc.body)))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
