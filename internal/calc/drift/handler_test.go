package drift

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Storey/internal/check"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const snapshotBody = `"snapshot": {
  "model": "Tower",
  "combinations": ["DCon1", "Drift-X", "Drift-Y"],
  "story_drifts": [
    {"story": "Story1", "load_case": "Drift-X", "direction": "X", "drift": 0.004},
    {"story": "Story3", "load_case": "Drift-X", "direction": "X", "drift": 0.015},
    {"story": "Story2", "load_case": "DCon1", "direction": "X", "drift": 0.5},
    {"story": "Story2", "load_case": "Drift-Y", "direction": "Y", "drift": 0.009}
  ]
}`

func calc(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Calc(rec, httptest.NewRequest(http.MethodPost, "/api/user/tools/drift/calc", strings.NewReader(body)))
	return rec
}

func TestHandlerCalc(t *testing.T) {
	h := &Handler{Runner: check.NewRunner(nil, zap.NewNop())}
	rec := calc(h, `{`+snapshotBody+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	var res struct {
		Limit   float64 `json:"limit"`
		Records []struct {
			Story string  `json:"story"`
			Combo string  `json:"combo"`
			Drift float64 `json:"drift"`
		} `json:"records"`
		Failures []any `json:"failures"`
		Table    struct {
			Sheet string  `json:"sheet"`
			Rows  [][]any `json:"rows"`
		} `json:"table"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, DefaultLimit, res.Limit)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "Story3", res.Records[0].Story)
	assert.Empty(t, res.Failures)
	assert.Equal(t, Sheet, res.Table.Sheet)
	assert.Equal(t, []any{"Story3", "Drift-X", "X", 0.015, 1.5}, res.Table.Rows[0])
}

func TestHandlerLimits(t *testing.T) {
	h := &Handler{Runner: check.NewRunner(nil, zap.NewNop()), Limit: 0.02}

	rec := calc(h, `{`+snapshotBody+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit":0.02`)

	rec = calc(h, `{"limit": 0.015, `+snapshotBody+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit":0.015`)

	assert.Equal(t, http.StatusBadRequest, calc(h, `{"limit": 0, `+snapshotBody+`}`).Code)
	assert.Equal(t, http.StatusBadRequest, calc(h, `{"limit": "x"}`).Code)
}

func TestHandlerWithoutSource(t *testing.T) {
	h := &Handler{Runner: check.NewRunner(nil, zap.NewNop())}
	assert.Equal(t, http.StatusServiceUnavailable, calc(h, `{"model": "Tower"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, calc(h, ``).Code)
}

func TestRequestLimit(t *testing.T) {
	given := 0.03
	assert.Equal(t, DefaultLimit, RequestLimit(check.Request{}, 0))
	assert.Equal(t, 0.02, RequestLimit(check.Request{}, 0.02))
	assert.Equal(t, 0.03, RequestLimit(check.Request{Limit: &given}, 0.02))
}
