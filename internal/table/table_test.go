package table

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 0.015, Round(0.0150000001, 4))
	assert.Equal(t, 1.5, Round(1.4999999999999998, 2))
	assert.Equal(t, 1.053, Round(0.02/0.019, 3))
	assert.Equal(t, -0.13, Round(-0.125, 2))
	assert.Equal(t, 3.0, Round(2.5, 0))
	assert.True(t, math.IsInf(Round(math.Inf(1), 3), 1))
	assert.True(t, math.IsNaN(Round(math.NaN(), 3)))
	assert.Equal(t, 1e300, Round(1e300, 10))
}

func TestNumberKeepsJSONEncodable(t *testing.T) {
	tbl := New("torsion_results", []string{"Ratio"}, 3)
	tbl.Append(Number(math.Inf(1), 3))
	tbl.Append(Number(math.NaN(), 3))
	tbl.Append(Number(1.05263, 3))

	b, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sheet":"torsion_results","columns":["Ratio"],"rows":[["inf"],["nan"],[1.053]]}`, string(b))
	assert.Equal(t, "-inf", Number(math.Inf(-1), 2))
}

func TestText(t *testing.T) {
	assert.Equal(t, "Story3", Text("Story3"))
	assert.Equal(t, "0.015", Text(0.015))
	assert.Equal(t, "12", Text(12))
	assert.Equal(t, "", Text(nil))
}

func TestValue(t *testing.T) {
	assert.Equal(t, 0.0123456, Value(0.0123456))
	assert.Equal(t, "inf", Value(math.Inf(1)))
	assert.Equal(t, "nan", Value(math.NaN()))
}
