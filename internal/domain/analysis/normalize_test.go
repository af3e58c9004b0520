package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeScalarMap(t *testing.T) {
	table, shape, err := Normalize(decode(t, `{"average_duration_days": 20.0}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeScalarMap, shape)
	assert.Equal(t, []Record{{"average_duration_days": 20.0}}, table.Rows)
	assert.Equal(t, []string{"average_duration_days"}, table.Columns)
}

func TestNormalizeRecordListFillsMissingKeys(t *testing.T) {
	table, shape, err := Normalize(decode(t, `[{"site":"A","n":3},{"site":"B"}]`))
	require.NoError(t, err)
	assert.Equal(t, ShapeRecordList, shape)
	assert.Equal(t, []string{"n", "site"}, table.Columns)
	assert.Equal(t, Record{"site": "B", "n": nil}, table.Rows[1])
}

func TestNormalizeColumnar(t *testing.T) {
	table, shape, err := Normalize(decode(t, `{"columns":["arm","mean"],"values":[["A",1.5],["B",2.5]]}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeColumnar, shape)
	assert.Equal(t, []string{"arm", "mean"}, table.Columns)
	assert.Equal(t, []Record{{"arm": "A", "mean": 1.5}, {"arm": "B", "mean": 2.5}}, table.Rows)
}

func TestNormalizeSingleArrayFieldOfRecords(t *testing.T) {
	table, shape, err := Normalize(decode(t, `{"label":"by arm","rows":[{"arm":"A"},{"arm":"B"}]}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeSingleArrayField, shape)
	assert.Equal(t, []Record{{"arm": "A"}, {"arm": "B"}}, table.Rows)
}

func TestNormalizeSingleArrayFieldWithHeaderKey(t *testing.T) {
	table, _, err := Normalize(decode(t, `{"arm, count":[["A",10],["B",12]]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"arm", "count"}, table.Columns)
	assert.Equal(t, []Record{{"arm": "A", "count": 10.0}, {"arm": "B", "count": 12.0}}, table.Rows)

	table, _, err = Normalize(decode(t, `{"site":["A","B"]}`))
	require.NoError(t, err)
	assert.Equal(t, []Record{{"site": "A"}, {"site": "B"}}, table.Rows)
}

func TestNormalizeIdempotent(t *testing.T) {
	first, _, err := Normalize(decode(t, `[{"a":1,"b":2},{"a":3}]`))
	require.NoError(t, err)

	snapshot, err := json.Marshal(first.Rows)
	require.NoError(t, err)

	second, shape, err := Normalize(first.Rows)
	require.NoError(t, err)
	assert.Equal(t, ShapeRecordList, shape)

	again, err := json.Marshal(second.Rows)
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(again))
	assert.Equal(t, first.Columns, second.Columns)
}

func TestNormalizeNoTable(t *testing.T) {
	for _, raw := range []any{nil, 42.0, "text", []any{}, []Record{}, map[string]any{}, []any{1.0, 2.0}} {
		_, _, err := Normalize(raw)
		assert.True(t, errors.Is(err, ErrNoTable), "raw=%v", raw)
	}
}

func TestDatasetEmptyAndSchema(t *testing.T) {
	assert.True(t, Dataset{}.Empty())
	assert.True(t, Dataset{"trials.csv": {Columns: []string{"duration_days"}}}.Empty())

	d := Dataset{"trials.csv": {
		Columns: []string{"duration_days"},
		Rows:    []Record{{"duration_days": 10.0}, {"duration_days": 20.0}, {"duration_days": 30.0}, {"duration_days": 40.0}},
	}}
	assert.False(t, d.Empty())
	schema := d.Schema()
	assert.Contains(t, schema, `Sheet "trials.csv" (4 rows)`)
	assert.Contains(t, schema, "Columns: duration_days")
	assert.Len(t, d.Payload()["trials.csv"], 4)
}

func TestFallbackExplanation(t *testing.T) {
	out := FallbackExplanation("What is the average trial duration?", map[string]any{"avg": 20.0})
	assert.Contains(t, out, "## Analysis Results for: What is the average trial duration?")
	assert.Contains(t, out, `"avg": 20`)
}
