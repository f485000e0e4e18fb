package duckdbeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ds "github.com/lychee-technology/deltaskip"
	"github.com/lychee-technology/deltaskip/engine/memory"
)

func TestBuildPredicateSQLBasicComparison(t *testing.T) {
	expr := ds.NewBinary(ds.Lt, ds.NewColumn("minValues.a"), ds.NewLiteral(int64(1)))
	sql, err := buildPredicateSQL(expr)
	require.NoError(t, err)
	assert.Equal(t, `("minValues.a" < 1)`, sql)
}

func TestBuildPredicateSQLDistinct(t *testing.T) {
	expr := ds.NewBinary(ds.Distinct, ds.NewColumn("tightBounds"), ds.NewLiteral(false))
	sql, err := buildPredicateSQL(expr)
	require.NoError(t, err)
	assert.Equal(t, `("tightBounds" IS DISTINCT FROM FALSE)`, sql)
}

func TestBuildPredicateSQLAndOr(t *testing.T) {
	expr := ds.NewOr(
		ds.NewBinary(ds.Gt, ds.NewColumn("minValues.a"), ds.NewLiteral(int64(1))),
		ds.NewBinary(ds.Lt, ds.NewColumn("maxValues.a"), ds.NewLiteral(int64(1))),
	)
	sql, err := buildPredicateSQL(expr)
	require.NoError(t, err)
	assert.Equal(t, `(("minValues.a" > 1) OR ("maxValues.a" < 1))`, sql)
}

func TestBuildPredicateSQLEmptyVariadicIdentities(t *testing.T) {
	sql, err := buildPredicateSQL(ds.NewAnd())
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)

	sql, err = buildPredicateSQL(ds.NewOr())
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)
}

func TestFormatLiteralQuotesStrings(t *testing.T) {
	sql, err := formatLiteral("it's")
	require.NoError(t, err)
	assert.Equal(t, `'it''s'`, sql)
}

func TestIsTrivialSchema(t *testing.T) {
	assert.True(t, isTrivialSchema(&ds.StatsSchema{Columns: []ds.Field{{Name: ds.StatsColumnExpr, Type: ds.TypeString}}}))
	assert.True(t, isTrivialSchema(&ds.StatsSchema{Columns: []ds.Field{{Name: ds.PredicateFieldName, Type: ds.TypeBoolean}}}))
	assert.False(t, isTrivialSchema(&ds.StatsSchema{Columns: []ds.Field{{Name: "a", Type: ds.TypeLong}}}))
}

// TestSQLEvaluatorEndToEnd exercises the real DuckDB round trip: open an
// in-memory connection, compile the skipping predicate for a = 5, and check
// the per-row result for the first two files of the three-file scenario in
// filter_test.go (in range -> true, out of range -> false). Skipped in
// -short since it needs the embedded DuckDB native library to be loadable in
// the test environment.
func TestSQLEvaluatorEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DuckDB-backed evaluator test in -short mode")
	}

	eval, err := Open(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eval.Close() })

	schema := &ds.StatsSchema{Columns: []ds.Field{{Name: "a", Type: ds.TypeLong}}}
	// a = 5  ->  minValues.a <= 5 AND maxValues.a >= 5
	expr := ds.NewAnd(
		ds.NewBinary(ds.Le, ds.NewColumn("minValues.a"), ds.NewLiteral(int64(5))),
		ds.NewBinary(ds.Ge, ds.NewColumn("maxValues.a"), ds.NewLiteral(int64(5))),
	)

	ev, err := eval.GetEvaluator(schema, expr, ds.TypeBoolean)
	require.NoError(t, err)

	batch, err := memory.NewRecordBatch(2, map[string]ds.Column{
		ds.StatsFieldNumRecords:  memory.NewInt64Column([]int64{100, 50}, []bool{true, true}),
		ds.StatsFieldTightBounds: memory.NewBooleanColumn([]bool{true, true}, []bool{true, true}),
		"nullCount.a":            memory.NewInt64Column([]int64{0, 0}, []bool{true, true}),
		"minValues.a":            memory.NewInt64Column([]int64{0, 20}, []bool{true, true}),
		"maxValues.a":            memory.NewInt64Column([]int64{10, 30}, []bool{true, true}),
	})
	require.NoError(t, err)

	col, err := ev.Evaluate(batch)
	require.NoError(t, err)
	vals, nulls := col.(*memory.BooleanColumn).BoolValues()
	assert.Equal(t, []bool{true, false}, vals)
	assert.Equal(t, []bool{false, false}, nulls)
}
