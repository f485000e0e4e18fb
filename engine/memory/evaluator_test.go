package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ds "github.com/lychee-technology/deltaskip"
)

func TestTreeEvaluatorBasicComparison(t *testing.T) {
	batch, err := NewRecordBatch(3, map[string]ds.Column{
		"minValues.a": NewInt64Column([]int64{0, 20, 0}, []bool{true, true, false}),
	})
	require.NoError(t, err)

	expr := ds.NewBinary(ds.Lt, ds.NewColumn("minValues.a"), ds.NewLiteral(int64(10)))
	ev, err := NewExpressionEvaluator().GetEvaluator(&ds.StatsSchema{}, expr, ds.TypeBoolean)
	require.NoError(t, err)

	col, err := ev.Evaluate(batch)
	require.NoError(t, err)
	boolCol, ok := col.(*BooleanColumn)
	require.True(t, ok)

	vals, nulls := boolCol.BoolValues()
	assert.Equal(t, []bool{true, false, false}, vals)
	assert.Equal(t, []bool{false, false, true}, nulls)
}

func TestTreeEvaluatorDistinctNeverNull(t *testing.T) {
	batch, err := NewRecordBatch(2, map[string]ds.Column{
		"predicate": NewBooleanColumn([]bool{false, true}, []bool{true, false}),
	})
	require.NoError(t, err)

	expr := ds.NewBinary(ds.Distinct, ds.NewColumn("predicate"), ds.NewLiteral(false))
	ev, err := NewExpressionEvaluator().GetEvaluator(&ds.StatsSchema{}, expr, ds.TypeBoolean)
	require.NoError(t, err)

	col, err := ev.Evaluate(batch)
	require.NoError(t, err)
	vals, nulls := col.(*BooleanColumn).BoolValues()

	// row 0: predicate=false -> distinct from FALSE is false (kept=false means skip candidate... here just checks value)
	// row 1: predicate=NULL -> distinct from FALSE is true, never null
	assert.Equal(t, []bool{false, true}, vals)
	assert.Equal(t, []bool{false, false}, nulls)
}

func TestTreeEvaluatorAndThreeValuedShortCircuit(t *testing.T) {
	batch, err := NewRecordBatch(1, map[string]ds.Column{
		"a": NewBooleanColumn([]bool{false}, []bool{true}),
		"b": NewBooleanColumn([]bool{false}, []bool{false}), // null
	})
	require.NoError(t, err)

	// AND(false, NULL) == false: a deciding FALSE short-circuits regardless of NULL sibling.
	andExpr := ds.NewAnd(ds.NewColumn("a"), ds.NewColumn("b"))
	ev, err := NewExpressionEvaluator().GetEvaluator(&ds.StatsSchema{}, andExpr, ds.TypeBoolean)
	require.NoError(t, err)
	col, err := ev.Evaluate(batch)
	require.NoError(t, err)
	vals, nulls := col.(*BooleanColumn).BoolValues()
	assert.Equal(t, []bool{false}, vals)
	assert.Equal(t, []bool{false}, nulls)
}

func TestTreeEvaluatorEmptyVariadicIdentities(t *testing.T) {
	batch, err := NewRecordBatch(1, map[string]ds.Column{})
	require.NoError(t, err)

	andEv, err := NewExpressionEvaluator().GetEvaluator(&ds.StatsSchema{}, ds.NewAnd(), ds.TypeBoolean)
	require.NoError(t, err)
	col, err := andEv.Evaluate(batch)
	require.NoError(t, err)
	vals, nulls := col.(*BooleanColumn).BoolValues()
	assert.Equal(t, []bool{true}, vals)
	assert.Equal(t, []bool{false}, nulls)

	orEv, err := NewExpressionEvaluator().GetEvaluator(&ds.StatsSchema{}, ds.NewOr(), ds.TypeBoolean)
	require.NoError(t, err)
	col, err = orEv.Evaluate(batch)
	require.NoError(t, err)
	vals, nulls = col.(*BooleanColumn).BoolValues()
	assert.Equal(t, []bool{false}, vals)
	assert.Equal(t, []bool{false}, nulls)
}

func TestTreeEvaluatorMissingColumnErrors(t *testing.T) {
	batch, err := NewRecordBatch(1, map[string]ds.Column{})
	require.NoError(t, err)

	ev, err := NewExpressionEvaluator().GetEvaluator(&ds.StatsSchema{}, ds.NewColumn("ghost"), ds.TypeString)
	require.NoError(t, err)
	_, err = ev.Evaluate(batch)
	assert.Error(t, err)
}
