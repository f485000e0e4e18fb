// Package memory is a self-contained ExpressionEvaluator/JsonHandler pair
// backed by Arrow columnar arrays. It is the reference engine used by this
// module's own tests and is small enough to embed directly: the skipping
// predicate it evaluates is always a shallow conjunction/disjunction of
// simple comparisons, so a tiny tree-walking interpreter is sufficient —
// there is no need for a general SQL engine (see engine/duckdbeval for one
// anyway, for callers who already run DuckDB alongside the scan).
package memory

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"

	ds "github.com/lychee-technology/deltaskip"
)

var allocator = arrowmem.NewGoAllocator()

// ValueReader is satisfied by every column type in this package, giving
// callers outside the package (e.g. engine/duckdbeval, which needs to copy
// a parsed stats batch into a scratch SQL table) a uniform, boxed
// (value, isNull) view regardless of the underlying Arrow array's
// physical type.
type ValueReader interface {
	ds.Column
	ValueAt(i int) (any, bool)
}

// valueColumn is the evaluator's internal name for the same contract.
type valueColumn = ValueReader

// StringColumn wraps an Arrow string array.
type StringColumn struct{ arr *array.String }

func NewStringColumn(values []string, valid []bool) *StringColumn {
	b := array.NewStringBuilder(allocator)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return &StringColumn{arr: b.NewStringArray()}
}

func (c *StringColumn) Len() int { return c.arr.Len() }

func (c *StringColumn) ValueAt(i int) (any, bool) {
	if c.arr.IsNull(i) {
		return nil, true
	}
	return c.arr.Value(i), false
}

// Int64Column wraps an Arrow int64 array, used for numRecords/nullCount and
// Long-typed literal columns.
type Int64Column struct{ arr *array.Int64 }

func NewInt64Column(values []int64, valid []bool) *Int64Column {
	b := array.NewInt64Builder(allocator)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return &Int64Column{arr: b.NewInt64Array()}
}

func (c *Int64Column) Len() int { return c.arr.Len() }

func (c *Int64Column) ValueAt(i int) (any, bool) {
	if c.arr.IsNull(i) {
		return nil, true
	}
	return c.arr.Value(i), false
}

// Float64Column wraps an Arrow float64 array, used for Double-typed
// min/max bounds.
type Float64Column struct{ arr *array.Float64 }

func NewFloat64Column(values []float64, valid []bool) *Float64Column {
	b := array.NewFloat64Builder(allocator)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return &Float64Column{arr: b.NewFloat64Array()}
}

func (c *Float64Column) Len() int { return c.arr.Len() }

func (c *Float64Column) ValueAt(i int) (any, bool) {
	if c.arr.IsNull(i) {
		return nil, true
	}
	return c.arr.Value(i), false
}

// BooleanColumn wraps an Arrow boolean array. It is the only column type
// that also satisfies ds.BoolReader, since it is the only type the final
// selection evaluator ever produces.
type BooleanColumn struct{ arr *array.Boolean }

func NewBooleanColumn(values []bool, valid []bool) *BooleanColumn {
	b := array.NewBooleanBuilder(allocator)
	defer b.Release()
	for i, v := range values {
		if valid != nil && !valid[i] {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return &BooleanColumn{arr: b.NewBooleanArray()}
}

func (c *BooleanColumn) Len() int { return c.arr.Len() }

func (c *BooleanColumn) ValueAt(i int) (any, bool) {
	if c.arr.IsNull(i) {
		return nil, true
	}
	return c.arr.Value(i), false
}

func (c *BooleanColumn) BoolValues() (vals []bool, nulls []bool) {
	n := c.arr.Len()
	vals = make([]bool, n)
	nulls = make([]bool, n)
	for i := 0; i < n; i++ {
		if c.arr.IsNull(i) {
			nulls[i] = true
			continue
		}
		vals[i] = c.arr.Value(i)
	}
	return vals, nulls
}

// RecordBatch is a fixed-length set of named columns, keyed by the flat
// dotted field name the rewriter produces (e.g. "minValues.a").
type RecordBatch struct {
	n       int
	columns map[string]ds.Column
}

// NewRecordBatch builds a batch of the given row count from named columns.
// Every column must report the same length as n.
func NewRecordBatch(n int, columns map[string]ds.Column) (*RecordBatch, error) {
	for name, col := range columns {
		if col.Len() != n {
			return nil, fmt.Errorf("memory: column %q has length %d, batch length is %d", name, col.Len(), n)
		}
	}
	return &RecordBatch{n: n, columns: columns}, nil
}

func (b *RecordBatch) Len() int { return b.n }

func (b *RecordBatch) Column(name string) (ds.Column, bool) {
	col, ok := b.columns[name]
	return col, ok
}
