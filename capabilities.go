package deltaskip

import "fmt"

// Column is the minimal surface this package needs from a columnar value
// vector produced by an injected evaluator: its length, for the length
// invariant checks in Apply.
type Column interface {
	Len() int
}

// BoolReader is satisfied by a Column that can hand back its values as a
// nullable bool slice. BoolVisitor uses it to materialize a selection
// vector; a Column that does not implement it fails with a visitor error
// rather than a panic.
type BoolReader interface {
	Column
	// BoolValues returns one entry per row: val is the row's value (ignored
	// when null is true), null reports whether the row is NULL.
	BoolValues() (vals []bool, nulls []bool)
}

// RecordBatch is a set of named columns sharing a common row count.
type RecordBatch interface {
	Len() int
	Column(name string) (Column, bool)
}

// Evaluator runs one pre-compiled expression against a batch, producing a
// single output column.
type Evaluator interface {
	Evaluate(batch RecordBatch) (Column, error)
}

// ExpressionEvaluator compiles an expression bound to a fixed input schema
// and output type into a reusable Evaluator. DataSkippingFilter calls this
// exactly three times, once per evaluator it holds (see Component D).
type ExpressionEvaluator interface {
	GetEvaluator(inputSchema *StatsSchema, expr *Expr, outputType PrimitiveType) (Evaluator, error)
}

// JsonHandler parses the raw per-file statistics JSON string column into a
// RecordBatch shaped like targetSchema. Rows that are null, empty, or fail
// to parse must become all-null records rather than raising an error — a
// corrupt stats blob degrades data skipping for that one file, it never
// fails the scan.
type JsonHandler interface {
	ParseJSON(strings Column, targetSchema *StatsSchema) (RecordBatch, error)
}

// BoolVisitor accumulates a boolean Column into a host []bool buffer,
// satisfying the "visitor protocol over a column" required by spec.md §6.
// A NULL entry makes Visit fail with an error; it is never folded to true or
// false (the filter boundary always applies Distinct(x, FALSE) before
// visiting, so by the time BoolVisitor runs a NULL can only arise from a
// collaborator implementation bug).
type BoolVisitor struct {
	out []bool
}

// NewBoolVisitor prepares a visitor for a batch of the given length.
func NewBoolVisitor(n int) *BoolVisitor {
	return &BoolVisitor{out: make([]bool, 0, n)}
}

// Visit reads col into the visitor's buffer. col must implement BoolReader;
// anything else is a visitor failure (spec.md §7).
func (v *BoolVisitor) Visit(col Column) error {
	reader, ok := col.(BoolReader)
	if !ok {
		return fmt.Errorf("deltaskip: column of type %T does not support boolean visitation", col)
	}
	vals, nulls := reader.BoolValues()
	for i, val := range vals {
		if i < len(nulls) && nulls[i] {
			return fmt.Errorf("deltaskip: unexpected NULL at row %d in final selection column", i)
		}
		v.out = append(v.out, val)
	}
	return nil
}

// Result returns the accumulated selection vector.
func (v *BoolVisitor) Result() []bool { return v.out }
