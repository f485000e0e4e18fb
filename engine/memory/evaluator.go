package memory

import (
	"fmt"

	ds "github.com/lychee-technology/deltaskip"
)

// triVal is a boxed three-valued scalar: (value, isNull). The tree-walking
// interpreter below threads a []triVal per row through Expr evaluation
// instead of a typed Arrow array, materializing into a real Column only at
// the end — it is simpler to keep SQL null-propagation rules in one place
// this way than to special-case every Arrow array type at every operator.
type triVal struct {
	v    any
	null bool
}

// ExpressionEvaluator compiles an Expr into a treeEvaluator. It holds no
// state of its own; every call is independent.
type ExpressionEvaluator struct{}

// NewExpressionEvaluator constructs the reference ds.ExpressionEvaluator.
func NewExpressionEvaluator() *ExpressionEvaluator { return &ExpressionEvaluator{} }

// GetEvaluator implements ds.ExpressionEvaluator.
func (ExpressionEvaluator) GetEvaluator(inputSchema *ds.StatsSchema, expr *ds.Expr, outputType ds.PrimitiveType) (ds.Evaluator, error) {
	if expr == nil {
		return nil, fmt.Errorf("memory: cannot compile a nil expression")
	}
	switch outputType {
	case ds.TypeBoolean, ds.TypeString:
	default:
		return nil, fmt.Errorf("memory: unsupported evaluator output type %v", outputType)
	}
	return &treeEvaluator{expr: expr, outputType: outputType}, nil
}

// treeEvaluator walks a fixed Expr against whatever batch it's given.
type treeEvaluator struct {
	expr       *ds.Expr
	outputType ds.PrimitiveType
}

// Evaluate implements ds.Evaluator.
func (e *treeEvaluator) Evaluate(batch ds.RecordBatch) (ds.Column, error) {
	n := batch.Len()
	vals, err := evalExpr(e.expr, batch, n)
	if err != nil {
		return nil, err
	}

	switch e.outputType {
	case ds.TypeBoolean:
		out := make([]bool, n)
		valid := make([]bool, n)
		for i, tv := range vals {
			if tv.null {
				continue
			}
			b, ok := tv.v.(bool)
			if !ok {
				return nil, fmt.Errorf("memory: expected boolean result at row %d, got %T", i, tv.v)
			}
			out[i], valid[i] = b, true
		}
		return NewBooleanColumn(out, valid), nil

	case ds.TypeString:
		out := make([]string, n)
		valid := make([]bool, n)
		for i, tv := range vals {
			if tv.null {
				continue
			}
			s, ok := tv.v.(string)
			if !ok {
				return nil, fmt.Errorf("memory: expected string result at row %d, got %T", i, tv.v)
			}
			out[i], valid[i] = s, true
		}
		return NewStringColumn(out, valid), nil

	default:
		return nil, fmt.Errorf("memory: unsupported evaluator output type %v", e.outputType)
	}
}

func evalExpr(expr *ds.Expr, batch ds.RecordBatch, n int) ([]triVal, error) {
	switch expr.Kind() {
	case ds.KindColumn:
		name, _ := expr.ColumnName()
		col, ok := batch.Column(name)
		if !ok {
			return nil, fmt.Errorf("memory: column %q is not present in the input batch", name)
		}
		vc, ok := col.(valueColumn)
		if !ok {
			return nil, fmt.Errorf("memory: column %q of type %T cannot be read by value", name, col)
		}
		out := make([]triVal, n)
		for i := range out {
			v, isNull := vc.ValueAt(i)
			out[i] = triVal{v: v, null: isNull}
		}
		return out, nil

	case ds.KindLiteral:
		lv, _ := expr.LiteralValue()
		out := make([]triVal, n)
		for i := range out {
			out[i] = triVal{v: lv, null: lv == nil}
		}
		return out, nil

	case ds.KindUnary:
		child, err := evalExpr(expr.Child(), batch, n)
		if err != nil {
			return nil, err
		}
		out := make([]triVal, n)
		switch expr.UnaryOp() {
		case ds.Not:
			for i, c := range child {
				if c.null {
					out[i] = triVal{null: true}
					continue
				}
				b, ok := c.v.(bool)
				if !ok {
					return nil, fmt.Errorf("memory: Not requires a boolean operand at row %d, got %T", i, c.v)
				}
				out[i] = triVal{v: !b}
			}
		case ds.IsNullOp:
			for i, c := range child {
				out[i] = triVal{v: c.null}
			}
		default:
			return nil, fmt.Errorf("memory: unsupported unary operator %v", expr.UnaryOp())
		}
		return out, nil

	case ds.KindBinary:
		left, err := evalExpr(expr.Left(), batch, n)
		if err != nil {
			return nil, err
		}
		right, err := evalExpr(expr.Right(), batch, n)
		if err != nil {
			return nil, err
		}
		out := make([]triVal, n)
		for i := 0; i < n; i++ {
			tv, err := evalBinary(expr.BinaryOp(), left[i], right[i])
			if err != nil {
				return nil, err
			}
			out[i] = tv
		}
		return out, nil

	case ds.KindVariadic:
		children := make([][]triVal, len(expr.Children()))
		for idx, c := range expr.Children() {
			cv, err := evalExpr(c, batch, n)
			if err != nil {
				return nil, err
			}
			children[idx] = cv
		}
		out := make([]triVal, n)
		for i := 0; i < n; i++ {
			out[i] = evalVariadic(expr.VariadicOp(), children, i)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("memory: unsupported expression kind %v", expr.Kind())
	}
}

// evalBinary applies SQL three-valued semantics to a single pair: Distinct
// is the one comparison that never returns null (it is the primitive that
// exists precisely to collapse three-valued results at a filter boundary).
func evalBinary(op ds.BinaryOp, l, r triVal) (triVal, error) {
	if op == ds.Distinct {
		if l.null && r.null {
			return triVal{v: false}, nil
		}
		if l.null != r.null {
			return triVal{v: true}, nil
		}
		cmp, err := compareValues(l.v, r.v)
		if err != nil {
			return triVal{}, err
		}
		return triVal{v: cmp != 0}, nil
	}

	if l.null || r.null {
		return triVal{null: true}, nil
	}
	cmp, err := compareValues(l.v, r.v)
	if err != nil {
		return triVal{}, err
	}
	switch op {
	case ds.Lt:
		return triVal{v: cmp < 0}, nil
	case ds.Le:
		return triVal{v: cmp <= 0}, nil
	case ds.Gt:
		return triVal{v: cmp > 0}, nil
	case ds.Ge:
		return triVal{v: cmp >= 0}, nil
	case ds.Eq:
		return triVal{v: cmp == 0}, nil
	case ds.Ne:
		return triVal{v: cmp != 0}, nil
	default:
		return triVal{}, fmt.Errorf("memory: unsupported binary operator %v", op)
	}
}

// evalVariadic applies SQL three-valued AND/OR: a deciding value (false for
// AND, true for OR) short-circuits regardless of any sibling NULL; absent a
// deciding value, any NULL sibling makes the whole result NULL. An empty
// child list falls through to AND's identity (TRUE) or OR's identity
// (FALSE), matching spec.md §4's tie-break for zero-arity connectives.
func evalVariadic(op ds.VariadicOp, children [][]triVal, row int) triVal {
	sawNull := false
	switch op {
	case ds.And:
		for _, c := range children {
			tv := c[row]
			if tv.null {
				sawNull = true
				continue
			}
			if b, _ := tv.v.(bool); !b {
				return triVal{v: false}
			}
		}
	case ds.Or:
		for _, c := range children {
			tv := c[row]
			if tv.null {
				sawNull = true
				continue
			}
			if b, _ := tv.v.(bool); b {
				return triVal{v: true}
			}
		}
	default:
		return triVal{null: true}
	}
	if sawNull {
		return triVal{null: true}
	}
	return triVal{v: op == ds.And}
}

// compareValues orders two boxed scalars, promoting int64/float64 pairs to
// float64 and bool to 0/1, matching the loose typing of values decoded off
// a JSON stats blob.
func compareValues(a, b any) (int, error) {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return cmpOrdered(av, bv), nil
		case float64:
			return cmpOrdered(float64(av), bv), nil
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return cmpOrdered(av, float64(bv)), nil
		case float64:
			return cmpOrdered(av, bv), nil
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmpOrdered(av, bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return cmpOrdered(boolToInt(av), boolToInt(bv)), nil
		}
	}
	return 0, fmt.Errorf("memory: cannot compare %T with %T", a, b)
}

func cmpOrdered[T int | int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
