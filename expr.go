package deltaskip

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the node types of an Expr tree.
type Kind int

const (
	KindColumn Kind = iota
	KindLiteral
	KindUnary
	KindBinary
	KindVariadic
)

func (k Kind) String() string {
	switch k {
	case KindColumn:
		return "column"
	case KindLiteral:
		return "literal"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	case KindVariadic:
		return "variadic"
	default:
		return "unknown"
	}
}

// UnaryOp enumerates single-child operators.
type UnaryOp int

const (
	Not UnaryOp = iota
	IsNullOp
)

func (op UnaryOp) String() string {
	if op == Not {
		return "not"
	}
	return "is_null"
}

// BinaryOp enumerates two-child comparison operators.
type BinaryOp int

const (
	Lt BinaryOp = iota
	Le
	Gt
	Ge
	Eq
	Ne
	// Distinct is the three-valued-logic-collapsing "IS DISTINCT FROM" operator.
	// It never appears in a user predicate; the rewriter emits it when building
	// the null-handling sub-expressions, and New uses it to close a rewritten
	// predicate over an undecidable (NULL) result.
	Distinct
)

func (op BinaryOp) String() string {
	switch op {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case Eq:
		return "="
	case Ne:
		return "!="
	case Distinct:
		return "is_distinct_from"
	default:
		return "unknown"
	}
}

// Commute returns the operator that preserves meaning when the two operands
// are swapped: (a op b) == (b op.Commute() a). Only defined for the
// comparison operators a user predicate can contain.
func (op BinaryOp) Commute() BinaryOp {
	switch op {
	case Lt:
		return Gt
	case Le:
		return Ge
	case Gt:
		return Lt
	case Ge:
		return Le
	case Eq:
		return Eq
	case Ne:
		return Ne
	default:
		return op
	}
}

// Invert returns the operator satisfying Not(a op b) == (a op.Invert() b)
// for Lt, Le, Gt, Ge, Eq and Ne. Distinct has no counterpart among these
// operators and is returned unchanged, so the identity does not hold for it.
func (op BinaryOp) Invert() BinaryOp {
	switch op {
	case Lt:
		return Ge
	case Le:
		return Gt
	case Gt:
		return Le
	case Ge:
		return Lt
	case Eq:
		return Ne
	case Ne:
		return Eq
	default:
		return op
	}
}

// VariadicOp enumerates N-ary boolean connectives.
type VariadicOp int

const (
	And VariadicOp = iota
	Or
)

func (op VariadicOp) String() string {
	if op == And {
		return "and"
	}
	return "or"
}

// Invert returns the connective satisfying De Morgan's law:
// Not(Variadic{op, xs}) == Variadic{op.Invert(), xs.map(Not)}.
func (op VariadicOp) Invert() VariadicOp {
	if op == And {
		return Or
	}
	return And
}

// Expr is an immutable node in a predicate tree over logical table columns.
// It is the root package's public predicate type, built with the
// constructors below rather than by struct literal.
type Expr struct {
	kind Kind

	column  string
	literal any

	unaryOp UnaryOp
	child   *Expr

	binaryOp BinaryOp
	left     *Expr
	right    *Expr

	variadicOp VariadicOp
	children   []*Expr
}

// NewColumn builds a reference to a logical top-level column.
func NewColumn(name string) *Expr {
	return &Expr{kind: KindColumn, column: name}
}

// NewLiteral builds a scalar constant. Supported Go types mirror the JSON
// value space: nil, bool, float64, int64, string.
func NewLiteral(value any) *Expr {
	return &Expr{kind: KindLiteral, literal: value}
}

// NewNot negates a boolean sub-expression.
func NewNot(x *Expr) *Expr {
	return &Expr{kind: KindUnary, unaryOp: Not, child: x}
}

// NewIsNull tests whether x evaluates to NULL.
func NewIsNull(x *Expr) *Expr {
	return &Expr{kind: KindUnary, unaryOp: IsNullOp, child: x}
}

// NewBinary builds a two-operand comparison.
func NewBinary(op BinaryOp, left, right *Expr) *Expr {
	return &Expr{kind: KindBinary, binaryOp: op, left: left, right: right}
}

// NewAnd builds a conjunction of zero or more sub-expressions.
func NewAnd(xs ...*Expr) *Expr {
	return &Expr{kind: KindVariadic, variadicOp: And, children: xs}
}

// NewOr builds a disjunction of zero or more sub-expressions.
func NewOr(xs ...*Expr) *Expr {
	return &Expr{kind: KindVariadic, variadicOp: Or, children: xs}
}

// Kind reports the node's discriminant.
func (e *Expr) Kind() Kind { return e.kind }

// ColumnName returns the referenced column name; ok is false for non-column nodes.
func (e *Expr) ColumnName() (string, bool) {
	if e == nil || e.kind != KindColumn {
		return "", false
	}
	return e.column, true
}

// LiteralValue returns the literal's value; ok is false for non-literal nodes.
func (e *Expr) LiteralValue() (any, bool) {
	if e == nil || e.kind != KindLiteral {
		return nil, false
	}
	return e.literal, true
}

// UnaryOp returns the node's unary operator; only meaningful when Kind() == KindUnary.
func (e *Expr) UnaryOp() UnaryOp { return e.unaryOp }

// Child returns the single operand of a unary node.
func (e *Expr) Child() *Expr { return e.child }

// BinaryOp returns the node's comparison operator; only meaningful when Kind() == KindBinary.
func (e *Expr) BinaryOp() BinaryOp { return e.binaryOp }

// Left returns the left operand of a binary node.
func (e *Expr) Left() *Expr { return e.left }

// Right returns the right operand of a binary node.
func (e *Expr) Right() *Expr { return e.right }

// VariadicOp returns the node's connective; only meaningful when Kind() == KindVariadic.
func (e *Expr) VariadicOp() VariadicOp { return e.variadicOp }

// Children returns the operands of a variadic node.
func (e *Expr) Children() []*Expr { return e.children }

// References returns the distinct set of column names this expression
// reads, in first-seen order. Names are returned exactly as passed to
// NewColumn; a dotted name is not split into path segments.
func (e *Expr) References() []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(*Expr)
	walk = func(x *Expr) {
		if x == nil {
			return
		}
		switch x.kind {
		case KindColumn:
			if _, ok := seen[x.column]; !ok {
				seen[x.column] = struct{}{}
				out = append(out, x.column)
			}
		case KindUnary:
			walk(x.child)
		case KindBinary:
			walk(x.left)
			walk(x.right)
		case KindVariadic:
			for _, c := range x.children {
				walk(c)
			}
		}
	}
	walk(e)
	return out
}

// Equal reports whether e and other describe the same predicate tree.
func (e *Expr) Equal(other *Expr) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.kind != other.kind {
		return false
	}
	switch e.kind {
	case KindColumn:
		return e.column == other.column
	case KindLiteral:
		return e.literal == other.literal
	case KindUnary:
		return e.unaryOp == other.unaryOp && e.child.Equal(other.child)
	case KindBinary:
		return e.binaryOp == other.binaryOp && e.left.Equal(other.left) && e.right.Equal(other.right)
	case KindVariadic:
		if e.variadicOp != other.variadicOp || len(e.children) != len(other.children) {
			return false
		}
		for i := range e.children {
			if !e.children[i].Equal(other.children[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// exprWire is the discriminated-union JSON shape for Expr, mirroring the
// teacher repo's CompositeCondition/KvCondition UnmarshalJSON dispatch:
// presence of a field picks the concrete node kind rather than a single
// "type" tag, so the wire format stays flat.
type exprWire struct {
	Col *string          `json:"col,omitempty"`
	Lit *json.RawMessage `json:"lit,omitempty"`
	Op  *string          `json:"op,omitempty"`
	X   *Expr            `json:"x,omitempty"`
	L   *Expr            `json:"l,omitempty"`
	R   *Expr            `json:"r,omitempty"`
	Xs  []*Expr          `json:"xs,omitempty"`
}

var unaryOpNames = map[string]UnaryOp{"not": Not, "is_null": IsNullOp}
var binaryOpNames = map[string]BinaryOp{"<": Lt, "<=": Le, ">": Gt, ">=": Ge, "=": Eq, "!=": Ne, "is_distinct_from": Distinct}
var variadicOpNames = map[string]VariadicOp{"and": And, "or": Or}

// MarshalJSON implements json.Marshaler.
func (e *Expr) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	switch e.kind {
	case KindColumn:
		return json.Marshal(exprWire{Col: &e.column})
	case KindLiteral:
		raw, err := json.Marshal(e.literal)
		if err != nil {
			return nil, fmt.Errorf("marshal literal: %w", err)
		}
		rm := json.RawMessage(raw)
		return json.Marshal(exprWire{Lit: &rm})
	case KindUnary:
		op := e.unaryOp.String()
		return json.Marshal(exprWire{Op: &op, X: e.child})
	case KindBinary:
		op := e.binaryOp.String()
		return json.Marshal(exprWire{Op: &op, L: e.left, R: e.right})
	case KindVariadic:
		op := e.variadicOp.String()
		return json.Marshal(exprWire{Op: &op, Xs: e.children})
	default:
		return nil, fmt.Errorf("marshal expr: unknown kind %v", e.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, dispatching on which field of
// the wire payload is present.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var wire exprWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch {
	case wire.Col != nil:
		e.kind = KindColumn
		e.column = *wire.Col
		return nil

	case wire.Lit != nil:
		var v any
		if err := json.Unmarshal(*wire.Lit, &v); err != nil {
			return fmt.Errorf("expr: decode literal: %w", err)
		}
		e.kind = KindLiteral
		e.literal = v
		return nil

	case wire.Op != nil && wire.Xs != nil:
		op, ok := variadicOpNames[*wire.Op]
		if !ok {
			return fmt.Errorf("expr: unknown variadic op %q", *wire.Op)
		}
		e.kind = KindVariadic
		e.variadicOp = op
		e.children = wire.Xs
		return nil

	case wire.Op != nil && wire.L != nil && wire.R != nil:
		op, ok := binaryOpNames[*wire.Op]
		if !ok {
			return fmt.Errorf("expr: unknown binary op %q", *wire.Op)
		}
		e.kind = KindBinary
		e.binaryOp = op
		e.left = wire.L
		e.right = wire.R
		return nil

	case wire.Op != nil && wire.X != nil:
		op, ok := unaryOpNames[*wire.Op]
		if !ok {
			return fmt.Errorf("expr: unknown unary op %q", *wire.Op)
		}
		e.kind = KindUnary
		e.unaryOp = op
		e.child = wire.X
		return nil

	default:
		return fmt.Errorf("expr: payload matches no known node shape")
	}
}
