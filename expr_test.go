package deltaskip

import (
	"encoding/json"
	"testing"
)

func TestExprReferences(t *testing.T) {
	expr := NewAnd(
		NewBinary(Lt, NewColumn("a"), NewLiteral(int64(1))),
		NewOr(
			NewIsNull(NewColumn("b")),
			NewBinary(Eq, NewColumn("a"), NewLiteral(int64(2))),
		),
	)

	got := expr.References()
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestExprEqual(t *testing.T) {
	a := NewBinary(Lt, NewColumn("x"), NewLiteral(int64(1)))
	b := NewBinary(Lt, NewColumn("x"), NewLiteral(int64(1)))
	c := NewBinary(Le, NewColumn("x"), NewLiteral(int64(1)))

	if !a.Equal(b) {
		t.Fatalf("expected a == b")
	}
	if a.Equal(c) {
		t.Fatalf("expected a != c")
	}
	if a.Equal(nil) {
		t.Fatalf("expected a != nil")
	}
}

func TestBinaryOpCommuteAndInvert(t *testing.T) {
	pairs := []struct{ op, commuted, inverted BinaryOp }{
		{Lt, Gt, Ge},
		{Le, Ge, Gt},
		{Gt, Lt, Le},
		{Ge, Le, Lt},
		{Eq, Eq, Ne},
		{Ne, Ne, Eq},
	}
	for _, p := range pairs {
		if got := p.op.Commute(); got != p.commuted {
			t.Fatalf("%v.Commute() = %v, want %v", p.op, got, p.commuted)
		}
		if got := p.op.Invert(); got != p.inverted {
			t.Fatalf("%v.Invert() = %v, want %v", p.op, got, p.inverted)
		}
	}
}

func TestVariadicOpInvert(t *testing.T) {
	if And.Invert() != Or {
		t.Fatalf("And.Invert() should be Or")
	}
	if Or.Invert() != And {
		t.Fatalf("Or.Invert() should be And")
	}
}

func TestExprJSONRoundTrip(t *testing.T) {
	original := NewAnd(
		NewBinary(Lt, NewColumn("amount"), NewLiteral(float64(10))),
		NewNot(NewIsNull(NewColumn("status"))),
	)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Expr
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !original.Equal(&decoded) {
		t.Fatalf("round trip mismatch: got %#v", decoded)
	}
}

func TestExprJSONUnknownShapeFails(t *testing.T) {
	var decoded Expr
	if err := json.Unmarshal([]byte(`{"bogus": true}`), &decoded); err == nil {
		t.Fatalf("expected error for unrecognized payload shape")
	}
}
