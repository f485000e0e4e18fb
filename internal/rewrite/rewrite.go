// Package rewrite implements the symbolic translation of a predicate over
// logical table columns into an equivalent predicate over per-file summary
// statistics. It is a direct, rule-by-rule port of the column-pruning
// rewrite used by Delta-Lake-style data skipping: every accepted rule must
// never cause a file that could contain a match to be skipped, so any
// sub-expression the rewriter cannot translate makes the whole branch give
// up (return ok=false) rather than guess.
package rewrite

import (
	ds "github.com/lychee-technology/deltaskip"
)

func minCol(name string) *ds.Expr  { return ds.NewColumn(ds.StatsFieldMinValues + "." + name) }
func maxCol(name string) *ds.Expr  { return ds.NewColumn(ds.StatsFieldMaxValues + "." + name) }
func nullCol(name string) *ds.Expr { return ds.NewColumn(ds.StatsFieldNullCount + "." + name) }

var numRecordsCol = ds.NewColumn(ds.StatsFieldNumRecords)
var tightBoundsCol = ds.NewColumn(ds.StatsFieldTightBounds)

// tightNullExpr / wideNullExpr together decide "column IS NULL" over a file:
// tight bounds means nullCount is exact, so nullCount > 0 proves a NULL is
// present; wide bounds only proves it when every row in the file is NULL.
func tightNullExpr(nc *ds.Expr) *ds.Expr {
	return ds.NewAnd(
		ds.NewBinary(ds.Distinct, tightBoundsCol, ds.NewLiteral(false)),
		ds.NewBinary(ds.Gt, nc, ds.NewLiteral(int64(0))),
	)
}

func wideNullExpr(nc *ds.Expr) *ds.Expr {
	return ds.NewAnd(
		ds.NewBinary(ds.Eq, tightBoundsCol, ds.NewLiteral(false)),
		ds.NewBinary(ds.Eq, numRecordsCol, nc),
	)
}

// tightNotNullExpr / wideNotNullExpr decide "column IS NOT NULL", which is
// not simply Not(the IsNull expressions) above: under tight bounds, at least
// one non-null row is proven by nullCount < numRecords; under wide bounds, a
// non-null row is proven only when nullCount disagrees with a file that is
// entirely NULL.
func tightNotNullExpr(nc *ds.Expr) *ds.Expr {
	return ds.NewAnd(
		ds.NewBinary(ds.Distinct, tightBoundsCol, ds.NewLiteral(false)),
		ds.NewBinary(ds.Lt, nc, numRecordsCol),
	)
}

func wideNotNullExpr(nc *ds.Expr) *ds.Expr {
	return ds.NewAnd(
		ds.NewBinary(ds.Eq, tightBoundsCol, ds.NewLiteral(false)),
		ds.NewBinary(ds.Ne, numRecordsCol, nc),
	)
}

// eligible reports whether name has a home in the derived stats schema.
// A nil schema means "no eligibility restriction" (used by rewrite_test.go,
// which exercises the rewrite rules directly against column names that were
// never run through DeriveStatsSchema).
func eligible(schema *ds.StatsSchema, name string) bool {
	if schema == nil {
		return true
	}
	return schema.HasColumn(name)
}

// Rewrite translates expr, a predicate over logical columns, into an
// equivalent predicate over stats columns. schema is the stats schema
// component B derived for this table/predicate pair: a column reference not
// present in it has no minValues/maxValues/nullCount home to rewrite against
// (e.g. it named a table column data-skipping found no stats for), so any
// comparison or IsNull over it is treated exactly like any other
// untranslatable construct — dropped from an And, or poisoning an Or. ok is
// false when expr contains a construct the rewriter does not know how to
// translate; callers must treat that as "no predicate could be derived"
// rather than an error.
func Rewrite(expr *ds.Expr, schema *ds.StatsSchema) (*ds.Expr, bool) {
	switch expr.Kind() {
	case ds.KindUnary:
		switch expr.UnaryOp() {
		case ds.Not:
			return rewriteInverted(expr.Child(), schema)
		case ds.IsNullOp:
			child := expr.Child()
			name, ok := child.ColumnName()
			if !ok || !eligible(schema, name) {
				return nil, false
			}
			nc := nullCol(name)
			return ds.NewOr(tightNullExpr(nc), wideNullExpr(nc)), true
		}
		return nil, false

	case ds.KindBinary:
		col, lit, op, ok := normalizeComparison(expr)
		if !ok {
			return nil, false
		}
		name, _ := col.ColumnName()
		if !eligible(schema, name) {
			return nil, false
		}
		switch op {
		case ds.Lt:
			return ds.NewBinary(ds.Lt, minCol(name), lit), true
		case ds.Le:
			return ds.NewBinary(ds.Le, minCol(name), lit), true
		case ds.Gt:
			return ds.NewBinary(ds.Gt, maxCol(name), lit), true
		case ds.Ge:
			return ds.NewBinary(ds.Ge, maxCol(name), lit), true
		case ds.Eq:
			// Recurse through the conjunction rather than emitting the
			// min/max comparisons directly, so the two Le legs go through
			// the same normalization path as any other binary comparison.
			return Rewrite(ds.NewAnd(
				ds.NewBinary(ds.Le, col, lit),
				ds.NewBinary(ds.Le, lit, col),
			), schema)
		case ds.Ne:
			return ds.NewOr(
				ds.NewBinary(ds.Gt, minCol(name), lit),
				ds.NewBinary(ds.Lt, maxCol(name), lit),
			), true
		default:
			return nil, false
		}

	case ds.KindVariadic:
		switch expr.VariadicOp() {
		case ds.And:
			// A child the rewriter can't translate is simply dropped: it
			// stays unenforced by data skipping but the rest of the
			// conjunction can still prune files.
			var kept []*ds.Expr
			for _, c := range expr.Children() {
				if r, ok := Rewrite(c, schema); ok {
					kept = append(kept, r)
				}
			}
			if len(kept) == 0 {
				// An And whose every child was dropped is equivalent to the
				// identically-true empty conjunction, i.e. undecidable.
				return nil, false
			}
			return ds.NewAnd(kept...), true
		case ds.Or:
			// Unlike And, a single untranslatable child poisons the whole
			// disjunction: dropping it would make the rewritten predicate
			// stricter than the original, risking a false negative.
			kept := make([]*ds.Expr, 0, len(expr.Children()))
			for _, c := range expr.Children() {
				r, ok := Rewrite(c, schema)
				if !ok {
					return nil, false
				}
				kept = append(kept, r)
			}
			return ds.NewOr(kept...), true
		}
		return nil, false

	default:
		return nil, false
	}
}

// rewriteInverted translates Not(expr) — it is not simply
// NewNot(Rewrite(expr)) because each operator's negation has its own,
// independently correct stats expression (see the tight/wide helpers above).
func rewriteInverted(expr *ds.Expr, schema *ds.StatsSchema) (*ds.Expr, bool) {
	switch expr.Kind() {
	case ds.KindUnary:
		switch expr.UnaryOp() {
		case ds.Not:
			return Rewrite(expr.Child(), schema)
		case ds.IsNullOp:
			child := expr.Child()
			name, ok := child.ColumnName()
			if !ok || !eligible(schema, name) {
				return nil, false
			}
			nc := nullCol(name)
			return ds.NewOr(tightNotNullExpr(nc), wideNotNullExpr(nc)), true
		}
		return nil, false

	case ds.KindBinary:
		return Rewrite(ds.NewBinary(expr.BinaryOp().Invert(), expr.Left(), expr.Right()), schema)

	case ds.KindVariadic:
		negated := make([]*ds.Expr, len(expr.Children()))
		for i, c := range expr.Children() {
			negated[i] = ds.NewNot(c)
		}
		switch expr.VariadicOp().Invert() {
		case ds.And:
			return Rewrite(ds.NewAnd(negated...), schema)
		case ds.Or:
			return Rewrite(ds.NewOr(negated...), schema)
		}
		return nil, false

	default:
		return nil, false
	}
}

// normalizeComparison puts a binary comparison into (column, literal, op)
// form, commuting the operator when the column appeared on the right.
// ok is false for anything other than Column-vs-Literal (e.g. column-vs-
// column, or a comparison not anchored to a column at all).
func normalizeComparison(expr *ds.Expr) (col, lit *ds.Expr, op ds.BinaryOp, ok bool) {
	left, right := expr.Left(), expr.Right()
	op = expr.BinaryOp()

	if left.Kind() == ds.KindColumn && right.Kind() == ds.KindLiteral {
		return left, right, op, true
	}
	if left.Kind() == ds.KindLiteral && right.Kind() == ds.KindColumn {
		return right, left, op.Commute(), true
	}
	return nil, nil, op, false
}
