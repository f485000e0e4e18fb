package deltaskip

import (
	"context"

	"github.com/lychee-technology/deltaskip/internal/rewrite"
	"go.uber.org/zap"
)

// PredicateFieldName is the name the filter gives the single-field record
// the skipping evaluator's output and the final selection evaluator's
// input are bound against (spec.md §4.D). Exported so alternate
// ExpressionEvaluator implementations (e.g. engine/duckdbeval) can
// recognize this schema and special-case it.
const PredicateFieldName = "predicate"

const predicateFieldName = PredicateFieldName

// Engine bundles the two capabilities an embedder must supply: a way to
// compile an Expr into a runnable Evaluator, and a way to parse the raw
// per-file stats JSON. engine/memory and engine/duckdbeval both satisfy it.
type Engine interface {
	ExpressionEvaluator
	JsonHandler
}

// addActionSchema describes the one column the filter reads out of the
// caller's metadata batch: the raw JSON stats string of a Delta add-file
// action. GetEvaluator's inputSchema parameter is typed *StatsSchema for
// every evaluator the filter builds, regardless of whether the bound
// record is actually a per-file stats record, the log-add action record,
// or the single-field predicate wrapper below — a StatsSchema is just a
// named, typed field list, and reusing the one type keeps Engine's surface
// small.
var addActionSchema = &StatsSchema{Columns: []Field{{Name: StatsColumnExpr, Type: TypeString}}}

func predicateWrapperSchema() *StatsSchema {
	return &StatsSchema{Columns: []Field{{Name: predicateFieldName, Type: TypeBoolean}}}
}

// singleColumnBatch adapts a single Column into a one-field RecordBatch, so
// the final selection evaluator can be bound against "the skipping
// evaluator's output shape" (spec.md §4.D) without a general-purpose
// record-batch builder.
type singleColumnBatch struct {
	name string
	col  Column
}

func (b *singleColumnBatch) Len() int { return b.col.Len() }

func (b *singleColumnBatch) Column(name string) (Column, bool) {
	if name != b.name {
		return nil, false
	}
	return b.col, true
}

// DataSkippingFilter is an immutable, read-only-after-construction handle
// bundling the three evaluators and the JSON handler component D wires
// together. A nil *DataSkippingFilter (returned with a nil error) means
// "no filter" — the caller must keep every file.
type DataSkippingFilter struct {
	jsonHandler    JsonHandler
	statsSchema    *StatsSchema
	statsSelector  Evaluator
	skipEvaluator  Evaluator
	finalEvaluator Evaluator
}

// New builds a DataSkippingFilter for predicate against tableSchema using
// engine's evaluators. Per spec.md §7's error policy, every way of failing
// to build a *useful* filter — no predicate, no eligible stats columns, an
// undecidable predicate, or an evaluator the engine itself can't compile —
// degrades to (nil, nil) rather than an error: data skipping is an
// optimization, never a correctness gate.
func New(engine Engine, tableSchema *TableSchema, predicate *Expr) (*DataSkippingFilter, error) {
	if predicate == nil {
		return nil, nil
	}

	statsSchema, err := DeriveStatsSchema(tableSchema, predicate.References())
	if err != nil {
		zap.S().Debugw("deltaskip: disabling data skipping, no eligible stats column", "err", err)
		return nil, nil
	}

	rewritten, ok := rewrite.Rewrite(predicate, statsSchema)
	if !ok {
		zap.S().Debugw("deltaskip: disabling data skipping, predicate is not decidable from stats")
		return nil, nil
	}

	statsSelector, err := engine.GetEvaluator(addActionSchema, NewColumn(StatsColumnExpr), TypeString)
	if err != nil {
		zap.S().Warnw("deltaskip: disabling data skipping, stats selector failed to compile", "err", err)
		return nil, nil
	}

	skipEvaluator, err := engine.GetEvaluator(statsSchema, rewritten, TypeBoolean)
	if err != nil {
		zap.S().Warnw("deltaskip: disabling data skipping, skipping predicate failed to compile", "err", err)
		return nil, nil
	}

	finalExpr := NewBinary(Distinct, NewColumn(predicateFieldName), NewLiteral(false))
	finalEvaluator, err := engine.GetEvaluator(predicateWrapperSchema(), finalExpr, TypeBoolean)
	if err != nil {
		zap.S().Warnw("deltaskip: disabling data skipping, final selection expression failed to compile", "err", err)
		return nil, nil
	}

	return &DataSkippingFilter{
		jsonHandler:    engine,
		statsSchema:    statsSchema,
		statsSelector:  statsSelector,
		skipEvaluator:  skipEvaluator,
		finalEvaluator: finalEvaluator,
	}, nil
}

// Apply runs the filter's pipeline against one metadata batch of length N
// and returns a length-N selection vector: true keeps the file, false means
// it is provably irrelevant to the predicate. Every intermediate stage's
// row count is checked against N; a mismatch is a KindLengthInvariant
// SkipError, never a silent truncation.
func (f *DataSkippingFilter) Apply(ctx context.Context, batch RecordBatch) ([]bool, error) {
	n := batch.Len()

	rawStats, err := f.statsSelector.Evaluate(batch)
	if err != nil {
		return nil, newSchemaMismatchError("stats selector evaluation failed", err)
	}
	if rawStats.Len() != n {
		return nil, newLengthInvariantError("stats selector", n, rawStats.Len())
	}

	parsed, err := f.jsonHandler.ParseJSON(rawStats, f.statsSchema)
	if err != nil {
		return nil, newSchemaMismatchError("stats JSON parse failed", err)
	}
	if parsed.Len() != n {
		return nil, newLengthInvariantError("json parse", n, parsed.Len())
	}

	predCol, err := f.skipEvaluator.Evaluate(parsed)
	if err != nil {
		return nil, newSchemaMismatchError("skipping predicate evaluation failed", err)
	}
	if predCol.Len() != n {
		return nil, newLengthInvariantError("skipping evaluator", n, predCol.Len())
	}

	finalCol, err := f.finalEvaluator.Evaluate(&singleColumnBatch{name: predicateFieldName, col: predCol})
	if err != nil {
		return nil, newSchemaMismatchError("final selection evaluation failed", err)
	}
	if finalCol.Len() != n {
		return nil, newLengthInvariantError("final selection evaluator", n, finalCol.Len())
	}

	visitor := NewBoolVisitor(n)
	if err := visitor.Visit(finalCol); err != nil {
		return nil, newVisitorFailureError("failed to materialize selection vector", err)
	}
	selection := visitor.Result()
	if len(selection) != n {
		return nil, newLengthInvariantError("boolean visitor", n, len(selection))
	}

	kept := 0
	for _, v := range selection {
		if v {
			kept++
		}
	}
	EmitSkipRatio(ctx, kept, n)
	zap.S().Debugw("deltaskip: apply complete", "kept", kept, "total", n, "skipped", n-kept)

	return selection, nil
}
