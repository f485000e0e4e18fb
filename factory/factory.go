// Package factory wires a deltaskip.Config into a ready
// *deltaskip.DataSkippingFilter, mirroring the teacher repo's
// factory.NewEntityManagerWithConfig: callers supply configuration and a
// table schema, factory picks and constructs the right engine.
package factory

import (
	"fmt"

	"go.uber.org/zap"

	ds "github.com/lychee-technology/deltaskip"
	"github.com/lychee-technology/deltaskip/engine/duckdbeval"
	"github.com/lychee-technology/deltaskip/engine/memory"
)

// NewFilter builds a DataSkippingFilter for predicate against tableSchema,
// selecting engine/memory by default and engine/duckdbeval when
// cfg.Engine.Backend is EngineBackendDuckDB. A nil predicate, or one the
// rewriter can't translate, degrades to a nil filter/nil error per
// deltaskip.New's contract — this function never turns that case into an
// error.
//
// Usage:
//
//	cfg := deltaskip.DefaultConfig()
//	filter, closeFn, err := factory.NewFilter(cfg, tableSchema, predicate)
//	if err != nil {
//	    // handle error
//	}
//	defer closeFn()
func NewFilter(cfg *ds.Config, tableSchema *ds.TableSchema, predicate *ds.Expr) (*ds.DataSkippingFilter, func() error, error) {
	if cfg == nil {
		cfg = ds.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("factory: invalid config: %w", err)
	}

	engine, closeFn, err := buildEngine(cfg.Engine)
	if err != nil {
		return nil, nil, fmt.Errorf("factory: failed to build engine: %w", err)
	}

	zap.S().Infow("factory: building data skipping filter", "backend", cfg.Engine.Backend)
	filter, err := ds.New(engine, tableSchema, predicate)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("factory: failed to build filter: %w", err)
	}
	if filter == nil {
		zap.S().Infow("factory: data skipping disabled for this predicate/schema")
	}
	return filter, closeFn, nil
}

// memoryEngine bundles engine/memory's evaluator and JSON handler pair to
// satisfy ds.Engine — engine/memory itself exposes them as two separate
// constructors rather than one combined type.
type memoryEngine struct {
	*memory.ExpressionEvaluator
	*memory.JSONHandler
}

func buildEngine(cfg ds.EngineConfig) (ds.Engine, func() error, error) {
	switch cfg.Backend {
	case ds.EngineBackendDuckDB:
		duckCfg := duckdbeval.Config{Path: cfg.DuckDBPath, Timeout: cfg.Timeout}
		if duckCfg.Path == "" {
			duckCfg.Path = ":memory:"
		}
		evaluator, err := duckdbeval.Open(duckCfg)
		if err != nil {
			return nil, nil, err
		}
		engine := struct {
			*duckdbeval.ExpressionEvaluator
			*memory.JSONHandler
		}{evaluator, memory.NewJSONHandler()}
		return engine, evaluator.Close, nil

	case ds.EngineBackendMemory, "":
		engine := memoryEngine{
			ExpressionEvaluator: memory.NewExpressionEvaluator(),
			JSONHandler:         memory.NewJSONHandler(),
		}
		return engine, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("factory: unknown engine backend %q", cfg.Backend)
	}
}
