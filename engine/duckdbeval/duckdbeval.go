// Package duckdbeval is an alternate ds.ExpressionEvaluator that lowers the
// rewritten skipping predicate to SQL and runs it against an in-process
// DuckDB connection, instead of walking the Expr tree in Go. It exists to
// show the same ExpressionEvaluator contract component D relies on can be
// satisfied by delegating to a real SQL engine — useful once a caller
// already runs the rewritten predicate's target batches through DuckDB for
// other reasons (e.g. the physical Parquet read itself).
//
// The trivial evaluators component D also builds — selecting the raw
// "add.stats" string column, and collapsing the skip evaluator's nullable
// result with Distinct(predicate, FALSE) — are delegated back to the
// tree-walking interpreter in engine/memory: spinning up a SQL round trip
// to extract one column or negate one boolean would cost more than it
// proves.
package duckdbeval

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	ds "github.com/lychee-technology/deltaskip"
	"github.com/lychee-technology/deltaskip/engine/memory"
)

// Config mirrors the connection-time knobs the teacher's DuckDBClient
// exposes for its own embedded connection.
type Config struct {
	Path    string
	Timeout time.Duration
}

// DefaultConfig opens an ephemeral in-memory database.
func DefaultConfig() Config {
	return Config{Path: ":memory:", Timeout: 5 * time.Second}
}

// ExpressionEvaluator is the ds.ExpressionEvaluator backed by DuckDB.
type ExpressionEvaluator struct {
	db  *sql.DB
	tbl string // scratch table name, reused across Apply calls
}

// Open establishes the DuckDB connection. Exists is a single-connection
// pool, matching the teacher's NewDuckDBClient: DuckDB is an embedded
// engine, not a server, so there is no benefit to a larger pool here.
func Open(cfg Config) (*ExpressionEvaluator, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdbeval: open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdbeval: ping duckdb: %w", err)
	}

	zap.S().Debugw("duckdbeval: connection established", "path", dsn)
	return &ExpressionEvaluator{db: db, tbl: "stats_batch"}, nil
}

// Close releases the underlying connection.
func (e *ExpressionEvaluator) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

// GetEvaluator implements ds.ExpressionEvaluator. The two single-purpose
// schemas component D binds around the real stats schema — the "add.stats"
// selector and the final predicate-collapsing expression — are recognized
// by their fixed, reserved field name and handed to the tree-walking
// interpreter; anything else is treated as the real per-file stats schema
// and compiled to a pushdown SQL expression. Matching on the reserved name
// rather than just "one field" matters: a predicate that references a
// single table column also derives a one-field stats schema, and that case
// must still go through SQL.
func (e *ExpressionEvaluator) GetEvaluator(inputSchema *ds.StatsSchema, expr *ds.Expr, outputType ds.PrimitiveType) (ds.Evaluator, error) {
	if expr == nil {
		return nil, fmt.Errorf("duckdbeval: cannot compile a nil expression")
	}
	if isTrivialSchema(inputSchema) {
		return memory.NewExpressionEvaluator().GetEvaluator(inputSchema, expr, outputType)
	}

	cols := flattenStatsColumns(inputSchema)
	predicateSQL, err := buildPredicateSQL(expr)
	if err != nil {
		return nil, fmt.Errorf("duckdbeval: compile predicate: %w", err)
	}
	return &sqlEvaluator{
		db:           e.db,
		table:        e.tbl,
		columns:      cols,
		predicateSQL: predicateSQL,
		outputType:   outputType,
	}, nil
}

// isTrivialSchema reports whether schema is one of the two fixed,
// non-stats schemas component D binds its pass-through evaluators against.
func isTrivialSchema(schema *ds.StatsSchema) bool {
	if len(schema.Columns) != 1 {
		return false
	}
	switch schema.Columns[0].Name {
	case ds.StatsColumnExpr, ds.PredicateFieldName:
		return true
	default:
		return false
	}
}

// flatColumn is one physical column of the scratch DuckDB table backing a
// per-file stats batch: a dotted field name (e.g. "minValues.a") and its
// DuckDB column type.
type flatColumn struct {
	name    string
	typ     ds.PrimitiveType
	sqlType string
}

func sqlTypeFor(t ds.PrimitiveType) string {
	switch t {
	case ds.TypeLong:
		return "BIGINT"
	case ds.TypeInteger:
		return "INTEGER"
	case ds.TypeDouble:
		return "DOUBLE"
	case ds.TypeBoolean:
		return "BOOLEAN"
	default:
		// TypeString, TypeDate, TypeTimestamp: Delta's JSON stats encode all
		// three as plain strings (see engine/memory's JSON decoder), so DuckDB
		// reasons about them as VARCHAR too.
		return "VARCHAR"
	}
}

func flattenStatsColumns(schema *ds.StatsSchema) []flatColumn {
	cols := []flatColumn{
		{name: ds.StatsFieldNumRecords, typ: ds.TypeLong, sqlType: "BIGINT"},
		{name: ds.StatsFieldTightBounds, typ: ds.TypeBoolean, sqlType: "BOOLEAN"},
	}
	for _, f := range schema.Columns {
		cols = append(cols, flatColumn{name: ds.StatsFieldNullCount + "." + f.Name, typ: ds.TypeLong, sqlType: "BIGINT"})
		cols = append(cols, flatColumn{name: ds.StatsFieldMinValues + "." + f.Name, typ: f.Type, sqlType: sqlTypeFor(f.Type)})
		cols = append(cols, flatColumn{name: ds.StatsFieldMaxValues + "." + f.Name, typ: f.Type, sqlType: sqlTypeFor(f.Type)})
	}
	return cols
}

// sqlEvaluator materializes a RecordBatch into a scratch DuckDB table and
// evaluates the compiled predicate SQL against it. Grounded in the
// teacher's internal/duckdb_sql_generator.go recursive-descent style for
// condition-to-SQL translation and internal/duckdb_conn.go's CREATE-then-
// query connection usage.
type sqlEvaluator struct {
	db           *sql.DB
	table        string
	columns      []flatColumn
	predicateSQL string
	outputType   ds.PrimitiveType
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (e *sqlEvaluator) Evaluate(batch ds.RecordBatch) (ds.Column, error) {
	ctx := context.Background()
	n := batch.Len()

	var createSQL strings.Builder
	fmt.Fprintf(&createSQL, "CREATE OR REPLACE TABLE %s (", e.table)
	for i, c := range e.columns {
		if i > 0 {
			createSQL.WriteString(", ")
		}
		fmt.Fprintf(&createSQL, "%s %s", quoteIdent(c.name), c.sqlType)
	}
	createSQL.WriteString(")")
	if _, err := e.db.ExecContext(ctx, createSQL.String()); err != nil {
		return nil, fmt.Errorf("duckdbeval: create scratch table: %w", err)
	}

	if err := e.insertRows(ctx, batch, n); err != nil {
		return nil, err
	}

	selectSQL := fmt.Sprintf("SELECT (%s) AS predicate FROM %s", e.predicateSQL, e.table)
	rows, err := e.db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("duckdbeval: evaluate predicate: %w", err)
	}
	defer rows.Close()

	switch e.outputType {
	case ds.TypeBoolean:
		vals := make([]bool, 0, n)
		valid := make([]bool, 0, n)
		for rows.Next() {
			var v sql.NullBool
			if err := rows.Scan(&v); err != nil {
				return nil, fmt.Errorf("duckdbeval: scan boolean row: %w", err)
			}
			vals = append(vals, v.Bool)
			valid = append(valid, v.Valid)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("duckdbeval: iterate rows: %w", err)
		}
		return memory.NewBooleanColumn(vals, valid), nil
	default:
		return nil, fmt.Errorf("duckdbeval: unsupported evaluator output type %v", e.outputType)
	}
}

func (e *sqlEvaluator) insertRows(ctx context.Context, batch ds.RecordBatch, n int) error {
	placeholders := make([]string, len(e.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", e.table, strings.Join(placeholders, ", "))
	stmt, err := e.db.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("duckdbeval: prepare insert: %w", err)
	}
	defer stmt.Close()

	readers := make([]memory.ValueReader, len(e.columns))
	for i, c := range e.columns {
		col, ok := batch.Column(c.name)
		if !ok {
			return fmt.Errorf("duckdbeval: batch missing column %q", c.name)
		}
		vr, ok := col.(memory.ValueReader)
		if !ok {
			return fmt.Errorf("duckdbeval: column %q of type %T is not readable (pair this evaluator with engine/memory's JsonHandler)", c.name, col)
		}
		readers[i] = vr
	}

	for row := 0; row < n; row++ {
		args := make([]any, len(readers))
		for i, vr := range readers {
			v, isNull := vr.ValueAt(row)
			if isNull {
				args[i] = nil
			} else {
				args[i] = v
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("duckdbeval: insert row %d: %w", row, err)
		}
	}
	return nil
}

// buildPredicateSQL lowers a rewritten skipping predicate into a boolean
// SQL expression. Only the node shapes Rewrite ever produces need to be
// covered: Column, Literal, Not, Binary (including Distinct), And/Or.
func buildPredicateSQL(expr *ds.Expr) (string, error) {
	switch expr.Kind() {
	case ds.KindColumn:
		name, _ := expr.ColumnName()
		return quoteIdent(name), nil

	case ds.KindLiteral:
		v, _ := expr.LiteralValue()
		return formatLiteral(v)

	case ds.KindUnary:
		child, err := buildPredicateSQL(expr.Child())
		if err != nil {
			return "", err
		}
		switch expr.UnaryOp() {
		case ds.Not:
			return fmt.Sprintf("(NOT (%s))", child), nil
		case ds.IsNullOp:
			return fmt.Sprintf("(%s IS NULL)", child), nil
		default:
			return "", fmt.Errorf("duckdbeval: unsupported unary operator %v", expr.UnaryOp())
		}

	case ds.KindBinary:
		left, err := buildPredicateSQL(expr.Left())
		if err != nil {
			return "", err
		}
		right, err := buildPredicateSQL(expr.Right())
		if err != nil {
			return "", err
		}
		sym, err := binarySymbol(expr.BinaryOp())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, sym, right), nil

	case ds.KindVariadic:
		children := expr.Children()
		if len(children) == 0 {
			if expr.VariadicOp() == ds.And {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		joiner := " AND "
		if expr.VariadicOp() == ds.Or {
			joiner = " OR "
		}
		parts := make([]string, len(children))
		for i, c := range children {
			p, err := buildPredicateSQL(c)
			if err != nil {
				return "", err
			}
			parts[i] = p
		}
		return "(" + strings.Join(parts, joiner) + ")", nil

	default:
		return "", fmt.Errorf("duckdbeval: unsupported expression kind %v", expr.Kind())
	}
}

func binarySymbol(op ds.BinaryOp) (string, error) {
	switch op {
	case ds.Lt:
		return "<", nil
	case ds.Le:
		return "<=", nil
	case ds.Gt:
		return ">", nil
	case ds.Ge:
		return ">=", nil
	case ds.Eq:
		return "=", nil
	case ds.Ne:
		return "<>", nil
	case ds.Distinct:
		return "IS DISTINCT FROM", nil
	default:
		return "", fmt.Errorf("duckdbeval: unsupported binary operator %v", op)
	}
}

func formatLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	default:
		return "", fmt.Errorf("duckdbeval: unsupported literal type %T", v)
	}
}
