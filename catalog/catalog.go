// Package catalog loads a named table's logical column schema from a
// schema_registry-style Postgres table, supplying the table_schema input
// DeriveStatsSchema needs in a real deployment. It is a schema lookup, not
// schema discovery from the Delta log: it never reads _delta_log or parses
// metaData actions, so callers still own how the table's schema is obtained
// in the first place — this is only one concrete way to store and fetch it.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	// Blank-imported so PostgresHealthCheck can drive a plain database/sql
	// readiness probe alongside the pool used for real queries, mirroring
	// the teacher repo's internal/cdc/flusher.go and internal/e2e_harness's
	// use of lib/pq purely as a database/sql driver.
	"database/sql"

	_ "github.com/lib/pq"

	ds "github.com/lychee-technology/deltaskip"
)

// querier is the slice of *pgxpool.Pool's surface Catalog needs. Declaring
// it as an interface (rather than storing *pgxpool.Pool directly, as the
// teacher's MetadataLoader does) lets catalog_test.go swap in a
// pgxmock.PgxPoolIface without requiring a real Postgres connection.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Catalog loads table schemas from a schema_registry Postgres table.
type Catalog struct {
	pool        querier
	tableName   string
	typeColumns map[string]ds.PrimitiveType
}

// New constructs a Catalog backed by pool, reading rows from registryTable
// (default "schema_registry" when empty). typeMap translates the registry's
// wire-level type strings (e.g. "string", "long") into ds.PrimitiveType
// values; a nil typeMap uses DefaultTypeNames.
func New(pool *pgxpool.Pool, registryTable string, typeMap map[string]ds.PrimitiveType) *Catalog {
	return newWithQuerier(pool, registryTable, typeMap)
}

func newWithQuerier(pool querier, registryTable string, typeMap map[string]ds.PrimitiveType) *Catalog {
	if registryTable == "" {
		registryTable = "schema_registry"
	}
	if typeMap == nil {
		typeMap = DefaultTypeNames()
	}
	return &Catalog{pool: pool, tableName: registryTable, typeColumns: typeMap}
}

// DefaultTypeNames maps the registry's wire-level, lower-case column_type
// strings to ds.PrimitiveType.
func DefaultTypeNames() map[string]ds.PrimitiveType {
	return map[string]ds.PrimitiveType{
		"string":    ds.TypeString,
		"long":      ds.TypeLong,
		"integer":   ds.TypeInteger,
		"double":    ds.TypeDouble,
		"boolean":   ds.TypeBoolean,
		"date":      ds.TypeDate,
		"timestamp": ds.TypeTimestamp,
	}
}

// LoadTableSchema loads the logical column list for tableName from the
// registry table, ordered by column name for deterministic output. Returns
// an error if the table has no registered columns, matching the teacher's
// metadata_loader.go's "no schemas found in registry" guard.
func (c *Catalog) LoadTableSchema(ctx context.Context, tableName string) (*ds.TableSchema, error) {
	query := fmt.Sprintf(
		"SELECT column_name, column_type FROM %s WHERE table_name = $1",
		c.tableName,
	)

	rows, err := c.pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query schema registry: %w", err)
	}
	defer rows.Close()

	var fields []ds.Field
	for rows.Next() {
		var columnName, columnType string
		if err := rows.Scan(&columnName, &columnType); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan schema row: %w", err)
		}
		typ, ok := c.typeColumns[columnType]
		if !ok {
			zap.S().Warnw("catalog: unrecognized column type, skipping column",
				"table", tableName, "column", columnName, "type", columnType)
			continue
		}
		fields = append(fields, ds.Field{Name: columnName, Type: typ})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: error iterating schema rows: %w", err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("catalog: no columns registered for table %q", tableName)
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	zap.S().Infow("catalog: loaded table schema", "table", tableName, "columns", len(fields))
	return &ds.TableSchema{Fields: fields}, nil
}

// ListTables returns the distinct table names registered in the schema
// registry, sorted for deterministic output.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT table_name FROM %s", c.tableName)

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to query table names: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: error iterating table names: %w", err)
	}

	sort.Strings(tables)
	return tables, nil
}

// PostgresHealthCheck attempts to connect and ping a Postgres instance via
// a plain database/sql connection, independent of the pgxpool the Catalog
// itself uses for queries. timeout may be 0 to use a 5s default.
func PostgresHealthCheck(ctx context.Context, dsn string, timeout time.Duration) error {
	if dsn == "" {
		return fmt.Errorf("catalog: empty dsn")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("catalog: open postgres: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("catalog: postgres ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("catalog: postgres simple query failed: %w", err)
	}
	return nil
}
