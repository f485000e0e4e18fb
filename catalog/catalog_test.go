package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ds "github.com/lychee-technology/deltaskip"
)

func newMockCatalog(t *testing.T, tableName string) (*Catalog, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newWithQuerier(mock, tableName, nil), mock
}

func TestLoadTableSchema_Success(t *testing.T) {
	cat, mock := newMockCatalog(t, "test_registry")
	ctx := context.Background()

	rows := pgxmock.NewRows([]string{"column_name", "column_type"}).
		AddRow("id", "long").
		AddRow("name", "string").
		AddRow("score", "double")
	mock.ExpectQuery(`SELECT column_name, column_type FROM test_registry WHERE table_name = \$1`).
		WithArgs("events").
		WillReturnRows(rows)

	schema, err := cat.LoadTableSchema(ctx, "events")
	require.NoError(t, err)
	require.Len(t, schema.Fields, 3)

	f, ok := schema.ByName("name")
	require.True(t, ok)
	assert.Equal(t, ds.TypeString, f.Type)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTableSchema_QueryError(t *testing.T) {
	cat, mock := newMockCatalog(t, "tbl")
	mock.ExpectQuery(`SELECT column_name, column_type FROM tbl WHERE table_name = \$1`).
		WithArgs("events").
		WillReturnError(errors.New("connection reset"))

	_, err := cat.LoadTableSchema(context.Background(), "events")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTableSchema_NoRowsIsError(t *testing.T) {
	cat, mock := newMockCatalog(t, "empty")
	rows := pgxmock.NewRows([]string{"column_name", "column_type"})
	mock.ExpectQuery(`SELECT column_name, column_type FROM empty WHERE table_name = \$1`).
		WithArgs("ghost").
		WillReturnRows(rows)

	_, err := cat.LoadTableSchema(context.Background(), "ghost")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTableSchema_UnknownTypeIsSkippedNotFatal(t *testing.T) {
	cat, mock := newMockCatalog(t, "reg")
	rows := pgxmock.NewRows([]string{"column_name", "column_type"}).
		AddRow("id", "long").
		AddRow("blob", "bytea")
	mock.ExpectQuery(`SELECT column_name, column_type FROM reg WHERE table_name = \$1`).
		WithArgs("t").
		WillReturnRows(rows)

	schema, err := cat.LoadTableSchema(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, schema.Fields, 1)
	assert.Equal(t, "id", schema.Fields[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTables(t *testing.T) {
	cat, mock := newMockCatalog(t, "reg")
	rows := pgxmock.NewRows([]string{"table_name"}).
		AddRow("zeta").
		AddRow("alpha")
	mock.ExpectQuery(`SELECT DISTINCT table_name FROM reg`).WillReturnRows(rows)

	tables, err := cat.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, tables)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHealthCheck_EmptyDSN(t *testing.T) {
	err := PostgresHealthCheck(context.Background(), "", 0)
	require.Error(t, err)
}
