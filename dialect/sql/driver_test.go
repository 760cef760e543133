package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/syssam/rdb/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, stmt dialect.Stmt) []map[string]any {
	t.Helper()
	var rows []map[string]any
	for {
		row, ok, err := stmt.FetchRow()
		require.NoError(t, err)
		if !ok {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestWithVars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("SELECT 1").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	ctx := WithVar(context.Background(), "foo", "bar")
	stmt, err := drv.Prepare(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx))
	assert.Len(t, drain(t, stmt), 1)
	require.NoError(t, stmt.Close(), "closing the statement releases the connection")
	require.NoError(t, mock.ExpectationsWereMet())

	// A variable set twice is reset once.
	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET foo = 'baz'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("SELECT 1").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	ctx = WithVar(WithVar(context.Background(), "foo", "bar"), "foo", "baz")
	stmt, err = drv.Prepare(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx))
	drain(t, stmt)
	require.NoError(t, stmt.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarsMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.MySQL, db)

	mock.ExpectExec("SET sql_mode = 'ANSI'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("SELECT id FROM note").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("SET sql_mode = NULL").WillReturnResult(sqlmock.NewResult(0, 0))
	ctx := WithVar(context.Background(), "sql_mode", "ANSI")
	stmt, err := drv.Prepare(ctx, "SELECT id FROM note")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx))
	assert.Empty(t, drain(t, stmt))
	require.NoError(t, stmt.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarsSetError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET foo = 'bar'").WillReturnError(errors.New("permission denied"))
	_, err = drv.Prepare(WithVar(context.Background(), "foo", "bar"), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set session vars")
	assert.Contains(t, err.Error(), "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarsNeedDB(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	c := Conn{ExecPreparer: conn, dialect: dialect.Postgres}
	_, err = c.Prepare(WithVar(ctx, "foo", "bar"), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need a *sql.DB")
}

func TestDriverDialect(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{dialect.Postgres, dialect.Postgres},
		{dialect.MySQL, dialect.MySQL},
		{dialect.SQLite, dialect.SQLite},
		{"sqlite3", dialect.SQLite},
		{"postgres-replica", dialect.Postgres},
		{"oracle", "oracle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.name, db)
			assert.Equal(t, tt.want, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("no-such-driver", "")
	require.Error(t, err)
}

// TestIsValidIdentifier tests SQL identifier validation.
func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid_simple", "foo", true},
		{"valid_with_underscore", "foo_bar", true},
		{"valid_with_number", "foo123", true},
		{"valid_with_dot", "schema.table", true},
		{"valid_starting_underscore", "_private", true},
		{"invalid_empty", "", false},
		{"invalid_starting_number", "123foo", false},
		{"invalid_with_space", "foo bar", false},
		{"invalid_with_quote", "foo'bar", false},
		{"invalid_with_semicolon", "foo;DROP TABLE", false},
		{"invalid_with_dash", "foo-bar", false},
		{"invalid_too_long", string(make([]byte, 129)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidIdentifier(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestEscapeStringValue tests SQL string value escaping.
func TestEscapeStringValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no_escaping_needed", "hello", "hello"},
		{"single_quote", "it's", "it''s"},
		{"multiple_quotes", "he said 'hello'", "he said ''hello''"},
		{"backslash", `path\to\file`, `path\\to\\file`},
		{"both_quote_and_backslash", `it's a \test`, `it''s a \\test`},
		{"empty_string", "", ""},
		{"sql_injection_attempt", "'; DROP TABLE users; --", "''; DROP TABLE users; --"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := escapeStringValue(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestWithVarsInvalidIdentifier tests that invalid identifiers are rejected.
func TestWithVarsInvalidIdentifier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	// Attempt SQL injection via variable name
	_, err = drv.Prepare(
		WithVar(context.Background(), "foo; DROP TABLE users; --", "bar"),
		"SELECT 1",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestWithVarsEscapedValue tests that values are properly escaped.
func TestWithVarsEscapedValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	// The escaped value should have doubled single quotes
	mock.ExpectExec("SET foo = 'it''s escaped'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("SELECT 1").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := WithVar(context.Background(), "foo", "it's escaped")
	stmt, err := drv.Prepare(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx))
	require.NoError(t, stmt.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepare(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	ctx := context.Background()

	t.Run("fetch_rows", func(t *testing.T) {
		query := `SELECT id AS "id", name AS "name" FROM note WHERE status = $1`
		mock.ExpectPrepare(query).
			ExpectQuery().
			WithArgs("open").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, []byte("first")).
				AddRow(2, "second"))

		stmt, err := drv.Prepare(ctx, query)
		require.NoError(t, err)
		require.NoError(t, stmt.Execute(ctx, "open"))

		row, ok, err := stmt.FetchRow()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, map[string]any{"id": int64(1), "name": "first"}, row)

		row, ok, err = stmt.FetchRow()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "second", row["name"])

		_, ok, err = stmt.FetchRow()
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = stmt.FetchRow()
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, stmt.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fetch_before_execute", func(t *testing.T) {
		mock.ExpectPrepare("SELECT 1")
		stmt, err := drv.Prepare(ctx, "SELECT 1")
		require.NoError(t, err)
		_, _, err = stmt.FetchRow()
		require.Error(t, err)
		require.NoError(t, stmt.Close())
	})

	t.Run("prepare_error", func(t *testing.T) {
		mock.ExpectPrepare("SELECT broken").WillReturnError(errors.New("syntax error at or near \"broken\""))
		_, err := drv.Prepare(ctx, "SELECT broken")
		require.Error(t, err)
		assert.True(t, IsSyntaxError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("execute_error", func(t *testing.T) {
		mock.ExpectPrepare("SELECT x FROM note").
			ExpectQuery().
			WillReturnError(errors.New("no such column: x"))
		stmt, err := drv.Prepare(ctx, "SELECT x FROM note")
		require.NoError(t, err)
		err = stmt.Execute(ctx)
		require.Error(t, err)
		assert.True(t, IsUndefinedColumnError(err))
		require.NoError(t, stmt.Close())
	})

	t.Run("row_error", func(t *testing.T) {
		mock.ExpectPrepare("SELECT id FROM note").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow(1).
				AddRow(2).
				RowError(1, errors.New("connection reset")))
		stmt, err := drv.Prepare(ctx, "SELECT id FROM note")
		require.NoError(t, err)
		require.NoError(t, stmt.Execute(ctx))
		_, ok, err := stmt.FetchRow()
		require.NoError(t, err)
		require.True(t, ok)
		_, ok, err = stmt.FetchRow()
		require.Error(t, err)
		assert.False(t, ok)
		require.NoError(t, stmt.Close())
	})

	t.Run("null_values", func(t *testing.T) {
		mock.ExpectPrepare("SELECT name, email FROM users").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}).
				AddRow("Alice", nil).
				AddRow(nil, "bob@example.com"))
		stmt, err := drv.Prepare(ctx, "SELECT name, email FROM users")
		require.NoError(t, err)
		require.NoError(t, stmt.Execute(ctx))
		assert.Equal(t, []map[string]any{
			{"name": "Alice", "email": nil},
			{"name": nil, "email": "bob@example.com"},
		}, drain(t, stmt))
		require.NoError(t, stmt.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("canceled_context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := drv.Prepare(canceled, "SELECT 1")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("reexecute", func(t *testing.T) {
		ep := mock.ExpectPrepare("SELECT id FROM note WHERE id = $1")
		ep.ExpectQuery().WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		ep.ExpectQuery().WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		stmt, err := drv.Prepare(ctx, "SELECT id FROM note WHERE id = $1")
		require.NoError(t, err)
		require.NoError(t, stmt.Execute(ctx, 1))
		require.NoError(t, stmt.Execute(ctx, 2))
		row, ok, err := stmt.FetchRow()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(2), row["id"])
		require.NoError(t, stmt.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrepareWithVars(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	ctx := WithVar(context.Background(), "search_path", "crm")
	v, ok := VarFromContext(ctx, "search_path")
	require.True(t, ok)
	assert.Equal(t, "crm", v)

	mock.ExpectExec("SET search_path = 'crm'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("SELECT id FROM note").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))

	stmt, err := drv.Prepare(ctx, "SELECT id FROM note")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx))
	_, ok, err = stmt.FetchRow()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, stmt.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
