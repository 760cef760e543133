package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type stateErr string

func (e stateErr) Error() string    { return "state " + string(e) }
func (e stateErr) SQLState() string { return string(e) }

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		table, column  bool
		syntax, schema bool
	}{
		{name: "nil"},
		{name: "plain", err: errors.New("connection refused")},
		{name: "pq_table", err: &pq.Error{Code: "42P01", Message: `relation "note" does not exist`}, table: true, schema: true},
		{name: "pq_column", err: &pq.Error{Code: "42703", Message: `column "x" does not exist`}, column: true, schema: true},
		{name: "pq_syntax", err: &pq.Error{Code: "42601"}, syntax: true},
		{name: "pq_other", err: &pq.Error{Code: "23505", Message: "no such table"}},
		{name: "mysql_table", err: &mysql.MySQLError{Number: 1146, Message: "Table 'crm.note' doesn't exist"}, table: true, schema: true},
		{name: "mysql_column", err: &mysql.MySQLError{Number: 1054, Message: "Unknown column 'x'"}, column: true, schema: true},
		{name: "mysql_syntax", err: &mysql.MySQLError{Number: 1064}, syntax: true},
		{name: "sqlite_table", err: errors.New("SQL logic error: no such table: note (1)"), table: true, schema: true},
		{name: "sqlite_column", err: errors.New("SQL logic error: no such column: x (1)"), column: true, schema: true},
		{name: "sqlite_syntax", err: errors.New(`SQL logic error: near "FORM": syntax error (1)`), syntax: true},
		{name: "sqlstate", err: stateErr("42P01"), table: true, schema: true},
		{name: "wrapped", err: fmt.Errorf("dialect/sql: execute: %w", &pq.Error{Code: "42703"}), column: true, schema: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.table, IsUndefinedTableError(tt.err))
			assert.Equal(t, tt.column, IsUndefinedColumnError(tt.err))
			assert.Equal(t, tt.syntax, IsSyntaxError(tt.err))
			assert.Equal(t, tt.schema, IsSchemaError(tt.err))
		})
	}
}
