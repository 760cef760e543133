package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// sqlStateError is implemented by errors carrying a SQLSTATE code,
// such as *pq.Error.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes (Class 42).
const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
	pgSyntaxError     = "42601"
)

// MySQL error numbers.
const (
	mysqlNoSuchTable   = 1146
	mysqlUnknownColumn = 1054
	mysqlParseError    = 1064
)

// IsUndefinedTableError reports whether the error resulted from a statement
// referencing a table that does not exist.
func IsUndefinedTableError(err error) bool {
	return matchError(err, pgUndefinedTable, []uint16{mysqlNoSuchTable},
		"no such table", // SQLite
		"Error 1146",    // MySQL (string fallback)
	)
}

// IsUndefinedColumnError reports whether the error resulted from a statement
// referencing a column that does not exist.
func IsUndefinedColumnError(err error) bool {
	return matchError(err, pgUndefinedColumn, []uint16{mysqlUnknownColumn},
		"no such column", // SQLite
		"Unknown column", // MySQL (string fallback)
	)
}

// IsSyntaxError reports whether the statement was rejected by the parser.
func IsSyntaxError(err error) bool {
	return matchError(err, pgSyntaxError, []uint16{mysqlParseError},
		"syntax error", // SQLite and Postgres
	)
}

// IsSchemaError reports whether the error points at a mismatch between the
// entity metadata and the database schema.
func IsSchemaError(err error) bool {
	return IsUndefinedTableError(err) || IsUndefinedColumnError(err)
}

func matchError(err error, sqlState string, numbers []uint16, fallback ...string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == sqlState
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		for _, n := range numbers {
			if myErr.Number == n {
				return true
			}
		}
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() != "" {
		return e.SQLState() == sqlState
	}
	return containsAny(err.Error(), fallback...)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
