package dialect

import (
	"context"
	"slices"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Dialects lists the supported dialect names.
var Dialects = []string{Postgres, MySQL, SQLite}

// Valid reports whether name is a supported dialect.
func Valid(name string) bool { return slices.Contains(Dialects, name) }

// Preparer creates prepared statements.
type Preparer interface {
	Prepare(ctx context.Context, query string) (Stmt, error)
}

// Stmt is a prepared SELECT statement yielding rows as attribute maps.
//
// Execute runs the statement and positions it before the first row. Each
// FetchRow call returns the next row, or false once the result set is
// drained. Executing again discards the previous result set.
type Stmt interface {
	Execute(ctx context.Context, args ...any) error
	FetchRow() (map[string]any, bool, error)
	Close() error
}

// Driver is a Preparer bound to one database and dialect.
type Driver interface {
	Preparer
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}
