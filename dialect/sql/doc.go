// Package sql implements the dialect interfaces on top of database/sql.
//
// # Drivers
//
// Driver wraps a *sql.DB and prepares statements read row by row:
//
//	import (
//	    _ "modernc.org/sqlite"
//
//	    "github.com/syssam/rdb/dialect"
//	    "github.com/syssam/rdb/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.SQLite, "file:crm.db")
//
// StatsDriver collects counters and reports slow statements, and
// DebugDriver logs every statement through log/slog:
//
//	debug := sql.NewDebugDriver(drv, logger)
//	stats := sql.NewStatsDriver(drv, sql.WithSlowLog(logger))
//
// # Session variables
//
// Variables attached with WithVar are set on the connection before every
// statement and reset before it returns to the pool:
//
//	ctx = sql.WithVar(ctx, "search_path", "crm")
//
// # Errors
//
// IsUndefinedTableError, IsUndefinedColumnError and IsSyntaxError classify
// errors of the lib/pq, go-sql-driver/mysql and modernc.org/sqlite drivers.
package sql
