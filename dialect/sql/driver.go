package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/syssam/rdb/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue doubles single quotes and escapes backslashes.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
}

var _ dialect.Driver = (*Driver)(nil)

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn) *Driver {
	return &Driver{dialect: dialect, Conn: c}
}

// Open wraps the database/sql.Open method and returns a Driver. The
// database/sql driver of the dialect must be registered.
func Open(dialect, source string) (*Driver, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(dialect, db), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return NewDriver(dialect, Conn{db, dialect})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecPreparer.(*sql.DB)
}

// Dialect implements the dialect.Dialect method.
func (d Driver) Dialect() string {
	for _, name := range dialect.Dialects {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

type ctxVarsKey struct{}

// sessionVars holds session variables to set before every statement.
type sessionVars struct {
	vars []struct{ k, v string }
}

// WithVar returns a new context that holds the session variable to be set
// before every statement, for example a Postgres search_path.
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	vars := make([]struct{ k, v string }, len(sv.vars), len(sv.vars)+1)
	copy(vars, sv.vars)
	vars = append(vars, struct{ k, v string }{name, value})
	return context.WithValue(ctx, ctxVarsKey{}, sessionVars{vars: vars})
}

// VarFromContext returns the session variable value from the context.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for i := len(sv.vars) - 1; i >= 0; i-- {
		if sv.vars[i].k == name {
			return sv.vars[i].v, true
		}
	}
	return "", false
}

// ExecPreparer is implemented by *sql.DB and *sql.Conn.
type ExecPreparer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Conn implements dialect.Preparer given an ExecPreparer.
type Conn struct {
	ExecPreparer
	dialect string
}

// Prepare implements the dialect.Preparer method. When session variables
// are attached to the context, the statement is bound to a dedicated
// connection that is released on Close.
func (c Conn) Prepare(ctx context.Context, query string) (dialect.Stmt, error) {
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: prepare: set session vars: %w", err)
	}
	stmt, err := ex.PrepareContext(ctx, query)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return nil, fmt.Errorf("dialect/sql: prepare: %w", err)
	}
	return &Stmt{stmt: stmt, query: query, closer: cf}, nil
}

// maySetVars sets the session variables before executing a statement.
func (c Conn) maySetVars(ctx context.Context) (ExecPreparer, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c, nil, nil
	}
	db, ok := c.ExecPreparer.(*sql.DB)
	if !ok {
		return nil, nil, fmt.Errorf("session variables need a *sql.DB, got %T", c.ExecPreparer)
	}
	// Variables are set on a dedicated connection held until the statement
	// is closed.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	var ex ExecPreparer = conn
	cf := conn.Close
	var reset []string
	seen := make(map[string]struct{}, len(sv.vars))
	for _, s := range sv.vars {
		if !isValidIdentifier(s.k) {
			_ = cf()
			return nil, nil, fmt.Errorf("invalid session variable name: %q", s.k)
		}
		if _, ok := seen[s.k]; !ok {
			switch c.dialect {
			case dialect.Postgres:
				reset = append(reset, fmt.Sprintf("RESET %s", s.k))
			case dialect.MySQL:
				reset = append(reset, fmt.Sprintf("SET %s = NULL", s.k))
			}
			seen[s.k] = struct{}{}
		}
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", s.k, escapeStringValue(s.v))); err != nil {
			return nil, nil, errors.Join(err, cf())
		}
	}
	// Pooled connections are returned with their variables reset. The
	// cleanup runs on its own context so a canceled request still resets.
	if cls := cf; len(reset) > 0 {
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanupCtx, q); err != nil {
					return errors.Join(err, cls())
				}
			}
			return cls()
		}
	}
	return ex, cf, nil
}

// Stmt is a prepared statement whose result set is read one row at a time.
type Stmt struct {
	stmt   *sql.Stmt
	query  string
	rows   *sql.Rows
	cols   []string
	done   bool
	closer func() error
}

var _ dialect.Stmt = (*Stmt)(nil)

// Query returns the SQL text of the statement.
func (s *Stmt) Query() string { return s.query }

// Execute runs the statement, discarding any previous result set.
func (s *Stmt) Execute(ctx context.Context, args ...any) error {
	if err := s.closeRows(); err != nil {
		return fmt.Errorf("dialect/sql: execute: %w", err)
	}
	rows, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return fmt.Errorf("dialect/sql: execute: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		return errors.Join(fmt.Errorf("dialect/sql: execute: %w", err), rows.Close())
	}
	s.rows, s.cols, s.done = rows, cols, false
	return nil
}

// FetchRow returns the next row keyed by column name. It reports false
// once the result set is drained.
func (s *Stmt) FetchRow() (map[string]any, bool, error) {
	if s.rows == nil {
		return nil, false, errors.New("dialect/sql: fetch: statement was not executed")
	}
	if s.done {
		return nil, false, nil
	}
	if !s.rows.Next() {
		s.done = true
		if err := s.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("dialect/sql: fetch: %w", err)
		}
		return nil, false, s.rows.Close()
	}
	values := make([]any, len(s.cols))
	dest := make([]any, len(s.cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		return nil, false, fmt.Errorf("dialect/sql: fetch: %w", err)
	}
	row := make(map[string]any, len(s.cols))
	for i, c := range s.cols {
		if b, ok := values[i].([]byte); ok {
			row[c] = string(b)
			continue
		}
		row[c] = values[i]
	}
	return row, true, nil
}

// Close releases the result set, the statement and any dedicated connection.
func (s *Stmt) Close() error {
	err := errors.Join(s.closeRows(), s.stmt.Close())
	if s.closer != nil {
		err = errors.Join(err, s.closer())
		s.closer = nil
	}
	return err
}

func (s *Stmt) closeRows() error {
	if s.rows == nil {
		return nil
	}
	err := s.rows.Close()
	s.rows, s.cols = nil, nil
	return err
}
