package mapper

import (
	"context"
	"errors"
	"iter"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/query"
)

// ErrCursorConsumed is returned when a cursor that already started is
// executed or ranged again.
var ErrCursorConsumed = errors.New("mapper: cursor already consumed")

// State is the execution state of a Cursor.
type State int

// Cursor states. Transitions only go forward.
const (
	NotStarted State = iota
	Executing
	Exhausted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Executing:
		return "executing"
	default:
		return "exhausted"
	}
}

// Deps are the collaborators of a Cursor.
type Deps struct {
	Conn     Connection
	Composer QueryComposer
	Factory  entity.RecordFactory
}

// Cursor is a single-pass collection that fetches one row per step from a
// prepared statement. It reads nothing until Execute or the first Next.
//
//	c := mapper.NewCursor("Note", q, deps)
//	defer c.Close()
//	for c.Next(ctx) {
//		note := c.Entity()
//		...
//	}
//	if err := c.Err(); err != nil {
//		...
//	}
type Cursor struct {
	entityType string
	q          *query.Descriptor
	deps       Deps

	sql  string
	args []any

	stmt    Statement
	state   State
	current *entity.Entity
	err     error
	fetched bool
	stepped bool
}

var _ entity.Collection = (*Cursor)(nil)

// NewCursor returns a cursor over the records of entityType matched by q.
// The query is composed on execution unless SetQuery supplies one.
func NewCursor(entityType string, q *query.Descriptor, deps Deps) *Cursor {
	return &Cursor{entityType: entityType, q: q, deps: deps}
}

// NewCursorFromRaw returns a cursor for raw select parameters. The entity
// type overrides raw.From.
func NewCursorFromRaw(entityType string, raw query.Raw, deps Deps) (*Cursor, error) {
	raw.From = entityType
	q, err := query.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	return NewCursor(entityType, q, deps), nil
}

// SetQuery sets the SQL text run by the cursor instead of a composed one.
func (c *Cursor) SetQuery(sql string, args ...any) {
	c.sql, c.args = sql, args
}

// EntityType returns the entity type of the records.
func (c *Cursor) EntityType() string { return c.entityType }

// State returns the execution state.
func (c *Cursor) State() State { return c.state }

// IsFetched reports whether the cursor reads from storage.
func (c *Cursor) IsFetched() bool { return c.fetched }

// SetAsFetched marks the cursor as reading from storage.
func (c *Cursor) SetAsFetched() { c.fetched = true }

// SetAsNotFetched clears the fetched flag.
func (c *Cursor) SetAsNotFetched() { c.fetched = false }

// Execute prepares and runs the statement.
func (c *Cursor) Execute(ctx context.Context) error {
	if c.state != NotStarted {
		return ErrCursorConsumed
	}
	c.state = Executing
	if err := c.execute(ctx); err != nil {
		c.fail(err)
		return c.err
	}
	return nil
}

func (c *Cursor) execute(ctx context.Context) error {
	if c.sql == "" {
		if c.q == nil || c.deps.Composer == nil {
			return errors.New("mapper: cursor has neither a query nor a composer")
		}
		sql, args, err := c.deps.Composer.ComposeSelect(c.q)
		if err != nil {
			return err
		}
		c.sql, c.args = sql, args
	}
	stmt, err := c.deps.Conn.Prepare(ctx, c.sql)
	if err != nil {
		return rdb.NewQueryError(c.entityType, "prepare", err)
	}
	c.stmt = stmt
	if err := stmt.Execute(ctx, c.args...); err != nil {
		return rdb.NewQueryError(c.entityType, "select", err)
	}
	return nil
}

// Next advances to the next record, executing the statement on the first
// call. It returns false once the rows are drained or an error occurred.
func (c *Cursor) Next(ctx context.Context) bool {
	c.current, c.stepped = nil, true
	switch c.state {
	case NotStarted:
		if c.Execute(ctx) != nil {
			return false
		}
	case Exhausted:
		return false
	}
	if err := ctx.Err(); err != nil {
		c.fail(err)
		return false
	}
	row, ok, err := c.stmt.FetchRow()
	if err != nil {
		c.fail(rdb.NewQueryError(c.entityType, "fetch", err))
		return false
	}
	if !ok {
		c.fail(nil)
		return false
	}
	e := c.create()
	e.SetMany(row)
	e.SetAsFetched()
	c.current = e
	return true
}

func (c *Cursor) create() *entity.Entity {
	if c.deps.Factory == nil {
		return entity.NewOfType(c.entityType)
	}
	return c.deps.Factory.Create(c.entityType)
}

// fail records err, if any, and moves to Exhausted.
func (c *Cursor) fail(err error) {
	c.state = Exhausted
	if cerr := c.release(); err == nil {
		err = cerr
	}
	if c.err == nil {
		c.err = err
	}
}

// Entity returns the record Next advanced to.
func (c *Cursor) Entity() *entity.Entity { return c.current }

// Err returns the error that ended the iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Close releases the statement. It may be called in any state and more
// than once.
func (c *Cursor) Close() error {
	c.state = Exhausted
	c.current = nil
	return c.release()
}

func (c *Cursor) release() error {
	if c.stmt == nil {
		return nil
	}
	err := c.stmt.Close()
	c.stmt = nil
	return err
}

// All returns an iterator over the records. The statement is released when
// the loop ends, including on break. A cursor can be ranged once, before
// any call to Next.
func (c *Cursor) All(ctx context.Context) iter.Seq2[*entity.Entity, error] {
	return func(yield func(*entity.Entity, error) bool) {
		if c.stepped || c.state == Exhausted {
			yield(nil, ErrCursorConsumed)
			return
		}
		defer c.Close()
		for c.Next(ctx) {
			if !yield(c.current, nil) {
				return
			}
		}
		if c.err != nil {
			yield(nil, c.err)
		}
	}
}

// ToArray drains the cursor into a slice.
//
// Deprecated: it holds every record in memory. Range over All instead.
func (c *Cursor) ToArray(ctx context.Context) ([]*entity.Entity, error) {
	return entity.Collect(ctx, c)
}

// ValueMapList drains the cursor into the attribute values of every record.
//
// Deprecated: it holds every record in memory. Range over All instead.
func (c *Cursor) ValueMapList(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	for e, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, e.ValueMap())
	}
	return out, nil
}
