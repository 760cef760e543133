package query

import "github.com/syssam/rdb"

// Builder accumulates the fields of a select query. Fluent methods return
// the builder for chaining. A call with an invalid argument shape records a
// UsageError that Err reports right away; once an error is recorded further
// mutations are ignored and Build fails with that error.
//
// A Builder is not safe for concurrent use. Hand the Descriptor returned by
// Build to other goroutines instead.
type Builder struct {
	params Raw
	err    error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Err returns the first error recorded by a fluent call.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// From sets the entity type to select from. Setting the same type again is
// a no-op; setting another type records a RebindError.
func (b *Builder) From(entityType string) *Builder {
	if b.err != nil {
		return b
	}
	switch {
	case entityType == "":
		return b.fail(rdb.NewUsageError("from", "an entity type is required"))
	case b.params.From == "":
		b.params.From = entityType
	case b.params.From != entityType:
		return b.fail(rdb.NewRebindError(b.params.From, entityType))
	}
	return b
}

// EntityType returns the entity type set by From or Clone.
func (b *Builder) EntityType() string { return b.params.From }

// Distinct removes duplicate rows from the result.
func (b *Builder) Distinct() *Builder {
	if b.err != nil {
		return b
	}
	b.params.Distinct = true
	return b
}

// Where adds a WHERE condition.
//
// A Clause is merged into the existing tree; keys that are already present
// keep their first registered value. A KeyValue is appended as a separate
// condition:
//
//	b.Where(query.Clause{query.Cond("status", "open"), query.Cond("amount>", 100)})
//	b.Where(query.KV("assignedUserId", id))
func (b *Builder) Where(arg WhereArg) *Builder {
	if b.err != nil {
		return b
	}
	c, msg := applyWhere(b.params.WhereClause, arg)
	if msg != "" {
		return b.fail(rdb.NewUsageError("where", msg))
	}
	b.params.WhereClause = c
	return b
}

// Order sets the ordering, replacing any previous one. The direction applies
// to an Attr ordering and defaults to ascending; an OrderList carries its
// own directions.
func (b *Builder) Order(by Ordering, dir ...Direction) *Builder {
	if b.err != nil {
		return b
	}
	if by == nil || by.isEmpty() {
		return b.fail(rdb.NewUsageError("order", "an attribute to order by is required"))
	}
	if len(dir) > 1 {
		return b.fail(rdb.NewUsageError("order", "at most one direction is accepted"))
	}
	d := Asc
	if len(dir) == 1 {
		var ok bool
		if d, ok = dir[0].normalize(); !ok {
			return b.fail(rdb.NewUsageError("order", "unknown direction "+string(dir[0])))
		}
	}
	b.params.OrderBy = cloneOrdering(by)
	b.params.Order = d
	return b
}

// Join adds an inner join. Joins are appended in call order and are never
// deduplicated:
//
//	b.Join(query.Rel("account"))
//	b.Join(query.Rel("account").As("a"))
//	b.Join(query.Rel("account").As("a").On(query.Clause{query.Cond("a.deleted", false)}))
//	b.Join(query.JoinList{query.Rel("teams"), query.Rel("assignedUser")})
func (b *Builder) Join(arg JoinArg) *Builder {
	if b.err != nil {
		return b
	}
	js, msg := appendJoins(b.params.Joins, arg)
	if msg != "" {
		return b.fail(rdb.NewUsageError("join", msg))
	}
	b.params.Joins = js
	return b
}

// LeftJoin adds a left join. It accepts the same shapes as Join.
func (b *Builder) LeftJoin(arg JoinArg) *Builder {
	if b.err != nil {
		return b
	}
	js, msg := appendJoins(b.params.LeftJoins, arg)
	if msg != "" {
		return b.fail(rdb.NewUsageError("leftJoin", msg))
	}
	b.params.LeftJoins = js
	return b
}
