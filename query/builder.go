package query

import "github.com/syssam/rdb"

// Selecting is implemented by builders that control the select list.
type Selecting[B any] interface {
	Select(SelectArg) B
	Distinct() B
	GroupBy(...string) B
}

// Filtering is implemented by builders that accept conditions.
type Filtering[B any] interface {
	Where(WhereArg) B
	Having(WhereArg) B
}

// Joining is implemented by builders that accept joins.
type Joining[B any] interface {
	Join(JoinArg) B
	LeftJoin(JoinArg) B
}

// Sorting is implemented by builders that control ordering and paging.
type Sorting[B any] interface {
	Order(Ordering, ...Direction) B
	Limit(offset, limit int) B
	Offset(offset int) B
}

// Fluent is the full fluent surface shared by every builder.
type Fluent[B any] interface {
	Selecting[B]
	Filtering[B]
	Joining[B]
	Sorting[B]
	Sth() B
	Err() error
}

var _ Fluent[*Builder] = (*Builder)(nil)

// Build returns a descriptor of the current state. The builder stays usable
// and later changes do not affect descriptors that were already built.
func (b *Builder) Build() (*Descriptor, error) {
	if b.err != nil {
		return nil, b.err
	}
	return FromRaw(b.params)
}

// Clone resets the builder to the state of a built descriptor, clearing any
// recorded error.
func (b *Builder) Clone(q *Descriptor) *Builder {
	b.params = q.Raw()
	b.err = nil
	return b
}

// Having adds a HAVING condition with the same rules as Where.
func (b *Builder) Having(arg WhereArg) *Builder {
	if b.err != nil {
		return b
	}
	c, msg := applyWhere(b.params.HavingClause, arg)
	if msg != "" {
		return b.fail(rdb.NewUsageError("having", msg))
	}
	b.params.HavingClause = c
	return b
}

// Select specifies which expressions to select. All attributes are selected
// while the list is empty. A SelectItem is appended, a SelectList replaces
// the whole list:
//
//	b.Select(query.Expr("name"))
//	b.Select(query.Expr("COUNT:id").As("total"))
//	b.Select(query.SelectList{query.Expr("id"), query.Expr("name")})
func (b *Builder) Select(arg SelectArg) *Builder {
	if b.err != nil {
		return b
	}
	if arg == nil {
		return b.fail(rdb.NewUsageError("select", "an expression is required"))
	}
	s, msg := arg.applySelect(b.params.Select)
	if msg != "" {
		return b.fail(rdb.NewUsageError("select", msg))
	}
	b.params.Select = s
	return b
}

// GroupBy appends GROUP BY attributes.
func (b *Builder) GroupBy(attrs ...string) *Builder {
	if b.err != nil {
		return b
	}
	for _, a := range attrs {
		if a == "" {
			return b.fail(rdb.NewUsageError("groupBy", "an attribute is required"))
		}
	}
	b.params.GroupBy = append(cloneSlice(b.params.GroupBy), attrs...)
	return b
}

// Limit sets OFFSET and LIMIT.
func (b *Builder) Limit(offset, limit int) *Builder {
	if b.err != nil {
		return b
	}
	if offset < 0 || limit < 0 {
		return b.fail(rdb.NewUsageError("limit", "offset and limit must not be negative"))
	}
	b.params.Offset = &offset
	b.params.Limit = &limit
	return b
}

// Offset sets OFFSET alone, keeping any limit already set.
func (b *Builder) Offset(offset int) *Builder {
	if b.err != nil {
		return b
	}
	if offset < 0 {
		return b.fail(rdb.NewUsageError("offset", "offset must not be negative"))
	}
	b.params.Offset = &offset
	return b
}

// Sth requests a streaming cursor instead of a materialized collection.
// Recommended when fetching a large number of records.
func (b *Builder) Sth() *Builder {
	if b.err != nil {
		return b
	}
	b.params.Streamed = true
	return b
}
