package query

import "github.com/syssam/rdb"

// Raw holds the fields of a select query as plain values. It is the
// exchange format with callers that still pass parameter objects around;
// everything else should hold a Descriptor.
type Raw struct {
	From         string
	Distinct     bool
	Select       []SelectItem
	WhereClause  Clause
	HavingClause Clause
	Joins        []JoinSpec
	LeftJoins    []JoinSpec
	OrderBy      Ordering
	Order        Direction
	GroupBy      []string
	Offset       *int
	Limit        *int
	Streamed     bool
}

// Clone returns a deep copy of the raw fields.
func (r Raw) Clone() Raw {
	out := r
	out.Select = cloneSlice(r.Select)
	out.WhereClause = r.WhereClause.Clone()
	out.HavingClause = r.HavingClause.Clone()
	out.Joins = cloneJoins(r.Joins)
	out.LeftJoins = cloneJoins(r.LeftJoins)
	out.OrderBy = cloneOrdering(r.OrderBy)
	out.GroupBy = cloneSlice(r.GroupBy)
	out.Offset = cloneInt(r.Offset)
	out.Limit = cloneInt(r.Limit)
	return out
}

// Descriptor is an immutable select query. It is created by Builder.Build
// or FromRaw and is safe to share between goroutines.
type Descriptor struct {
	raw Raw
}

// FromRaw returns a descriptor for the given raw fields.
func FromRaw(r Raw) (*Descriptor, error) {
	if r.From == "" {
		return nil, rdb.NewUsageError("build", "an entity type to select from is required")
	}
	if r.Offset != nil && *r.Offset < 0 {
		return nil, rdb.NewUsageError("build", "offset must not be negative")
	}
	if r.Limit != nil && *r.Limit < 0 {
		return nil, rdb.NewUsageError("build", "limit must not be negative")
	}
	if r.OrderBy != nil && r.OrderBy.isEmpty() {
		r.OrderBy = nil
	}
	if r.Order != "" {
		dir, ok := r.Order.normalize()
		if !ok {
			return nil, rdb.NewUsageError("build", "unknown order direction "+string(r.Order))
		}
		r.Order = dir
	}
	return &Descriptor{raw: r.Clone()}, nil
}

// Raw returns a copy of the raw fields.
func (d *Descriptor) Raw() Raw { return d.raw.Clone() }

// From returns the entity type the query selects from.
func (d *Descriptor) From() string { return d.raw.From }

// Distinct reports whether duplicate rows are removed.
func (d *Descriptor) Distinct() bool { return d.raw.Distinct }

// Select returns the select list. An empty list selects all attributes.
func (d *Descriptor) Select() []SelectItem { return cloneSlice(d.raw.Select) }

// Where returns the WHERE condition tree.
func (d *Descriptor) Where() Clause { return d.raw.WhereClause.Clone() }

// Having returns the HAVING condition tree.
func (d *Descriptor) Having() Clause { return d.raw.HavingClause.Clone() }

// Joins returns the inner joins in the order they were added.
func (d *Descriptor) Joins() []JoinSpec { return cloneJoins(d.raw.Joins) }

// LeftJoins returns the left joins in the order they were added.
func (d *Descriptor) LeftJoins() []JoinSpec { return cloneJoins(d.raw.LeftJoins) }

// OrderBy returns the ordering, or nil when the query is unordered.
func (d *Descriptor) OrderBy() Ordering { return cloneOrdering(d.raw.OrderBy) }

// Order returns the direction used with an Attr ordering.
func (d *Descriptor) Order() Direction {
	if d.raw.Order == "" {
		return Asc
	}
	return d.raw.Order
}

// GroupBy returns the GROUP BY attributes.
func (d *Descriptor) GroupBy() []string { return cloneSlice(d.raw.GroupBy) }

// Offset returns the offset and whether one was set.
func (d *Descriptor) Offset() (int, bool) { return derefInt(d.raw.Offset) }

// Limit returns the limit and whether one was set.
func (d *Descriptor) Limit() (int, bool) { return derefInt(d.raw.Limit) }

// Streamed reports whether the result should be a streaming cursor.
func (d *Descriptor) Streamed() bool { return d.raw.Streamed }

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func derefInt(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
