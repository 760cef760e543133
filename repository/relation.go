package repository

import (
	"context"
	"sort"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/query"
)

// RelationSelectBuilder queries the records related to one owner record
// through one relation.
type RelationSelectBuilder struct {
	mgr          *Manager
	owner        *entity.Entity
	relation     string
	relationType entity.RelationType
	target       string
	// middle is the alias of the middle table of a many-to-many relation.
	middle  string
	b       *query.Builder
	columns []query.SelectItem
	err     error
}

var _ query.Fluent[*RelationSelectBuilder] = (*RelationSelectBuilder)(nil)

// Relation returns the relation name.
func (r *RelationSelectBuilder) Relation() string { return r.relation }

// RelationType returns the declared type of the relation.
func (r *RelationSelectBuilder) RelationType() entity.RelationType { return r.relationType }

// EntityType returns the entity type of the related records.
func (r *RelationSelectBuilder) EntityType() string { return r.target }

// Err returns the first error recorded by a fluent call.
func (r *RelationSelectBuilder) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.b.Err()
}

// Columns selects columns of the middle table of a many-to-many relation,
// keyed by column attribute with the result alias as value. An empty alias
// keeps the attribute name. Other relation types record an
// InvalidRelationTypeError.
func (r *RelationSelectBuilder) Columns(columns map[string]string) *RelationSelectBuilder {
	if r.Err() != nil || len(columns) == 0 {
		return r
	}
	if r.relationType != entity.ManyMany {
		r.err = rdb.NewInvalidRelationTypeError(r.relation, string(r.relationType), string(entity.ManyMany))
		return r
	}
	attrs := make([]string, 0, len(columns))
	for attr := range columns {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		alias := columns[attr]
		if alias == "" {
			alias = attr
		}
		r.columns = append(r.columns, query.Expr(r.middle+"."+attr).As(alias))
	}
	return r
}

func (r *RelationSelectBuilder) Select(arg query.SelectArg) *RelationSelectBuilder {
	r.b.Select(arg)
	return r
}

func (r *RelationSelectBuilder) Distinct() *RelationSelectBuilder { r.b.Distinct(); return r }
func (r *RelationSelectBuilder) Sth() *RelationSelectBuilder      { r.b.Sth(); return r }

func (r *RelationSelectBuilder) GroupBy(attrs ...string) *RelationSelectBuilder {
	r.b.GroupBy(attrs...)
	return r
}

func (r *RelationSelectBuilder) Where(arg query.WhereArg) *RelationSelectBuilder {
	r.b.Where(arg)
	return r
}

func (r *RelationSelectBuilder) Having(arg query.WhereArg) *RelationSelectBuilder {
	r.b.Having(arg)
	return r
}

func (r *RelationSelectBuilder) Join(arg query.JoinArg) *RelationSelectBuilder {
	r.b.Join(arg)
	return r
}

func (r *RelationSelectBuilder) LeftJoin(arg query.JoinArg) *RelationSelectBuilder {
	r.b.LeftJoin(arg)
	return r
}

func (r *RelationSelectBuilder) Order(by query.Ordering, dir ...query.Direction) *RelationSelectBuilder {
	r.b.Order(by, dir...)
	return r
}

func (r *RelationSelectBuilder) Limit(offset, limit int) *RelationSelectBuilder {
	r.b.Limit(offset, limit)
	return r
}

func (r *RelationSelectBuilder) Offset(offset int) *RelationSelectBuilder {
	r.b.Offset(offset)
	return r
}

// Build returns the descriptor Find runs: the select list defaults to every
// attribute and is followed by the middle table columns.
func (r *RelationSelectBuilder) Build() (*query.Descriptor, error) {
	if r.err != nil {
		return nil, r.err
	}
	q, err := r.b.Build()
	if err != nil {
		return nil, err
	}
	raw := q.Raw()
	if len(raw.Select) == 0 {
		raw.Select = []query.SelectItem{query.Expr(query.All)}
	}
	raw.Select = append(raw.Select, r.columns...)
	return query.FromRaw(raw)
}

// Find returns the related records. A to-one relation yields a fetched
// list of zero or one record.
func (r *RelationSelectBuilder) Find(ctx context.Context) (entity.Collection, error) {
	q, err := r.Build()
	if err != nil {
		return nil, err
	}
	return r.find(ctx, q)
}

func (r *RelationSelectBuilder) find(ctx context.Context, q *query.Descriptor) (entity.Collection, error) {
	r.mgr.logger.DebugContext(ctx, "find related", "entity", r.owner.EntityType(), "relation", r.relation)
	res, err := r.mgr.mapper.SelectRelated(ctx, r.owner, r.relation, q)
	if err != nil {
		return nil, err
	}
	if res.Collection != nil {
		return res.Collection, nil
	}
	list := r.mgr.collections.CreateCollection(r.target)
	if res.Entity != nil {
		list.Append(res.Entity)
	}
	list.SetAsFetched()
	return list, nil
}

// FindOne returns the first related record, or nil when there is none.
func (r *RelationSelectBuilder) FindOne(ctx context.Context) (*entity.Entity, error) {
	q, err := r.Build()
	if err != nil {
		return nil, err
	}
	if q, err = firstOnly(q); err != nil {
		return nil, err
	}
	c, err := r.find(ctx, q)
	if err != nil {
		return nil, err
	}
	return first(ctx, c)
}

// Count returns the number of related records.
func (r *RelationSelectBuilder) Count(ctx context.Context) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	q, err := r.b.Build()
	if err != nil {
		return 0, err
	}
	return r.mgr.mapper.CountRelated(ctx, r.owner, r.relation, q)
}
