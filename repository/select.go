package repository

import (
	"context"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/query"
)

// SelectBuilder is a query builder bound to one entity type and a mapper.
type SelectBuilder struct {
	mgr *Manager
	b   *query.Builder
}

var _ query.Fluent[*SelectBuilder] = (*SelectBuilder)(nil)

// From binds the entity type. Binding another type than the bound one
// records a RebindError.
func (s *SelectBuilder) From(entityType string) *SelectBuilder {
	s.b.From(entityType)
	return s
}

// Clone resets the builder to q, binding its entity type.
func (s *SelectBuilder) Clone(q *query.Descriptor) *SelectBuilder {
	if bound := s.b.EntityType(); bound != "" && bound != q.From() {
		// Records the RebindError.
		s.b.From(q.From())
		return s
	}
	s.b.Clone(q)
	return s
}

// EntityType returns the bound entity type.
func (s *SelectBuilder) EntityType() string { return s.b.EntityType() }

// Err returns the first error recorded by a fluent call.
func (s *SelectBuilder) Err() error { return s.b.Err() }

// Build returns the descriptor of the current state.
func (s *SelectBuilder) Build() (*query.Descriptor, error) { return s.b.Build() }

func (s *SelectBuilder) Select(arg query.SelectArg) *SelectBuilder { s.b.Select(arg); return s }
func (s *SelectBuilder) Distinct() *SelectBuilder                  { s.b.Distinct(); return s }
func (s *SelectBuilder) GroupBy(attrs ...string) *SelectBuilder    { s.b.GroupBy(attrs...); return s }
func (s *SelectBuilder) Where(arg query.WhereArg) *SelectBuilder   { s.b.Where(arg); return s }
func (s *SelectBuilder) Having(arg query.WhereArg) *SelectBuilder  { s.b.Having(arg); return s }
func (s *SelectBuilder) Join(arg query.JoinArg) *SelectBuilder     { s.b.Join(arg); return s }
func (s *SelectBuilder) LeftJoin(arg query.JoinArg) *SelectBuilder { s.b.LeftJoin(arg); return s }
func (s *SelectBuilder) Limit(offset, limit int) *SelectBuilder    { s.b.Limit(offset, limit); return s }
func (s *SelectBuilder) Offset(offset int) *SelectBuilder          { s.b.Offset(offset); return s }
func (s *SelectBuilder) Sth() *SelectBuilder                       { s.b.Sth(); return s }

func (s *SelectBuilder) Order(by query.Ordering, dir ...query.Direction) *SelectBuilder {
	s.b.Order(by, dir...)
	return s
}

// build returns the descriptor for a terminal operation.
func (s *SelectBuilder) build(op string) (*query.Descriptor, error) {
	if s.b.EntityType() == "" {
		return nil, rdb.NewNotExecutableError(op)
	}
	return s.b.Build()
}

// Find returns the matched records. After Sth the collection is a cursor
// that reads on iteration.
func (s *SelectBuilder) Find(ctx context.Context) (entity.Collection, error) {
	q, err := s.build("find")
	if err != nil {
		return nil, err
	}
	return s.find(ctx, q)
}

func (s *SelectBuilder) find(ctx context.Context, q *query.Descriptor) (entity.Collection, error) {
	s.mgr.logger.DebugContext(ctx, "find", "entity", q.From(), "streamed", q.Streamed())
	return s.mgr.mapper.Select(ctx, q)
}

// FindOne returns the first matched record, or nil when nothing matches.
// The builder keeps its own paging.
func (s *SelectBuilder) FindOne(ctx context.Context) (*entity.Entity, error) {
	q, err := s.build("findOne")
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, q)
}

func (s *SelectBuilder) findOne(ctx context.Context, q *query.Descriptor) (*entity.Entity, error) {
	q, err := firstOnly(q)
	if err != nil {
		return nil, err
	}
	c, err := s.find(ctx, q)
	if err != nil {
		return nil, err
	}
	return first(ctx, c)
}

// Count returns the number of matched records.
func (s *SelectBuilder) Count(ctx context.Context) (int, error) {
	q, err := s.build("count")
	if err != nil {
		return 0, err
	}
	return s.mgr.mapper.Count(ctx, q)
}

// Max returns the greatest value of attr among the matched records.
func (s *SelectBuilder) Max(ctx context.Context, attr string) (float64, error) {
	q, err := s.build("max")
	if err != nil {
		return 0, err
	}
	return s.mgr.mapper.Max(ctx, q, attr)
}

// Min returns the least value of attr among the matched records.
func (s *SelectBuilder) Min(ctx context.Context, attr string) (float64, error) {
	q, err := s.build("min")
	if err != nil {
		return 0, err
	}
	return s.mgr.mapper.Min(ctx, q, attr)
}

// Sum returns the sum of attr over the matched records.
func (s *SelectBuilder) Sum(ctx context.Context, attr string) (float64, error) {
	q, err := s.build("sum")
	if err != nil {
		return 0, err
	}
	return s.mgr.mapper.Sum(ctx, q, attr)
}

// FindWithParams is Find with raw parameters merged over the builder state.
//
// Deprecated: express the parameters with builder calls.
func (s *SelectBuilder) FindWithParams(ctx context.Context, params query.Raw) (entity.Collection, error) {
	q, err := s.merged("find", params)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, q)
}

// FindOneWithParams is FindOne with raw parameters merged over the builder
// state.
//
// Deprecated: express the parameters with builder calls.
func (s *SelectBuilder) FindOneWithParams(ctx context.Context, params query.Raw) (*entity.Entity, error) {
	q, err := s.merged("findOne", params)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, q)
}

// CountWithParams is Count with raw parameters merged over the builder
// state.
//
// Deprecated: express the parameters with builder calls.
func (s *SelectBuilder) CountWithParams(ctx context.Context, params query.Raw) (int, error) {
	q, err := s.merged("count", params)
	if err != nil {
		return 0, err
	}
	return s.mgr.mapper.Count(ctx, q)
}

func (s *SelectBuilder) merged(op string, params query.Raw) (*query.Descriptor, error) {
	q, err := s.build(op)
	if err != nil {
		return nil, err
	}
	if params.From != "" && params.From != q.From() {
		return nil, rdb.NewRebindError(q.From(), params.From)
	}
	return query.FromRaw(query.MergeLegacy(q.Raw(), params))
}

// firstOnly returns q limited to its first record.
func firstOnly(q *query.Descriptor) (*query.Descriptor, error) {
	raw := q.Raw()
	offset, limit := 0, 1
	raw.Offset, raw.Limit = &offset, &limit
	return query.FromRaw(raw)
}

func first(ctx context.Context, c entity.Collection) (*entity.Entity, error) {
	for e, err := range c.All(ctx) {
		return e, err
	}
	return nil, nil
}
