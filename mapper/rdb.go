package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/composer"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/query"
)

// RDB is a Mapper over a relational database.
type RDB struct {
	conn     Connection
	composer QueryComposer
	factory  Factory
	logger   *slog.Logger
}

var _ Mapper = (*RDB)(nil)

// Option configures an RDB mapper.
type Option func(*RDB)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(m *RDB) {
		m.logger = l
	}
}

// New returns a mapper running the queries of c on conn.
func New(conn Connection, c QueryComposer, f Factory, opts ...Option) *RDB {
	m := &RDB{
		conn:     conn,
		composer: c,
		factory:  f,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Select returns the records matched by q.
func (m *RDB) Select(ctx context.Context, q *query.Descriptor) (entity.Collection, error) {
	if q.Streamed() {
		c := NewCursor(q.From(), q, m.deps())
		c.SetAsFetched()
		m.logger.DebugContext(ctx, "streaming select", "entity", q.From())
		return c, nil
	}
	sql, args, err := m.composer.ComposeSelect(q)
	if err != nil {
		return nil, err
	}
	return m.list(ctx, q.From(), sql, args)
}

// Count returns the number of records matched by q.
func (m *RDB) Count(ctx context.Context, q *query.Descriptor) (int, error) {
	sql, args, err := m.composer.ComposeCount(q)
	if err != nil {
		return 0, err
	}
	v, err := m.scalar(ctx, q.From(), "count", sql, args)
	if err != nil {
		return 0, err
	}
	return toInt(q.From(), "count", v)
}

// Max returns the greatest value of attr among the records matched by q.
func (m *RDB) Max(ctx context.Context, q *query.Descriptor, attr string) (float64, error) {
	return m.aggregate(ctx, q, composer.Max, attr)
}

// Min returns the least value of attr among the records matched by q.
func (m *RDB) Min(ctx context.Context, q *query.Descriptor, attr string) (float64, error) {
	return m.aggregate(ctx, q, composer.Min, attr)
}

// Sum returns the sum of attr over the records matched by q.
func (m *RDB) Sum(ctx context.Context, q *query.Descriptor, attr string) (float64, error) {
	return m.aggregate(ctx, q, composer.Sum, attr)
}

func (m *RDB) aggregate(ctx context.Context, q *query.Descriptor, fn, attr string) (float64, error) {
	sql, args, err := m.composer.ComposeAggregate(q, fn, attr)
	if err != nil {
		return 0, err
	}
	v, err := m.scalar(ctx, q.From(), fn, sql, args)
	if err != nil {
		return 0, err
	}
	return toFloat(q.From(), fn, v)
}

// SelectRelated returns the records related to owner through relation.
func (m *RDB) SelectRelated(ctx context.Context, owner *entity.Entity, relation string, q *query.Descriptor) (Related, error) {
	typ := owner.RelationType(relation)
	if typ == "" {
		return Related{}, rdb.NewUnknownRelationError(owner.EntityType(), relation)
	}
	target, _ := owner.RelationParam(relation, entity.ParamEntity)
	targetType, _ := target.(string)
	sql, args, err := m.composer.ComposeRelated(owner, relation, q)
	if err != nil {
		return Related{}, err
	}
	if typ.ToOne() {
		list, err := m.list(ctx, targetType, sql, args)
		if err != nil {
			return Related{}, err
		}
		if list.Len() == 0 {
			return Related{}, nil
		}
		return Related{Entity: list.At(0)}, nil
	}
	if q != nil && q.Streamed() {
		c := NewCursor(targetType, q, m.deps())
		c.SetQuery(sql, args...)
		c.SetAsFetched()
		return Related{Collection: c}, nil
	}
	list, err := m.list(ctx, targetType, sql, args)
	if err != nil {
		return Related{}, err
	}
	return Related{Collection: list}, nil
}

// CountRelated returns the number of records related to owner through
// relation.
func (m *RDB) CountRelated(ctx context.Context, owner *entity.Entity, relation string, q *query.Descriptor) (int, error) {
	sql, args, err := m.composer.ComposeCountRelated(owner, relation, q)
	if err != nil {
		return 0, err
	}
	target, _ := owner.RelationParam(relation, entity.ParamEntity)
	targetType, _ := target.(string)
	v, err := m.scalar(ctx, targetType, "count", sql, args)
	if err != nil {
		return 0, err
	}
	return toInt(targetType, "count", v)
}

func (m *RDB) deps() Deps {
	return Deps{Conn: m.conn, Composer: m.composer, Factory: m.factory}
}

// list runs sql and materializes every row into a fetched list.
func (m *RDB) list(ctx context.Context, entityType, sql string, args []any) (*entity.List, error) {
	c := NewCursor(entityType, nil, m.deps())
	c.SetQuery(sql, args...)
	list := m.factory.CreateCollection(entityType)
	for e, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		list.Append(e)
	}
	list.SetAsFetched()
	m.logger.DebugContext(ctx, "select", "entity", entityType, "rows", list.Len())
	return list, nil
}

// scalar returns the value column of the first row.
func (m *RDB) scalar(ctx context.Context, entityType, op, sql string, args []any) (v any, rerr error) {
	stmt, err := m.conn.Prepare(ctx, sql)
	if err != nil {
		return nil, rdb.NewQueryError(entityType, op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil && rerr == nil {
			rerr = rdb.NewQueryError(entityType, op, err)
		}
	}()
	if err := stmt.Execute(ctx, args...); err != nil {
		return nil, rdb.NewQueryError(entityType, op, err)
	}
	row, ok, err := stmt.FetchRow()
	if err != nil {
		return nil, rdb.NewQueryError(entityType, op, err)
	}
	if !ok {
		return nil, nil
	}
	return row[composer.ValueAlias], nil
}

func toFloat(entityType, op string, v any) (float64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, rdb.NewQueryError(entityType, op, err)
		}
		return f, nil
	default:
		return 0, rdb.NewQueryError(entityType, op, fmt.Errorf("unexpected value type %T", v))
	}
}

func toInt(entityType, op string, v any) (int, error) {
	if n, ok := v.(int64); ok {
		return int(n), nil
	}
	f, err := toFloat(entityType, op, v)
	return int(f), err
}
