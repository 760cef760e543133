package repository

import (
	"log/slog"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/mapper"
	"github.com/syssam/rdb/query"
)

// Manager hands out builders bound to a mapper.
type Manager struct {
	mapper      mapper.Mapper
	registry    *entity.Registry
	collections entity.CollectionFactory
	logger      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger of the manager and its builders.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithCollectionFactory sets the factory of the collections that wrap
// to-one related records.
func WithCollectionFactory(f entity.CollectionFactory) Option {
	return func(m *Manager) {
		m.collections = f
	}
}

// NewManager returns a manager running queries through m.
func NewManager(m mapper.Mapper, r *entity.Registry, opts ...Option) *Manager {
	mgr := &Manager{
		mapper:      m,
		registry:    r,
		collections: entity.NewFactory(r),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Mapper returns the mapper of the manager.
func (m *Manager) Mapper() mapper.Mapper { return m.mapper }

// Registry returns the metadata registry.
func (m *Manager) Registry() *entity.Registry { return m.registry }

// Select returns a builder without an entity type. From must be called
// before a terminal operation.
func (m *Manager) Select() *SelectBuilder {
	return &SelectBuilder{mgr: m, b: query.NewBuilder()}
}

// Query returns a builder bound to entityType.
func (m *Manager) Query(entityType string) *SelectBuilder {
	return m.Select().From(entityType)
}

// Related returns a builder over the records related to owner through
// relation. A non-nil q seeds the builder.
func (m *Manager) Related(owner *entity.Entity, relation string, q *query.Descriptor) (*RelationSelectBuilder, error) {
	typ := owner.RelationType(relation)
	if typ == "" {
		return nil, rdb.NewUnknownRelationError(owner.EntityType(), relation)
	}
	v, _ := owner.RelationParam(relation, entity.ParamEntity)
	target, _ := v.(string)
	rb := &RelationSelectBuilder{
		mgr:          m,
		owner:        owner,
		relation:     relation,
		relationType: typ,
		target:       target,
		b:            query.NewBuilder(),
	}
	if typ == entity.ManyMany {
		if name, ok := owner.RelationParam(relation, entity.ParamRelationName); ok {
			rb.middle = entity.LowerFirst(name.(string))
		}
	}
	if q == nil {
		rb.b.From(target)
		return rb, nil
	}
	if q.From() != target {
		return nil, rdb.NewRebindError(target, q.From())
	}
	rb.b.Clone(q)
	return rb, nil
}
