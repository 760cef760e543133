package entity

// RecordFactory creates empty records.
type RecordFactory interface {
	Create(entityType string) *Entity
}

// CollectionFactory creates empty in-memory collections.
type CollectionFactory interface {
	CreateCollection(entityType string) *List
}

// Factory creates records and collections for the types of a registry.
type Factory struct {
	registry *Registry
}

var (
	_ RecordFactory     = (*Factory)(nil)
	_ CollectionFactory = (*Factory)(nil)
)

// NewFactory returns a factory backed by the registry.
func NewFactory(r *Registry) *Factory { return &Factory{registry: r} }

// Registry returns the registry of the factory.
func (f *Factory) Registry() *Registry { return f.registry }

// Create returns an empty record. Unknown types yield a record without
// relations.
func (f *Factory) Create(entityType string) *Entity {
	if f.registry != nil {
		if def, ok := f.registry.Definition(entityType); ok {
			return New(def)
		}
	}
	return NewOfType(entityType)
}

// CreateCollection returns an empty list of the given type.
func (f *Factory) CreateCollection(entityType string) *List {
	return NewList(entityType)
}
