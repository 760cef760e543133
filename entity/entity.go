package entity

import (
	"maps"
	"sort"
)

// MetadataProvider exposes the relation metadata of a record.
type MetadataProvider interface {
	EntityType() string
	RelationType(relation string) RelationType
	RelationParam(relation, key string) (any, bool)
}

// Entity is a record of some entity type: a set of attribute values plus
// the definition describing its relations.
type Entity struct {
	entityType string
	def        *Definition
	values     map[string]any
	fetched    bool
}

var _ MetadataProvider = (*Entity)(nil)

// New returns an empty record of the given definition.
func New(def *Definition) *Entity {
	return &Entity{entityType: def.Type, def: def, values: make(map[string]any)}
}

// NewOfType returns an empty record of a type without a definition.
// Such records have no relations.
func NewOfType(entityType string) *Entity {
	return &Entity{entityType: entityType, values: make(map[string]any)}
}

// EntityType returns the entity type name.
func (e *Entity) EntityType() string { return e.entityType }

// Definition returns the definition of the record, or nil.
func (e *Entity) Definition() *Definition { return e.def }

// ID returns the value of the id attribute.
func (e *Entity) ID() any { return e.values["id"] }

// Get returns the value of an attribute.
func (e *Entity) Get(attr string) any { return e.values[attr] }

// Has reports whether the attribute was set.
func (e *Entity) Has(attr string) bool {
	_, ok := e.values[attr]
	return ok
}

// Set sets the value of an attribute.
func (e *Entity) Set(attr string, v any) { e.values[attr] = v }

// SetMany sets several attribute values.
func (e *Entity) SetMany(values map[string]any) { maps.Copy(e.values, values) }

// Attributes returns the names of the set attributes in lexical order.
func (e *Entity) Attributes() []string {
	names := make([]string, 0, len(e.values))
	for k := range e.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValueMap returns a copy of the attribute values.
func (e *Entity) ValueMap() map[string]any { return maps.Clone(e.values) }

// IsFetched reports whether the record was loaded from storage.
func (e *Entity) IsFetched() bool { return e.fetched }

// SetAsFetched marks the record as loaded from storage.
func (e *Entity) SetAsFetched() { e.fetched = true }

// SetAsNotFetched clears the fetched flag.
func (e *Entity) SetAsNotFetched() { e.fetched = false }

// Relation returns the declared relation with the given name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	if e.def == nil {
		return nil, false
	}
	return e.def.Relation(name)
}

// RelationType returns the type of a relation, or the empty string when the
// relation is not declared.
func (e *Entity) RelationType(name string) RelationType {
	r, ok := e.Relation(name)
	if !ok {
		return ""
	}
	return r.Type
}

// RelationParam returns a relation parameter such as ParamEntity or
// ParamRelationName.
func (e *Entity) RelationParam(name, key string) (any, bool) {
	r, ok := e.Relation(name)
	if !ok {
		return nil, false
	}
	return r.Param(key)
}
