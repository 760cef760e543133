package entity

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

// RelationType is the declared kind of a relation.
type RelationType string

// Relation types.
const (
	BelongsTo RelationType = "belongsTo"
	HasOne    RelationType = "hasOne"
	HasMany   RelationType = "hasMany"
	ManyMany  RelationType = "manyMany"
)

// ToOne reports whether the relation points at a single record.
func (t RelationType) ToOne() bool { return t == BelongsTo || t == HasOne }

// Relation parameter keys accepted by RelationParam.
const (
	ParamType         = "type"
	ParamEntity       = "entity"
	ParamKey          = "key"
	ParamForeignKey   = "foreignKey"
	ParamRelationName = "relationName"
	ParamMidKeys      = "midKeys"
)

// Relation declares an association of an entity with another entity type.
//
// For belongsTo Key is the local attribute holding the foreign id and
// ForeignKey the referenced attribute. For hasOne and hasMany Key is the
// local attribute and ForeignKey the attribute of the foreign entity
// pointing back. For manyMany RelationName names the middle entity and
// MidKeys holds its near and distant key attributes.
type Relation struct {
	Name         string       `yaml:"-"`
	Type         RelationType `yaml:"type"`
	Entity       string       `yaml:"entity"`
	Key          string       `yaml:"key,omitempty"`
	ForeignKey   string       `yaml:"foreignKey,omitempty"`
	RelationName string       `yaml:"relationName,omitempty"`
	MidKeys      []string     `yaml:"midKeys,omitempty"`
}

// Param returns the relation parameter with the given key.
func (r Relation) Param(key string) (any, bool) {
	switch key {
	case ParamType:
		return r.Type, true
	case ParamEntity:
		return r.Entity, true
	case ParamKey:
		return r.Key, true
	case ParamForeignKey:
		return r.ForeignKey, true
	case ParamRelationName:
		return r.RelationName, r.RelationName != ""
	case ParamMidKeys:
		return append([]string(nil), r.MidKeys...), len(r.MidKeys) == 2
	default:
		return nil, false
	}
}

// Attribute is a stored attribute of an entity.
type Attribute struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column,omitempty"`
	Type   string `yaml:"type,omitempty"`
}

// Definition describes one entity type.
type Definition struct {
	Type       string               `yaml:"-"`
	Table      string               `yaml:"table,omitempty"`
	Attributes []Attribute          `yaml:"attributes"`
	Relations  map[string]*Relation `yaml:"relations,omitempty"`
}

// TableName returns the table of the entity, derived from the type when not
// declared.
func (d *Definition) TableName() string {
	if d.Table != "" {
		return d.Table
	}
	return inflect.Underscore(d.Type)
}

// Attribute returns the attribute with the given name.
func (d *Definition) Attribute(name string) (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// AttributeNames returns the attribute names in declaration order.
func (d *Definition) AttributeNames() []string {
	names := make([]string, len(d.Attributes))
	for i, a := range d.Attributes {
		names[i] = a.Name
	}
	return names
}

// Column returns the column of an attribute.
func (d *Definition) Column(attr string) string {
	if a, ok := d.Attribute(attr); ok && a.Column != "" {
		return a.Column
	}
	return ColumnName(attr)
}

// Relation returns the relation with the given name.
func (d *Definition) Relation(name string) (*Relation, bool) {
	r, ok := d.Relations[name]
	return r, ok
}

// RelationNames returns the relation names in lexical order.
func (d *Definition) RelationNames() []string {
	names := make([]string, 0, len(d.Relations))
	for n := range d.Relations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ColumnName converts an attribute name to a column name.
func ColumnName(attr string) string { return inflect.Underscore(attr) }

// AttributeName converts a column name to an attribute name.
func AttributeName(column string) string { return LowerFirst(column) }

// LowerFirst lowercases the first letter of an entity or relation name.
func LowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return inflect.CamelizeDownFirst(s)
}

func (d *Definition) normalize() error {
	if d.Type == "" {
		return fmt.Errorf("entity: definition without type")
	}
	for name, r := range d.Relations {
		if r == nil {
			return fmt.Errorf("entity: %s: relation %q is empty", d.Type, name)
		}
		r.Name = name
		if r.Entity == "" {
			return fmt.Errorf("entity: %s: relation %q has no entity", d.Type, name)
		}
		switch r.Type {
		case BelongsTo:
			if r.Key == "" {
				r.Key = name + "Id"
			}
			if r.ForeignKey == "" {
				r.ForeignKey = "id"
			}
		case HasOne, HasMany:
			if r.Key == "" {
				r.Key = "id"
			}
			if r.ForeignKey == "" {
				r.ForeignKey = LowerFirst(d.Type) + "Id"
			}
		case ManyMany:
			if r.Key == "" {
				r.Key = "id"
			}
			if r.ForeignKey == "" {
				r.ForeignKey = "id"
			}
			if r.RelationName == "" {
				pair := []string{d.Type, r.Entity}
				sort.Strings(pair)
				r.RelationName = pair[0] + pair[1]
			}
			if len(r.MidKeys) == 0 {
				r.MidKeys = []string{LowerFirst(d.Type) + "Id", LowerFirst(r.Entity) + "Id"}
			}
			if len(r.MidKeys) != 2 {
				return fmt.Errorf("entity: %s: relation %q needs two midKeys", d.Type, name)
			}
		default:
			return fmt.Errorf("entity: %s: relation %q has unknown type %q", d.Type, name, r.Type)
		}
	}
	return nil
}

// Registry holds the entity definitions known to an application.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns a registry holding the given definitions.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a definition, filling in relation defaults.
func (r *Registry) Register(d *Definition) error {
	if err := d.normalize(); err != nil {
		return err
	}
	if _, ok := r.defs[d.Type]; ok {
		return fmt.Errorf("entity: %s registered twice", d.Type)
	}
	r.defs[d.Type] = d
	return nil
}

// Definition returns the definition of an entity type.
func (r *Registry) Definition(entityType string) (*Definition, bool) {
	d, ok := r.defs[entityType]
	return d, ok
}

// Types returns the registered entity types in lexical order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

type registryFile struct {
	Entities map[string]*Definition `yaml:"entities"`
}

// LoadYAML reads entity definitions from a YAML document of the form:
//
//	entities:
//	  Account:
//	    table: account
//	    attributes:
//	      - name: id
//	      - name: name
//	    relations:
//	      contacts:
//	        type: manyMany
//	        entity: Contact
//	        relationName: AccountContact
func LoadYAML(r io.Reader) (*Registry, error) {
	var f registryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("entity: decode metadata: %w", err)
	}
	reg := &Registry{defs: make(map[string]*Definition, len(f.Entities))}
	for _, name := range sortedKeys(f.Entities) {
		d := f.Entities[name]
		if d == nil {
			d = &Definition{}
		}
		d.Type = name
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadFile reads entity definitions from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("entity: open metadata: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
