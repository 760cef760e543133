package entity

import (
	"context"
	"iter"
)

// Collection is a sequence of records of one entity type. Implementations
// may be materialized lists or lazily executed cursors.
type Collection interface {
	EntityType() string
	IsFetched() bool
	SetAsFetched()
	SetAsNotFetched()
	// All returns an iterator over the records. A non-nil error ends the
	// sequence.
	All(ctx context.Context) iter.Seq2[*Entity, error]
	ToArray(ctx context.Context) ([]*Entity, error)
	ValueMapList(ctx context.Context) ([]map[string]any, error)
}

// List is an in-memory collection.
type List struct {
	entityType string
	items      []*Entity
	fetched    bool
}

var _ Collection = (*List)(nil)

// NewList returns a list of the given records.
func NewList(entityType string, items ...*Entity) *List {
	return &List{entityType: entityType, items: items}
}

// EntityType returns the entity type of the records.
func (l *List) EntityType() string { return l.entityType }

// IsFetched reports whether the list was loaded from storage.
func (l *List) IsFetched() bool { return l.fetched }

// SetAsFetched marks the list as loaded from storage.
func (l *List) SetAsFetched() { l.fetched = true }

// SetAsNotFetched clears the fetched flag.
func (l *List) SetAsNotFetched() { l.fetched = false }

// Append adds records to the list.
func (l *List) Append(es ...*Entity) { l.items = append(l.items, es...) }

// Len returns the number of records.
func (l *List) Len() int { return len(l.items) }

// At returns the i-th record.
func (l *List) At(i int) *Entity { return l.items[i] }

// All returns an iterator over the records.
func (l *List) All(ctx context.Context) iter.Seq2[*Entity, error] {
	return func(yield func(*Entity, error) bool) {
		for _, e := range l.items {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// ToArray returns the records as a slice.
func (l *List) ToArray(context.Context) ([]*Entity, error) {
	return append([]*Entity(nil), l.items...), nil
}

// ValueMapList returns the attribute values of every record.
func (l *List) ValueMapList(context.Context) ([]map[string]any, error) {
	out := make([]map[string]any, len(l.items))
	for i, e := range l.items {
		out[i] = e.ValueMap()
	}
	return out, nil
}

// Collect drains any collection into a slice.
func Collect(ctx context.Context, c Collection) ([]*Entity, error) {
	var out []*Entity
	for e, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
