package query

import "reflect"

// Logical operator keys of a condition tree. Their values are nested clauses.
const (
	KeyOr  = "OR"
	KeyAnd = "AND"
	KeyNot = "NOT"
)

// Item is one entry of a condition tree.
//
// A keyed item compares an attribute, the key carrying an optional operator
// suffix ("status", "status!=", "amount>=", "name*"), or combines a nested
// Clause under OR, AND or NOT. A positional item has an empty key and a
// nested Clause as its value.
type Item struct {
	Key   string
	Value any
}

// Positional reports whether the item is a nested group without a key.
func (i Item) Positional() bool { return i.Key == "" }

func (i Item) clone() Item {
	return Item{Key: i.Key, Value: cloneValue(i.Value)}
}

// Clause is an ordered condition tree. Items are combined with AND.
type Clause []Item

// Cond returns a keyed condition item.
func Cond(key string, value any) Item { return Item{Key: key, Value: value} }

// Group returns a positional item holding a nested clause.
func Group(c Clause) Item { return Item{Value: c} }

// Or returns an item matching when any of the items matches.
func Or(items ...Item) Item { return Item{Key: KeyOr, Value: Clause(items)} }

// And returns an item matching when all of the items match.
func And(items ...Item) Item { return Item{Key: KeyAnd, Value: Clause(items)} }

// Not returns an item negating the conjunction of the items.
func Not(items ...Item) Item { return Item{Key: KeyNot, Value: Clause(items)} }

// Get returns the value of the first keyed item with the given key.
func (c Clause) Get(key string) (any, bool) {
	if i := c.index(key); i >= 0 {
		return c[i].Value, true
	}
	return nil, false
}

// Has reports whether a keyed item with the given key exists.
func (c Clause) Has(key string) bool { return c.index(key) >= 0 }

func (c Clause) index(key string) int {
	if key == "" {
		return -1
	}
	for i, it := range c {
		if it.Key == key {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the clause.
func (c Clause) Clone() Clause {
	if c == nil {
		return nil
	}
	out := make(Clause, len(c))
	for i, it := range c {
		out[i] = it.clone()
	}
	return out
}

// cloneValue copies clauses, slices and maps so a descriptor never shares
// them with the caller.
func cloneValue(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case Clause:
		return v.Clone()
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		for it := rv.MapRange(); it.Next(); {
			out.SetMapIndex(it.Key(), it.Value())
		}
		return out.Interface()
	default:
		return v
	}
}

// mergeFirstWins adds the items of added to existing. A keyed item whose key
// is already registered in existing is dropped; positional items are appended.
func mergeFirstWins(existing, added Clause) Clause {
	out := existing.Clone()
	for _, it := range added {
		if !it.Positional() && existing.Has(it.Key) {
			continue
		}
		out = append(out, it.clone())
	}
	return out
}

// WhereArg is accepted by Where and Having. It is implemented by Clause,
// merged into the existing tree, and by KeyValue, appended as a singleton.
type WhereArg interface {
	whereArg()
}

func (Clause) whereArg() {}

// KeyValue is a single key and value condition.
type KeyValue struct {
	Key   string
	Value any
}

func (KeyValue) whereArg() {}

// KV returns a key and value condition for Where and Having.
func KV(key string, value any) KeyValue { return KeyValue{Key: key, Value: value} }

// applyWhere applies a WhereArg to a clause, returning a usage message on a
// shape that is neither a clause nor a complete key and value pair.
func applyWhere(c Clause, arg WhereArg) (Clause, string) {
	switch arg := arg.(type) {
	case Clause:
		return mergeFirstWins(c, arg), ""
	case KeyValue:
		if arg.Key == "" {
			return c, "a key is required"
		}
		if arg.Value == nil {
			return c, "a value is required for key " + arg.Key
		}
		return append(c.Clone(), Group(Clause{Cond(arg.Key, arg.Value)})), ""
	default:
		return c, "a clause or a key and value are required"
	}
}
