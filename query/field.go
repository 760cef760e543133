package query

// Field is a typed attribute name that builds condition items.
//
// Usage:
//
//	var Amount = query.Field[float64]("amount")
//	b.Where(query.Clause{Amount.GTE(100), Amount.NotNull()})
type Field[T any] string

// Name returns the attribute name.
func (f Field[T]) Name() string { return string(f) }

// EQ returns an item matching when the attribute equals the given value.
func (f Field[T]) EQ(v T) Item { return Cond(string(f), v) }

// NEQ returns an item matching when the attribute does not equal the given value.
func (f Field[T]) NEQ(v T) Item { return Cond(string(f)+"!=", v) }

// In returns an item matching when the attribute value is in the given list.
func (f Field[T]) In(vs ...T) Item { return Cond(string(f), toAny(vs)) }

// NotIn returns an item matching when the attribute value is not in the given list.
func (f Field[T]) NotIn(vs ...T) Item { return Cond(string(f)+"!=", toAny(vs)) }

// GT returns an item matching when the attribute is greater than the given value.
func (f Field[T]) GT(v T) Item { return Cond(string(f)+">", v) }

// GTE returns an item matching when the attribute is greater than or equal to the given value.
func (f Field[T]) GTE(v T) Item { return Cond(string(f)+">=", v) }

// LT returns an item matching when the attribute is less than the given value.
func (f Field[T]) LT(v T) Item { return Cond(string(f)+"<", v) }

// LTE returns an item matching when the attribute is less than or equal to the given value.
func (f Field[T]) LTE(v T) Item { return Cond(string(f)+"<=", v) }

// IsNull returns an item matching when the attribute is NULL.
func (f Field[T]) IsNull() Item { return Cond(string(f), nil) }

// NotNull returns an item matching when the attribute is not NULL.
func (f Field[T]) NotNull() Item { return Cond(string(f)+"!=", nil) }

// StringField is a string attribute with pattern matching conditions.
type StringField string

func (f StringField) field() Field[string] { return Field[string](f) }

// Name returns the attribute name.
func (f StringField) Name() string { return string(f) }

// EQ returns an item matching when the attribute equals the given value.
func (f StringField) EQ(v string) Item { return f.field().EQ(v) }

// NEQ returns an item matching when the attribute does not equal the given value.
func (f StringField) NEQ(v string) Item { return f.field().NEQ(v) }

// In returns an item matching when the attribute value is in the given list.
func (f StringField) In(vs ...string) Item { return f.field().In(vs...) }

// NotIn returns an item matching when the attribute value is not in the given list.
func (f StringField) NotIn(vs ...string) Item { return f.field().NotIn(vs...) }

// IsNull returns an item matching when the attribute is NULL.
func (f StringField) IsNull() Item { return f.field().IsNull() }

// NotNull returns an item matching when the attribute is not NULL.
func (f StringField) NotNull() Item { return f.field().NotNull() }

// Like returns an item matching the attribute against a LIKE pattern.
func (f StringField) Like(pattern string) Item { return Cond(string(f)+"*", pattern) }

// NotLike returns an item excluding attributes matching a LIKE pattern.
func (f StringField) NotLike(pattern string) Item { return Cond(string(f)+"!*", pattern) }

// Contains returns an item matching when the attribute contains the given substring.
func (f StringField) Contains(v string) Item { return f.Like("%" + v + "%") }

// HasPrefix returns an item matching when the attribute has the given prefix.
func (f StringField) HasPrefix(v string) Item { return f.Like(v + "%") }

// HasSuffix returns an item matching when the attribute has the given suffix.
func (f StringField) HasSuffix(v string) Item { return f.Like("%" + v) }

func toAny[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
