package query

import "strings"

// Direction is an ORDER BY direction.
type Direction string

// Order directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

func (d Direction) normalize() (Direction, bool) {
	switch Direction(strings.ToUpper(string(d))) {
	case Asc, "":
		return Asc, true
	case Desc:
		return Desc, true
	default:
		return d, false
	}
}

// Ordering is accepted by Order. It is implemented by Attr, a single
// attribute ordered in the query's direction, and by OrderList, which
// carries a direction per attribute.
type Ordering interface {
	ordering()
	isEmpty() bool
}

// Attr orders by a single attribute.
type Attr string

func (Attr) ordering()       {}
func (a Attr) isEmpty() bool { return a == "" }

// OrderItem is an attribute and its direction.
type OrderItem struct {
	Attr string
	Dir  Direction
}

// OrderList orders by several attributes, each with its own direction.
type OrderList []OrderItem

func (OrderList) ordering()       {}
func (l OrderList) isEmpty() bool { return len(l) == 0 }

func cloneOrdering(o Ordering) Ordering {
	if l, ok := o.(OrderList); ok {
		return append(OrderList(nil), l...)
	}
	return o
}
