package query

// All is the select expression standing for every attribute of the entity.
const All = "*"

// SelectItem is one selected expression with an optional alias.
//
// Expressions are attribute names ("name"), attributes of a joined relation
// or middle table ("account.name"), or functions written as
// "FUNC:attribute" ("COUNT:id", "MAX:amount").
type SelectItem struct {
	Expr  string
	Alias string
}

// Expr returns a select item for a bare expression.
func Expr(expr string) SelectItem { return SelectItem{Expr: expr} }

// As returns the item with an alias.
func (s SelectItem) As(alias string) SelectItem {
	s.Alias = alias
	return s
}

// SelectList replaces the whole select list.
type SelectList []SelectItem

// SelectArg is accepted by Select. A SelectItem is appended to the select
// list, a SelectList replaces it.
type SelectArg interface {
	applySelect(cur []SelectItem) ([]SelectItem, string)
}

func (s SelectItem) applySelect(cur []SelectItem) ([]SelectItem, string) {
	if s.Expr == "" {
		return cur, "an expression is required"
	}
	return append(append([]SelectItem(nil), cur...), s), ""
}

func (l SelectList) applySelect(cur []SelectItem) ([]SelectItem, string) {
	for _, s := range l {
		if s.Expr == "" {
			return cur, "an expression is required"
		}
	}
	return append([]SelectItem{}, l...), ""
}
