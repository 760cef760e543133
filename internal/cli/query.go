package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/rdb/query"
)

// QueryOptions holds the builder flags shared by the query commands.
type QueryOptions struct {
	Select   []string
	Distinct bool
	Where    []string
	Having   []string
	Join     []string
	LeftJoin []string
	GroupBy  []string
	Order    []string
	Offset   int
	Limit    int
	Streamed bool
}

func (o *QueryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&o.Select, "select", "s", nil, "selected expressions, expr or expr=alias")
	cmd.Flags().BoolVar(&o.Distinct, "distinct", false, "select distinct rows")
	cmd.Flags().StringArrayVarP(&o.Where, "where", "w", nil, "condition as attr<op>value, op one of = != > >= < <= * !* (repeatable)")
	cmd.Flags().StringArrayVar(&o.Having, "having", nil, "group condition, same syntax as --where (repeatable)")
	cmd.Flags().StringSliceVar(&o.Join, "join", nil, "inner joined relations, relation or relation=alias")
	cmd.Flags().StringSliceVar(&o.LeftJoin, "left-join", nil, "left joined relations, relation or relation=alias")
	cmd.Flags().StringSliceVar(&o.GroupBy, "group-by", nil, "grouping attributes")
	cmd.Flags().StringSliceVarP(&o.Order, "order", "o", nil, "ordering attributes, attr or attr:desc")
	cmd.Flags().IntVar(&o.Offset, "offset", 0, "records to skip")
	cmd.Flags().IntVarP(&o.Limit, "limit", "n", -1, "maximum records, negative for no limit")
	cmd.Flags().BoolVar(&o.Streamed, "stream", false, "read records through a cursor")
}

// apply replays the flags onto b. It returns the first usage error of the
// flags or of the builder.
func apply[B query.Fluent[B]](b B, o *QueryOptions) (B, error) {
	if len(o.Select) > 0 {
		items := make(query.SelectList, 0, len(o.Select))
		for _, s := range o.Select {
			expr, alias, _ := strings.Cut(s, "=")
			items = append(items, query.Expr(expr).As(alias))
		}
		b = b.Select(items)
	}
	if o.Distinct {
		b = b.Distinct()
	}
	where, err := parseClause(o.Where)
	if err != nil {
		return b, err
	}
	if len(where) > 0 {
		b = b.Where(where)
	}
	having, err := parseClause(o.Having)
	if err != nil {
		return b, err
	}
	if len(having) > 0 {
		b = b.Having(having)
	}
	if len(o.Join) > 0 {
		b = b.Join(parseJoins(o.Join))
	}
	if len(o.LeftJoin) > 0 {
		b = b.LeftJoin(parseJoins(o.LeftJoin))
	}
	if len(o.GroupBy) > 0 {
		b = b.GroupBy(o.GroupBy...)
	}
	if len(o.Order) > 0 {
		b = b.Order(parseOrder(o.Order))
	}
	switch {
	case o.Limit >= 0:
		b = b.Limit(o.Offset, o.Limit)
	case o.Offset != 0:
		b = b.Offset(o.Offset)
	}
	if o.Streamed {
		b = b.Sth()
	}
	return b, b.Err()
}

// operators are matched longest first.
var operators = []string{"!=", ">=", "<=", "!*", ">", "<", "=", "*"}

// parseClause parses conditions written as attr<op>value. NULL matches
// missing values and comma separated values of = and != match a list.
func parseClause(conds []string) (query.Clause, error) {
	var c query.Clause
	for _, s := range conds {
		i := strings.IndexAny(s, "!<>=*")
		if i <= 0 {
			return nil, fmt.Errorf("invalid condition %q: expected attr<op>value", s)
		}
		attr, rest := s[:i], s[i:]
		op := ""
		for _, candidate := range operators {
			if strings.HasPrefix(rest, candidate) {
				op = candidate
				break
			}
		}
		if op == "" {
			return nil, fmt.Errorf("invalid condition %q: unknown operator", s)
		}
		key, raw := attr, rest[len(op):]
		if op != "=" {
			key += op
		}
		c = append(c, query.Cond(key, parseValue(op, raw)))
	}
	return c, nil
}

func parseValue(op, raw string) any {
	if raw == "NULL" {
		return nil
	}
	if (op == "=" || op == "!=") && strings.Contains(raw, ",") {
		var vs []any
		for _, v := range strings.Split(raw, ",") {
			vs = append(vs, v)
		}
		return vs
	}
	return raw
}

func parseJoins(specs []string) query.JoinList {
	joins := make(query.JoinList, 0, len(specs))
	for _, s := range specs {
		rel, alias, ok := strings.Cut(s, "=")
		j := query.Rel(rel)
		if ok {
			j = j.As(alias)
		}
		joins = append(joins, j)
	}
	return joins
}

func parseOrder(specs []string) query.OrderList {
	order := make(query.OrderList, 0, len(specs))
	for _, s := range specs {
		attr, dir, _ := strings.Cut(s, ":")
		order = append(order, query.OrderItem{Attr: attr, Dir: query.Direction(dir)})
	}
	return order
}
