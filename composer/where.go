package composer

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/syssam/rdb/query"
)

// operators in match order; longer suffixes first.
var operators = []string{"!=", ">=", "<=", "!*", ">", "<", "=", "*"}

// splitKey separates an attribute expression from its operator suffix.
func splitKey(key string) (attr, op string) {
	for _, op := range operators {
		if strings.HasSuffix(key, op) && len(key) > len(op) {
			return key[:len(key)-len(op)], op
		}
	}
	return key, "="
}

// conditions compiles a clause into conjunctive parts.
func (s *scope) conditions(c query.Clause) ([]squirrel.Sqlizer, error) {
	parts := make([]squirrel.Sqlizer, 0, len(c))
	for _, it := range c {
		p, err := s.condition(it)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func (s *scope) nested(it query.Item) ([]squirrel.Sqlizer, error) {
	sub, ok := it.Value.(query.Clause)
	if !ok {
		return nil, fmt.Errorf("composer: %q expects a nested clause, got %T", it.Key, it.Value)
	}
	return s.conditions(sub)
}

func (s *scope) condition(it query.Item) (squirrel.Sqlizer, error) {
	switch {
	case it.Positional(), it.Key == query.KeyAnd:
		parts, err := s.nested(it)
		if err != nil {
			return nil, err
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return squirrel.And(parts), nil
	case it.Key == query.KeyOr:
		parts, err := s.nested(it)
		if err != nil {
			return nil, err
		}
		return squirrel.Or(parts), nil
	case it.Key == query.KeyNot:
		parts, err := s.nested(it)
		if err != nil {
			return nil, err
		}
		return squirrel.Expr("NOT ?", squirrel.And(parts)), nil
	}
	if _, ok := it.Value.(query.Clause); ok {
		return nil, fmt.Errorf("composer: %q does not accept a nested clause", it.Key)
	}
	attr, op := splitKey(it.Key)
	col, err := s.expr(attr)
	if err != nil {
		return nil, err
	}
	v := it.Value
	switch op {
	case "=":
		return squirrel.Eq{col: v}, nil
	case "!=":
		return squirrel.NotEq{col: v}, nil
	case ">":
		return squirrel.Gt{col: v}, nil
	case ">=":
		return squirrel.GtOrEq{col: v}, nil
	case "<":
		return squirrel.Lt{col: v}, nil
	case "<=":
		return squirrel.LtOrEq{col: v}, nil
	case "*":
		return squirrel.Like{col: v}, nil
	default:
		return squirrel.NotLike{col: v}, nil
	}
}

// sqlOf renders parts joined with AND, using ? placeholders.
func sqlOf(parts []squirrel.Sqlizer) (string, []any, error) {
	var (
		sqls []string
		args []any
	)
	for _, p := range parts {
		sql, a, err := p.ToSql()
		if err != nil {
			return "", nil, err
		}
		sqls = append(sqls, sql)
		args = append(args, a...)
	}
	return strings.Join(sqls, " AND "), args, nil
}
