package composer

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/dialect"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/query"
)

// Aggregate functions accepted by ComposeAggregate.
const (
	Max = "MAX"
	Min = "MIN"
	Sum = "SUM"
)

// ValueAlias is the column alias of count and aggregate results.
const ValueAlias = "value"

// Composer turns query descriptors into dialect specific SQL.
type Composer struct {
	registry *entity.Registry
	dialect  string
	sb       squirrel.StatementBuilderType
	logger   *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger composed statements are written to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = l
	}
}

// New returns a composer for the entity types of the registry.
func New(r *entity.Registry, dialectName string, opts ...Option) *Composer {
	c := &Composer{
		registry: r,
		dialect:  dialectName,
		logger:   slog.Default(),
	}
	switch dialectName {
	case dialect.Postgres:
		c.sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	default:
		c.sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect returns the dialect name.
func (c *Composer) Dialect() string { return c.dialect }

// ComposeSelect returns the SELECT statement of a descriptor.
func (c *Composer) ComposeSelect(q *query.Descriptor) (string, []any, error) {
	p, err := c.plan(q, nil)
	if err != nil {
		return "", nil, err
	}
	return c.finish("select", p.selectQuery())
}

// ComposeCount returns a statement counting the records matched by a
// descriptor. Ordering and paging are ignored.
func (c *Composer) ComposeCount(q *query.Descriptor) (string, []any, error) {
	p, err := c.plan(q, nil)
	if err != nil {
		return "", nil, err
	}
	return c.finish("count", p.countQuery())
}

// ComposeAggregate returns a statement applying MAX, MIN or SUM to an
// attribute of the records matched by a descriptor.
func (c *Composer) ComposeAggregate(q *query.Descriptor, function, attr string) (string, []any, error) {
	switch function {
	case Max, Min, Sum:
	default:
		return "", nil, fmt.Errorf("composer: unsupported aggregate %q", function)
	}
	p, err := c.plan(q, nil)
	if err != nil {
		return "", nil, err
	}
	col, err := p.scope.expr(attr)
	if err != nil {
		return "", nil, err
	}
	sb := c.sb.Select(fmt.Sprintf("%s(%s) AS %s", function, col, c.quote(ValueAlias)))
	return c.finish(strings.ToLower(function), p.base(sb))
}

// ComposeRelated returns the SELECT statement of the records related to
// owner through relation. To-one relations are limited to one row.
func (c *Composer) ComposeRelated(owner *entity.Entity, relation string, q *query.Descriptor) (string, []any, error) {
	p, rel, err := c.relatedPlan(owner, relation, q)
	if err != nil {
		return "", nil, err
	}
	if rel.Type.ToOne() {
		p.limit, p.hasLimit = 1, true
	}
	return c.finish("related", p.selectQuery())
}

// ComposeCountRelated returns a statement counting the records related to
// owner through relation.
func (c *Composer) ComposeCountRelated(owner *entity.Entity, relation string, q *query.Descriptor) (string, []any, error) {
	p, _, err := c.relatedPlan(owner, relation, q)
	if err != nil {
		return "", nil, err
	}
	return c.finish("count related", p.countQuery())
}

func (c *Composer) finish(kind string, sb squirrel.SelectBuilder) (string, []any, error) {
	sql, args, err := sb.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("composer: %s: %w", kind, err)
	}
	c.logger.Debug("composed query", "kind", kind, "sql", sql, "args", args)
	return sql, args, nil
}

func (c *Composer) definition(entityType string) (*entity.Definition, error) {
	def, ok := c.registry.Definition(entityType)
	if !ok {
		return nil, fmt.Errorf("composer: unknown entity type %q", entityType)
	}
	return def, nil
}

// join is a rendered JOIN fragment with its arguments.
type join struct {
	left bool
	sql  string
	args []any
}

// plan holds the resolved parts of a descriptor.
type plan struct {
	c      *Composer
	q      *query.Descriptor
	scope  *scope
	from   string
	joins  []join
	where  []squirrel.Sqlizer
	having []squirrel.Sqlizer
	group  []string
	cols   []string
	order  []string

	offset, limit       int
	hasOffset, hasLimit bool
}

// plan resolves q. The prepare hook runs after the main entity is bound
// and before joins and attributes are resolved.
func (c *Composer) plan(q *query.Descriptor, prepare func(*plan) error) (*plan, error) {
	def, err := c.definition(q.From())
	if err != nil {
		return nil, err
	}
	p := &plan{c: c, q: q, scope: c.newScope(def)}
	p.from = c.quote(def.TableName()) + " AS " + c.quote(p.scope.alias)
	if prepare != nil {
		if err := prepare(p); err != nil {
			return nil, err
		}
	}
	for _, j := range q.Joins() {
		if err := p.addJoin(j, false); err != nil {
			return nil, err
		}
	}
	for _, j := range q.LeftJoins() {
		if err := p.addJoin(j, true); err != nil {
			return nil, err
		}
	}
	where, err := p.scope.conditions(q.Where())
	if err != nil {
		return nil, err
	}
	p.where = append(p.where, where...)
	if p.having, err = p.scope.conditions(q.Having()); err != nil {
		return nil, err
	}
	for _, g := range q.GroupBy() {
		col, err := p.scope.expr(g)
		if err != nil {
			return nil, err
		}
		p.group = append(p.group, col)
	}
	if p.cols, err = p.columns(); err != nil {
		return nil, err
	}
	if p.order, err = p.orderBy(); err != nil {
		return nil, err
	}
	p.offset, p.hasOffset = q.Offset()
	p.limit, p.hasLimit = q.Limit()
	return p, nil
}

// relatedPlan plans q against the target of relation and constrains it to
// the records related to owner.
func (c *Composer) relatedPlan(owner *entity.Entity, relation string, q *query.Descriptor) (*plan, *entity.Relation, error) {
	rel, ok := owner.Relation(relation)
	if !ok {
		return nil, nil, rdb.NewUnknownRelationError(owner.EntityType(), relation)
	}
	if q == nil {
		var err error
		if q, err = query.FromRaw(query.Raw{From: rel.Entity}); err != nil {
			return nil, nil, err
		}
	}
	if q.From() != rel.Entity {
		return nil, nil, fmt.Errorf("composer: relation %q targets %s, query is bound to %s", relation, rel.Entity, q.From())
	}
	key := owner.Get(rel.Key)
	p, err := c.plan(q, func(p *plan) error {
		s := p.scope
		switch rel.Type {
		case entity.BelongsTo, entity.HasOne, entity.HasMany:
			col, err := s.column(rel.ForeignKey)
			if err != nil {
				return err
			}
			p.where = append(p.where, squirrel.Eq{col: key})
		case entity.ManyMany:
			mid, _ := c.registry.Definition(rel.RelationName)
			j, err := p.middleJoin(rel, mid, entity.LowerFirst(rel.RelationName), key)
			if err != nil {
				return err
			}
			p.joins = append(p.joins, j)
		default:
			return rdb.NewInvalidRelationTypeError(relation, string(rel.Type), "a known relation type")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return p, rel, nil
}

// middleJoin joins the middle table of a many-to-many relation to the
// target alias of s, restricted to the owner key.
func (p *plan) middleJoin(rel *entity.Relation, mid *entity.Definition, midAlias string, key any) (join, error) {
	c, s := p.c, p.scope
	if err := s.register(midAlias, mid); err != nil {
		return join{}, err
	}
	target, err := s.column(rel.ForeignKey)
	if err != nil {
		return join{}, err
	}
	m := s.within(midAlias)
	near, err := m.column(rel.MidKeys[0])
	if err != nil {
		return join{}, err
	}
	distant, err := m.column(rel.MidKeys[1])
	if err != nil {
		return join{}, err
	}
	table := entity.ColumnName(rel.RelationName)
	if mid != nil {
		table = mid.TableName()
	}
	cond, args, err := sqlOf([]squirrel.Sqlizer{squirrel.Eq{near: key}})
	if err != nil {
		return join{}, err
	}
	return join{
		sql:  fmt.Sprintf("%s AS %s ON %s = %s AND %s", c.quote(table), c.quote(midAlias), distant, target, cond),
		args: args,
	}, nil
}

// addJoin resolves a join of the main entity. Conditions without an alias
// prefix refer to the joined entity, or to the middle table of a
// many-to-many relation.
func (p *plan) addJoin(spec query.JoinSpec, left bool) error {
	c, s := p.c, p.scope
	alias := spec.Name()
	rel, ok := s.main.Relation(spec.Relation)
	if !ok {
		// An entity type joined by explicit conditions.
		def, known := c.registry.Definition(spec.Relation)
		if !known || len(spec.Conditions) == 0 {
			return rdb.NewUnknownRelationError(s.main.Type, spec.Relation)
		}
		if err := s.register(alias, def); err != nil {
			return err
		}
		on, args, err := p.onConditions(alias, spec.Conditions)
		if err != nil {
			return err
		}
		p.joins = append(p.joins, join{
			left: left,
			sql:  fmt.Sprintf("%s AS %s ON %s", c.quote(def.TableName()), c.quote(alias), on),
			args: args,
		})
		return nil
	}
	target, err := c.definition(rel.Entity)
	if err != nil {
		return err
	}
	if err := s.register(alias, target); err != nil {
		return err
	}
	local, err := s.column(rel.Key)
	if err != nil {
		return err
	}
	t := s.within(alias)
	switch rel.Type {
	case entity.BelongsTo, entity.HasOne, entity.HasMany:
		foreign, err := t.column(rel.ForeignKey)
		if err != nil {
			return err
		}
		on := []string{fmt.Sprintf("%s = %s", foreign, local)}
		var args []any
		if len(spec.Conditions) > 0 {
			extra, a, err := p.onConditions(alias, spec.Conditions)
			if err != nil {
				return err
			}
			on, args = append(on, extra), a
		}
		p.joins = append(p.joins, join{
			left: left,
			sql:  fmt.Sprintf("%s AS %s ON %s", c.quote(target.TableName()), c.quote(alias), strings.Join(on, " AND ")),
			args: args,
		})
	case entity.ManyMany:
		mid, _ := c.registry.Definition(rel.RelationName)
		midAlias := alias + "Middle"
		if err := s.register(midAlias, mid); err != nil {
			return err
		}
		m := s.within(midAlias)
		near, err := m.column(rel.MidKeys[0])
		if err != nil {
			return err
		}
		distant, err := m.column(rel.MidKeys[1])
		if err != nil {
			return err
		}
		foreign, err := t.column(rel.ForeignKey)
		if err != nil {
			return err
		}
		table := entity.ColumnName(rel.RelationName)
		if mid != nil {
			table = mid.TableName()
		}
		on := []string{fmt.Sprintf("%s = %s", near, local)}
		var args []any
		if len(spec.Conditions) > 0 {
			extra, a, err := p.onConditions(midAlias, spec.Conditions)
			if err != nil {
				return err
			}
			on, args = append(on, extra), a
		}
		p.joins = append(p.joins,
			join{
				left: left,
				sql:  fmt.Sprintf("%s AS %s ON %s", c.quote(table), c.quote(midAlias), strings.Join(on, " AND ")),
				args: args,
			},
			join{
				left: left,
				sql:  fmt.Sprintf("%s AS %s ON %s = %s", c.quote(target.TableName()), c.quote(alias), foreign, distant),
			},
		)
	}
	return nil
}

func (p *plan) onConditions(alias string, cl query.Clause) (string, []any, error) {
	parts, err := p.scope.within(alias).conditions(cl)
	if err != nil {
		return "", nil, err
	}
	return sqlOf(parts)
}

// base applies the FROM, JOIN, WHERE, GROUP BY and HAVING parts.
func (p *plan) base(sb squirrel.SelectBuilder) squirrel.SelectBuilder {
	sb = sb.From(p.from)
	for _, j := range p.joins {
		if j.left {
			sb = sb.LeftJoin(j.sql, j.args...)
		} else {
			sb = sb.Join(j.sql, j.args...)
		}
	}
	for _, w := range p.where {
		sb = sb.Where(w)
	}
	if len(p.group) > 0 {
		sb = sb.GroupBy(p.group...)
	}
	for _, h := range p.having {
		sb = sb.Having(h)
	}
	return sb
}

// columns renders the select list. An empty list or "*" selects every
// attribute of the main entity under its own name.
func (p *plan) columns() ([]string, error) {
	c, s := p.c, p.scope
	items := p.q.Select()
	if len(items) == 0 {
		items = []query.SelectItem{query.Expr(query.All)}
	}
	var cols []string
	for _, it := range items {
		if it.Expr == query.All {
			names := s.main.AttributeNames()
			if len(names) == 0 {
				cols = append(cols, c.quote(s.alias)+".*")
				continue
			}
			for _, name := range names {
				col, err := s.column(name)
				if err != nil {
					return nil, err
				}
				cols = append(cols, col+" AS "+c.quote(name))
			}
			continue
		}
		expr, err := s.expr(it.Expr)
		if err != nil {
			return nil, err
		}
		alias := it.Alias
		if alias == "" {
			alias = it.Expr
		} else {
			s.selected[alias] = true
		}
		cols = append(cols, expr+" AS "+c.quote(alias))
	}
	return cols, nil
}

func (p *plan) orderBy() ([]string, error) {
	var items []query.OrderItem
	switch o := p.q.OrderBy().(type) {
	case nil:
		return nil, nil
	case query.Attr:
		items = []query.OrderItem{{Attr: string(o), Dir: p.q.Order()}}
	case query.OrderList:
		items = o
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		dir := query.Direction(strings.ToUpper(string(it.Dir)))
		switch dir {
		case "":
			dir = query.Asc
		case query.Asc, query.Desc:
		default:
			return nil, fmt.Errorf("composer: invalid order direction %q", it.Dir)
		}
		expr := p.c.quote(it.Attr)
		if !p.scope.selected[it.Attr] {
			var err error
			if expr, err = p.scope.expr(it.Attr); err != nil {
				return nil, err
			}
		}
		out = append(out, expr+" "+string(dir))
	}
	return out, nil
}

func (p *plan) selectQuery() squirrel.SelectBuilder {
	sb := p.c.sb.Select(p.cols...)
	if p.q.Distinct() {
		sb = sb.Distinct()
	}
	sb = p.base(sb).OrderBy(p.order...)
	switch {
	case p.hasLimit:
		sb = sb.Limit(uint64(p.limit))
	case p.hasOffset && p.c.dialect != dialect.Postgres:
		// MySQL and SQLite accept OFFSET only after a LIMIT.
		sb = sb.Limit(math.MaxInt64)
	}
	if p.hasOffset {
		sb = sb.Offset(uint64(p.offset))
	}
	return sb
}

// countQuery counts matched records. Distinct and grouped queries are
// counted over a subquery.
func (p *plan) countQuery() squirrel.SelectBuilder {
	count := "COUNT(*) AS " + p.c.quote(ValueAlias)
	if !p.q.Distinct() && len(p.group) == 0 {
		return p.base(p.c.sb.Select(count))
	}
	var inner squirrel.SelectBuilder
	if len(p.group) > 0 {
		inner = squirrel.Select(p.group...)
	} else {
		inner = squirrel.Select(p.cols...)
	}
	if p.q.Distinct() {
		inner = inner.Distinct()
	}
	return p.c.sb.Select(count).FromSelect(p.base(inner), p.c.quote("countAll"))
}
