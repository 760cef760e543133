package composer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/rdb/dialect"
	"github.com/syssam/rdb/entity"
)

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	functionRe = regexp.MustCompile(`^([A-Z_]+):(.+)$`)
)

// functions lists the SQL functions accepted in FUNC:attribute expressions.
var functions = map[string]bool{
	"COUNT":  true,
	"MAX":    true,
	"MIN":    true,
	"SUM":    true,
	"AVG":    true,
	"LOWER":  true,
	"UPPER":  true,
	"TRIM":   true,
	"LENGTH": true,
}

// scope resolves attribute expressions against the main entity and the
// aliases introduced by joins.
type scope struct {
	c *Composer
	// def and alias are the target of attributes without an alias prefix.
	def     *entity.Definition
	alias   string
	main    *entity.Definition
	aliases map[string]*entity.Definition
	// selected holds the aliases of the select list, usable in ORDER BY.
	selected map[string]bool
}

func (c *Composer) newScope(def *entity.Definition) *scope {
	alias := entity.LowerFirst(def.Type)
	return &scope{
		c:        c,
		def:      def,
		alias:    alias,
		main:     def,
		aliases:  map[string]*entity.Definition{alias: def},
		selected: make(map[string]bool),
	}
}

// within returns a scope resolving unprefixed attributes against alias.
func (s *scope) within(alias string) *scope {
	cp := *s
	cp.alias, cp.def = alias, s.aliases[alias]
	return &cp
}

func (s *scope) register(alias string, def *entity.Definition) error {
	if !identRe.MatchString(alias) {
		return fmt.Errorf("composer: invalid alias %q", alias)
	}
	if _, ok := s.aliases[alias]; ok {
		return fmt.Errorf("composer: alias %q is already in use", alias)
	}
	s.aliases[alias] = def
	return nil
}

// column returns the qualified column of "attr" or "alias.attr".
func (s *scope) column(attr string) (string, error) {
	alias, def := s.alias, s.def
	if i := strings.IndexByte(attr, '.'); i >= 0 {
		var ok bool
		alias = attr[:i]
		if def, ok = s.aliases[alias]; !ok {
			return "", fmt.Errorf("composer: unknown alias %q in %q", alias, attr)
		}
		attr = attr[i+1:]
	}
	col, err := s.c.columnOf(def, attr)
	if err != nil {
		return "", err
	}
	return s.c.quote(alias) + "." + s.c.quote(col), nil
}

// expr resolves an attribute, a qualified attribute or a FUNC:expr call.
func (s *scope) expr(e string) (string, error) {
	if m := functionRe.FindStringSubmatch(e); m != nil {
		if !functions[m[1]] {
			return "", fmt.Errorf("composer: unsupported function %q", m[1])
		}
		arg, err := s.expr(m[2])
		if err != nil {
			return "", err
		}
		return m[1] + "(" + arg + ")", nil
	}
	return s.column(e)
}

// columnOf returns the column of an attribute. Definitions without declared
// attributes accept any identifier.
func (c *Composer) columnOf(def *entity.Definition, attr string) (string, error) {
	if !identRe.MatchString(attr) {
		return "", fmt.Errorf("composer: invalid attribute %q", attr)
	}
	if def == nil || len(def.Attributes) == 0 {
		return entity.ColumnName(attr), nil
	}
	if _, ok := def.Attribute(attr); !ok {
		return "", fmt.Errorf("composer: entity %s has no attribute %q", def.Type, attr)
	}
	return def.Column(attr), nil
}

func (c *Composer) quote(ident string) string {
	if c.dialect == dialect.MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
