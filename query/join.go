package query

// JoinShape tells which parts of a join specification were given.
type JoinShape int

// Join specification shapes.
const (
	JoinBare        JoinShape = iota // relation name only
	JoinAliased                      // relation name and alias
	JoinConditional                  // relation name, alias and conditions
)

// String returns the shape name.
func (s JoinShape) String() string {
	switch s {
	case JoinAliased:
		return "aliased"
	case JoinConditional:
		return "conditional"
	default:
		return "bare"
	}
}

// JoinSpec describes one join. Relation is a relation name of the queried
// entity or, when no such relation exists, an entity type joined on the
// given conditions only.
type JoinSpec struct {
	Relation   string
	Alias      string
	Conditions Clause
	Shape      JoinShape
}

// Rel returns a bare join of the given relation.
func Rel(relation string) JoinSpec {
	return JoinSpec{Relation: relation}
}

// As returns the join with an alias.
func (j JoinSpec) As(alias string) JoinSpec {
	j.Alias = alias
	if j.Shape < JoinAliased {
		j.Shape = JoinAliased
	}
	return j
}

// On returns the join with additional join conditions.
func (j JoinSpec) On(conditions Clause) JoinSpec {
	j.Conditions = conditions.Clone()
	j.Shape = JoinConditional
	return j
}

// Name returns the alias when one is set and the relation name otherwise.
func (j JoinSpec) Name() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Relation
}

func (j JoinSpec) clone() JoinSpec {
	j.Conditions = j.Conditions.Clone()
	return j
}

func (j JoinSpec) joinSpecs() []JoinSpec { return []JoinSpec{j} }

// JoinList is a sequence of joins appended in order.
type JoinList []JoinSpec

func (l JoinList) joinSpecs() []JoinSpec { return l }

// JoinArg is accepted by Join and LeftJoin. It is implemented by JoinSpec
// and JoinList.
type JoinArg interface {
	joinSpecs() []JoinSpec
}

func cloneJoins(js []JoinSpec) []JoinSpec {
	if js == nil {
		return nil
	}
	out := make([]JoinSpec, len(js))
	for i, j := range js {
		out[i] = j.clone()
	}
	return out
}

// appendJoins appends every spec of arg, returning a usage message when a
// spec has no relation name.
func appendJoins(js []JoinSpec, arg JoinArg) ([]JoinSpec, string) {
	if arg == nil {
		return js, "a relation name or a join list is required"
	}
	specs := arg.joinSpecs()
	for _, j := range specs {
		if j.Relation == "" {
			return js, "a relation name is required"
		}
	}
	out := cloneJoins(js)
	for _, j := range specs {
		out = append(out, j.clone())
	}
	return out, ""
}
