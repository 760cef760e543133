package query

// MergeLegacy combines the fields built by a builder with a raw parameter
// object passed next to the builder calls. It exists for call sites that
// predate the builders and keeps their precedence:
//
//  1. When legacy has WHERE conditions, the built WHERE tree is removed from
//     built and, if it was not empty, appended to legacy as one nested group.
//     HAVING is handled the same way.
//  2. Empty legacy WHERE and HAVING trees are dropped.
//  3. When both sides have joins, the built joins are appended after the
//     legacy joins. Left joins are handled the same way.
//  4. legacy is merged over built recursively: scalars set in legacy win,
//     lists are replaced element by element, condition trees key by key.
//     A join element is replaced whole, ON conditions included.
//
// Neither argument is modified.
func MergeLegacy(built, legacy Raw) Raw {
	built = built.Clone()
	legacy = legacy.Clone()

	where := built.WhereClause
	having := built.HavingClause

	if len(legacy.WhereClause) > 0 {
		built.WhereClause = nil
		if len(where) > 0 {
			legacy.WhereClause = append(legacy.WhereClause, Group(where))
		}
	}
	if len(legacy.HavingClause) > 0 {
		built.HavingClause = nil
		if len(having) > 0 {
			legacy.HavingClause = append(legacy.HavingClause, Group(having))
		}
	}
	if len(legacy.WhereClause) == 0 {
		legacy.WhereClause = nil
	}
	if len(legacy.HavingClause) == 0 {
		legacy.HavingClause = nil
	}

	if len(legacy.LeftJoins) > 0 && len(built.LeftJoins) > 0 {
		legacy.LeftJoins = append(legacy.LeftJoins, built.LeftJoins...)
	}
	if len(legacy.Joins) > 0 && len(built.Joins) > 0 {
		legacy.Joins = append(legacy.Joins, built.Joins...)
	}

	return replaceRecursive(built, legacy)
}

// replaceRecursive returns base with every field set in over replacing the
// corresponding field of base.
func replaceRecursive(base, over Raw) Raw {
	out := base
	if over.From != "" {
		out.From = over.From
	}
	if over.Distinct {
		out.Distinct = true
	}
	if over.Streamed {
		out.Streamed = true
	}
	out.Select = replaceList(base.Select, over.Select)
	out.WhereClause = replaceClause(base.WhereClause, over.WhereClause)
	out.HavingClause = replaceClause(base.HavingClause, over.HavingClause)
	out.Joins = replaceList(base.Joins, over.Joins)
	out.LeftJoins = replaceList(base.LeftJoins, over.LeftJoins)
	out.GroupBy = replaceList(base.GroupBy, over.GroupBy)
	if over.OrderBy != nil {
		bl, bok := base.OrderBy.(OrderList)
		ol, ook := over.OrderBy.(OrderList)
		if bok && ook {
			out.OrderBy = OrderList(replaceList(bl, ol))
		} else {
			out.OrderBy = over.OrderBy
		}
	}
	if over.Order != "" {
		out.Order = over.Order
	}
	if over.Offset != nil {
		out.Offset = over.Offset
	}
	if over.Limit != nil {
		out.Limit = over.Limit
	}
	return out
}

// replaceList replaces the elements of base by the elements of over with
// the same index. Elements of over past the end of base are appended.
func replaceList[T any](base, over []T) []T {
	if len(over) == 0 {
		return base
	}
	out := cloneSlice(base)
	for i, v := range over {
		if i < len(out) {
			out[i] = v
		} else {
			out = append(out, v)
		}
	}
	return out
}

// replaceClause merges over into base. Keyed items replace the item with the
// same key and positional items the positional item with the same ordinal;
// when both values are clauses they are merged recursively.
func replaceClause(base, over Clause) Clause {
	if len(over) == 0 {
		return base
	}
	out := base.Clone()
	var positions []int
	for i, it := range out {
		if it.Positional() {
			positions = append(positions, i)
		}
	}
	n := 0
	for _, it := range over {
		idx := -1
		if it.Positional() {
			if n < len(positions) {
				idx = positions[n]
			}
			n++
		} else {
			idx = out.index(it.Key)
		}
		if idx < 0 {
			out = append(out, it.clone())
			continue
		}
		bc, bok := out[idx].Value.(Clause)
		oc, ook := it.Value.(Clause)
		if bok && ook {
			out[idx].Value = replaceClause(bc, oc)
		} else {
			out[idx].Value = cloneValue(it.Value)
		}
	}
	return out
}
