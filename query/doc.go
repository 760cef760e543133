// Package query defines the immutable select query descriptor and the
// generic fluent builder that produces it.
//
// # Condition trees
//
// WHERE and HAVING conditions are ordered trees of items:
//
//	query.Clause{
//	    query.Cond("status", "open"),          // status = 'open'
//	    query.Cond("amount>=", 100),           // amount >= 100
//	    query.Cond("name*", "Acme%"),          // name LIKE 'Acme%'
//	    query.Cond("type", []any{"a", "b"}),   // type IN ('a', 'b')
//	    query.Cond("deletedAt", nil),          // deleted_at IS NULL
//	    query.Or(query.Cond("a", 1), query.Cond("b", 2)),
//	}
//
// # Argument variants
//
// Methods with several call shapes take a small sealed parameter type:
//
//   - Where, Having: Clause (merged) or KV (appended)
//   - Join, LeftJoin: Rel(name), Rel(name).As(alias),
//     Rel(name).As(alias).On(clause), or JoinList
//   - Select: Expr(e), Expr(e).As(alias) (appended) or SelectList (replaces)
//   - Order: Attr or OrderList
//
// # Legacy parameters
//
// Raw is the plain field set of a descriptor. MergeLegacy combines raw
// parameters with built ones using the precedence older call sites rely on.
package query
