// Package rdb is a query construction and result streaming layer for
// relational entity storage.
//
// Queries are assembled with fluent builders and frozen into immutable
// descriptors before they reach the mapper:
//
//	mgr := repository.NewManager(m, registry)
//	notes, err := mgr.Query("Note").
//	    Where(query.Clause{query.Cond("status", "open")}).
//	    Join(query.Rel("account")).
//	    Order(query.Attr("createdAt"), query.Desc).
//	    Limit(0, 20).
//	    Find(ctx)
//
// Related records are queried through a relation-scoped builder:
//
//	rb, err := mgr.Related(account, "contacts", nil)
//	contacts, err := rb.Columns(map[string]string{"role": "accountRole"}).Find(ctx)
//
// Large result sets can be streamed instead of materialized:
//
//	c, err := mgr.Query("Note").Sth().Find(ctx)
//	for e, err := range c.All(ctx) { ... }
//
// # Sub-packages
//
//   - query: descriptor, condition trees and the generic builder
//   - entity: records, collections and the metadata registry
//   - composer: descriptor to SQL translation
//   - mapper: execution against storage and the streaming cursor
//   - repository: entity-bound and relation-bound builders
//   - dialect/sql: database/sql driver with prepared statements
//   - cmd/rdbq: command line front end over a YAML entity schema
//
// This package holds the error kinds shared by all of them.
package rdb
