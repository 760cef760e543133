// Package repository provides the builders callers chain to query records:
// SelectBuilder for one entity type and RelationSelectBuilder for the
// records related to an owner record.
//
// Builders record the first invalid fluent call and every terminal
// operation fails with it. A failed terminal operation leaves the builder
// unchanged.
package repository
