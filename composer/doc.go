// Package composer renders query descriptors as SQL for MySQL, SQLite and
// PostgreSQL.
//
// The main entity is aliased by its type with a lower case first letter
// and every attribute is selected under its attribute name:
//
//	SELECT "case"."id" AS "id", "case"."account_id" AS "accountId"
//	FROM "cases" AS "case"
//
// Joins are resolved through the relations of the main entity. A
// many-to-many relation joined as "contacts" also joins its middle table
// as "contactsMiddle"; unprefixed join conditions refer to that table.
//
// Count and aggregate results are returned in a single column named by
// ValueAlias.
package composer
