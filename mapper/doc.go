// Package mapper runs query descriptors against storage and materializes
// the rows as records, either eagerly into an entity.List or one row at a
// time through a Cursor.
package mapper
