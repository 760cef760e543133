// Package entity holds records, collections and the metadata registry
// describing entity types, their attributes and their relations.
package entity
