// Package cli implements the rdbq commands.
package cli
