package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/syssam/rdb/dialect"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Stats   bool
	Format  string // "table" | "json" | "msgpack"
	DSN     string
	Dialect string
	Schema  string
	// Vars are session variables set before every statement, as name=value.
	Vars []string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"table", "json", "msgpack"}

// NewRootCommand creates the root command for the rdbq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rdbq",
		Short: "rdbq - query records through entity metadata",
		Long: `Run builder queries against a relational database.

Entities, their tables and relations are described in a YAML schema file.
Results are printed as a table, JSON or MessagePack.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !dialect.Valid(opts.Dialect) {
				return fmt.Errorf("invalid dialect %q: must be one of %v", opts.Dialect, dialect.Dialects)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every statement")
	cmd.PersistentFlags().BoolVar(&opts.Stats, "stats", false, "print statement statistics when done")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "table", "output format (table|json|msgpack)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", dialect.SQLite, "database dialect (postgres|mysql|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "path to the YAML entity schema")
	cmd.PersistentFlags().StringArrayVar(&opts.Vars, "var", nil, "session variable as name=value (repeatable)")

	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewRelatedCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
