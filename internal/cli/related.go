package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/rdb/query"
)

// RelatedOptions holds flags for the related command.
type RelatedOptions struct {
	*RootOptions
	Query   QueryOptions
	Columns []string
	Count   bool
}

// NewRelatedCommand creates the related command.
func NewRelatedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelatedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "related ENTITY ID RELATION",
		Short: "Find the records related to one record",
		Long: `Find the records related to the record with the given id through
one of its relations.

Columns of the middle table of a many-to-many relation are added to each
record with --columns.

Examples:
  rdbq related Account 1 cases --dsn crm.db --schema crm.yaml --where status=open
  rdbq related Account 1 contacts --dsn crm.db --schema crm.yaml --columns role=contactRole
  rdbq related Account 1 cases --dsn crm.db --schema crm.yaml --count`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelated(opts, cmd, args[0], args[1], args[2])
		},
	}

	opts.Query.addFlags(cmd)
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "middle table columns, attr or attr=alias")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "count the related records")

	return cmd
}

func runRelated(opts *RelatedOptions, cmd *cobra.Command, entityType, id, relation string) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, err := s.context(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}

	owner, err := s.mgr.Query(entityType).Where(query.KV("id", id)).FindOne(ctx)
	if err != nil {
		return failed("related", err)
	}
	if owner == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("%s %s not found", entityType, id))
	}

	rb, err := s.mgr.Related(owner, relation, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid relation", err)
	}
	if rb, err = apply(rb, &opts.Query); err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	if len(opts.Columns) > 0 {
		columns := make(map[string]string, len(opts.Columns))
		for _, c := range opts.Columns {
			attr, alias, _ := strings.Cut(c, "=")
			columns[attr] = alias
		}
		if err := rb.Columns(columns).Err(); err != nil {
			return WrapExitError(ExitCommandError, "invalid columns", err)
		}
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Count {
		n, err := rb.Count(ctx)
		if err != nil {
			return failed("related", err)
		}
		return out.Values([]Value{{Name: "count", Value: n}})
	}
	c, err := rb.Find(ctx)
	if err != nil {
		return failed("related", err)
	}
	if err := out.Collection(ctx, c, nil); err != nil {
		return failed("related", err)
	}
	return nil
}
