package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/rdb/repository"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	Query QueryOptions
	Max   []string
	Min   []string
	Sum   []string
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count ENTITY",
		Short: "Count records and aggregate attributes",
		Long: `Count the records of an entity matching the query flags.

Aggregates of numeric attributes are computed over the same records and
every value is queried concurrently.

Examples:
  rdbq count Case --dsn crm.db --schema crm.yaml --where status=open
  rdbq count Case --dsn crm.db --schema crm.yaml --sum amount --max amount`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, cmd, args[0])
		},
	}

	opts.Query.addFlags(cmd)
	cmd.Flags().StringSliceVar(&opts.Max, "max", nil, "attributes to take the greatest value of")
	cmd.Flags().StringSliceVar(&opts.Min, "min", nil, "attributes to take the least value of")
	cmd.Flags().StringSliceVar(&opts.Sum, "sum", nil, "attributes to sum")

	return cmd
}

func runCount(opts *CountOptions, cmd *cobra.Command, entityType string) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, err := s.context(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}

	b, err := apply(s.mgr.Query(entityType), &opts.Query)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	q, err := b.Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	type aggregate func(*repository.SelectBuilder, context.Context, string) (float64, error)
	jobs := []struct {
		name  string
		attrs []string
		fn    aggregate
	}{
		{"max", opts.Max, (*repository.SelectBuilder).Max},
		{"min", opts.Min, (*repository.SelectBuilder).Min},
		{"sum", opts.Sum, (*repository.SelectBuilder).Sum},
	}

	values := []Value{{Name: "count"}}
	for _, job := range jobs {
		for _, attr := range job.attrs {
			values = append(values, Value{Name: job.name + " " + attr})
		}
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		n, err := s.mgr.Select().Clone(q).Count(gctx)
		values[0].Value = n
		return err
	})
	i := 1
	for _, job := range jobs {
		for _, attr := range job.attrs {
			v := &values[i]
			eg.Go(func() error {
				f, err := job.fn(s.mgr.Select().Clone(q), gctx, attr)
				v.Value = f
				return err
			})
			i++
		}
	}
	if err := eg.Wait(); err != nil {
		return failed("count", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Values(values)
}
