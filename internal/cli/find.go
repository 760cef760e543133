package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/entity"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Query     QueryOptions
	One       bool
	WithTotal bool
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find ENTITY",
		Short: "Find records of an entity",
		Long: `Find the records of an entity matching the query flags.

Examples:
  rdbq find Case --dsn crm.db --schema crm.yaml --where status=open --order amount:desc
  rdbq find Case --dsn crm.db --schema crm.yaml --join account --where account.name*Acme%
  rdbq find Case --dsn crm.db --schema crm.yaml --limit 10 --with-total --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, cmd, args[0])
		},
	}

	opts.Query.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.One, "one", false, "return the first record only")
	cmd.Flags().BoolVar(&opts.WithTotal, "with-total", false, "count every matching record alongside the page")
	cmd.MarkFlagsMutuallyExclusive("one", "with-total")

	return cmd
}

func runFind(opts *FindOptions, cmd *cobra.Command, entityType string) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, err := s.context(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	b, err := apply(s.mgr.Query(entityType), &opts.Query)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	if opts.One {
		e, err := b.FindOne(ctx)
		if err != nil {
			return failed("find", err)
		}
		list := entity.NewList(entityType)
		if e != nil {
			list.Append(e)
		}
		return out.Collection(ctx, list, nil)
	}

	if !opts.WithTotal {
		c, err := b.Find(ctx)
		if err != nil {
			return failed("find", err)
		}
		if err := out.Collection(ctx, c, nil); err != nil {
			return failed("find", err)
		}
		return nil
	}

	q, err := b.Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	var (
		c     entity.Collection
		total int
	)
	// Each goroutine runs its own builder seeded from q.
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		c, err = s.mgr.Select().Clone(q).Find(gctx)
		return err
	})
	eg.Go(func() error {
		var err error
		total, err = s.mgr.Select().Clone(q).Count(gctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return failed("find", err)
	}
	// A streamed collection reads on iteration, after gctx is done.
	if err := out.Collection(ctx, c, &total); err != nil {
		return failed("find", err)
	}
	return nil
}

// failed maps a query error to an exit error. Storage errors are query
// failures; anything else is a usage problem of the command.
func failed(op string, err error) error {
	if rdb.IsQueryError(err) {
		return WrapExitError(ExitFailure, op+" failed", err)
	}
	return WrapExitError(ExitCommandError, op+" failed", err)
}
