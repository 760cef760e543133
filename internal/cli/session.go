package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	// Drivers selectable with --dialect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/rdb/composer"
	rdbsql "github.com/syssam/rdb/dialect/sql"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/mapper"
	"github.com/syssam/rdb/repository"
)

// session is an open database with the builders of one command run.
type session struct {
	drv      *rdbsql.Driver
	stats    *rdbsql.StatsDriver
	registry *entity.Registry
	mgr      *repository.Manager
	logger   *slog.Logger
	errOut   io.Writer
}

func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	if opts.DSN == "" {
		return nil, NewExitError(ExitCommandError, "--dsn is required")
	}
	if opts.Schema == "" {
		return nil, NewExitError(ExitCommandError, "--schema is required")
	}
	registry, err := entity.LoadFile(opts.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	drv, err := rdbsql.Open(opts.Dialect, opts.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	s := &session{
		drv:      drv,
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})),
		errOut:   cmd.ErrOrStderr(),
	}

	var conn mapper.Connection = drv
	switch {
	case opts.Verbose:
		conn = rdbsql.NewDebugDriver(drv, s.logger)
	case opts.Stats:
		s.stats = rdbsql.NewStatsDriver(drv, rdbsql.WithSlowLog(s.logger))
		conn = s.stats
	}
	c := composer.New(registry, drv.Dialect(), composer.WithLogger(s.logger))
	m := mapper.New(conn, c, entity.NewFactory(registry), mapper.WithLogger(s.logger))
	s.mgr = repository.NewManager(m, registry, repository.WithLogger(s.logger))
	return s, nil
}

// context returns ctx carrying the session variables of opts.
func (s *session) context(ctx context.Context, opts *RootOptions) (context.Context, error) {
	for _, v := range opts.Vars {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --var %q: expected name=value", v))
		}
		ctx = rdbsql.WithVar(ctx, name, value)
	}
	return ctx, nil
}

func (s *session) Close() error {
	if s.stats != nil {
		fmt.Fprintln(s.errOut, s.stats.Counters().Snapshot())
	}
	return s.drv.Close()
}
