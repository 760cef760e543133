package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/rdb/dialect"
)

// Counters accumulates statement statistics. It is safe for concurrent use.
type Counters struct {
	prepares atomic.Int64
	executes atomic.Int64
	rows     atomic.Int64
	busy     atomic.Int64
	slow     atomic.Int64
	errors   atomic.Int64
}

// Snapshot returns the current values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Prepares: c.prepares.Load(),
		Executes: c.executes.Load(),
		Rows:     c.rows.Load(),
		Busy:     time.Duration(c.busy.Load()),
		Slow:     c.slow.Load(),
		Errors:   c.errors.Load(),
	}
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	for _, v := range []*atomic.Int64{&c.prepares, &c.executes, &c.rows, &c.busy, &c.slow, &c.errors} {
		v.Store(0)
	}
}

// Snapshot is a copy of Counters taken at one point in time.
type Snapshot struct {
	Prepares int64
	Executes int64
	// Rows is the number of rows fetched from result sets.
	Rows int64
	// Busy is the time spent between executing statements and draining
	// their result sets.
	Busy   time.Duration
	Slow   int64
	Errors int64
}

// Avg returns the mean busy time of an execution.
func (s Snapshot) Avg() time.Duration {
	if s.Executes == 0 {
		return 0
	}
	return s.Busy / time.Duration(s.Executes)
}

func (s Snapshot) String() string {
	return fmt.Sprintf("prepares=%d executes=%d rows=%d busy=%s avg=%s slow=%d errors=%d",
		s.Prepares, s.Executes, s.Rows, s.Busy, s.Avg(), s.Slow, s.Errors)
}

// SlowHook is called once for every execution whose result set took longer
// than the slow threshold to drain.
type SlowHook func(ctx context.Context, query string, args []any, elapsed time.Duration)

// StatsDriver is a Driver counting prepares, executions and fetched rows.
// An execution is timed from Execute until its result set is drained, the
// statement is executed again or it is closed, so streamed reads are
// measured as a whole.
type StatsDriver struct {
	*Driver
	counters  Counters
	threshold atomic.Int64
	hook      SlowHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which an execution is slow.
// It defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold.Store(int64(d)) }
}

// WithSlowHook sets the function called for slow executions.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) { s.hook = hook }
}

// WithSlowLog logs slow executions as warnings on l, or on the default
// logger when l is nil.
func WithSlowLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowHook(func(ctx context.Context, query string, args []any, elapsed time.Duration) {
		l.WarnContext(ctx, "slow query", "elapsed", elapsed, "sql", query, "args", args)
	})
}

// NewStatsDriver wraps drv.
//
//	stats := sql.NewStatsDriver(drv, sql.WithSlowLog(logger))
//	m := mapper.New(stats, composer.New(registry, stats.Dialect()), factory)
//	...
//	fmt.Println(stats.Counters().Snapshot())
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Counters returns the live counters of the driver.
func (d *StatsDriver) Counters() *Counters { return &d.counters }

// SlowThreshold returns the current slow threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow threshold. It may be called while
// statements run.
func (d *StatsDriver) SetSlowThreshold(t time.Duration) {
	d.threshold.Store(int64(t))
}

// Prepare implements dialect.Preparer.
func (d *StatsDriver) Prepare(ctx context.Context, query string) (dialect.Stmt, error) {
	d.counters.prepares.Add(1)
	stmt, err := d.Driver.Prepare(ctx, query)
	if err != nil {
		d.counters.errors.Add(1)
		return nil, err
	}
	return &statsStmt{Stmt: stmt, query: query, d: d}, nil
}

type statsStmt struct {
	dialect.Stmt
	query string
	d     *StatsDriver

	// state of the running execution, zero start when none.
	ctx   context.Context
	args  []any
	start time.Time
}

func (s *statsStmt) Execute(ctx context.Context, args ...any) error {
	s.finish()
	s.d.counters.executes.Add(1)
	s.ctx, s.args, s.start = ctx, args, time.Now()
	if err := s.Stmt.Execute(ctx, args...); err != nil {
		s.d.counters.errors.Add(1)
		s.finish()
		return err
	}
	return nil
}

func (s *statsStmt) FetchRow() (map[string]any, bool, error) {
	row, ok, err := s.Stmt.FetchRow()
	switch {
	case err != nil:
		s.d.counters.errors.Add(1)
		s.finish()
	case ok:
		s.d.counters.rows.Add(1)
	default:
		s.finish()
	}
	return row, ok, err
}

func (s *statsStmt) Close() error {
	s.finish()
	return s.Stmt.Close()
}

// finish accounts for the running execution, if any.
func (s *statsStmt) finish() {
	if s.start.IsZero() {
		return
	}
	elapsed := time.Since(s.start)
	s.d.counters.busy.Add(int64(elapsed))
	if elapsed > s.d.SlowThreshold() {
		s.d.counters.slow.Add(1)
		if s.d.hook != nil {
			s.d.hook(s.ctx, s.query, s.args, elapsed)
		}
	}
	s.ctx, s.args, s.start = nil, nil, time.Time{}
}

// DebugDriver is a Driver logging every statement at debug level.
type DebugDriver struct {
	*Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv, logging on l or on the default logger when l
// is nil.
func NewDebugDriver(drv *Driver, l *slog.Logger) *DebugDriver {
	if l == nil {
		l = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: l}
}

// Prepare implements dialect.Preparer.
func (d *DebugDriver) Prepare(ctx context.Context, query string) (dialect.Stmt, error) {
	d.logger.DebugContext(ctx, "prepare", "sql", query)
	stmt, err := d.Driver.Prepare(ctx, query)
	if err != nil {
		d.logger.DebugContext(ctx, "prepare failed", "sql", query, "err", err)
		return nil, err
	}
	return &debugStmt{Stmt: stmt, query: query, logger: d.logger}, nil
}

type debugStmt struct {
	dialect.Stmt
	query  string
	logger *slog.Logger
	rows   int
}

func (s *debugStmt) Execute(ctx context.Context, args ...any) error {
	s.logger.DebugContext(ctx, "execute", "sql", s.query, "args", args)
	s.rows = 0
	return s.Stmt.Execute(ctx, args...)
}

func (s *debugStmt) FetchRow() (map[string]any, bool, error) {
	row, ok, err := s.Stmt.FetchRow()
	if ok {
		s.rows++
	} else if err == nil {
		s.logger.Debug("drained", "sql", s.query, "rows", s.rows)
	}
	return row, ok, err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
)
