package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rdb/dialect"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(time.Hour),
		WithSlowHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	assert.Equal(t, time.Hour, drv.SlowThreshold())
	ctx := context.Background()

	ep := mock.ExpectPrepare("SELECT id FROM note")
	ep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	ep.ExpectQuery().WillReturnError(errors.New("database is locked"))
	stmt, err := drv.Prepare(ctx, "SELECT id FROM note")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx))
	assert.Len(t, drain(t, stmt), 2)
	require.Error(t, stmt.Execute(ctx))
	require.NoError(t, stmt.Close())

	mock.ExpectPrepare("SELECT broken").WillReturnError(errors.New("syntax error"))
	_, err = drv.Prepare(ctx, "SELECT broken")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.Counters().Snapshot()
	assert.Equal(t, int64(2), s.Prepares)
	assert.Equal(t, int64(2), s.Executes)
	assert.Equal(t, int64(2), s.Rows)
	assert.Equal(t, int64(2), s.Errors)
	assert.Equal(t, int64(0), s.Slow)
	assert.Empty(t, slow)
	assert.Contains(t, s.String(), "prepares=2 executes=2 rows=2")

	drv.Counters().Reset()
	assert.Equal(t, Snapshot{}, drv.Counters().Snapshot())
}

func TestStatsDriverSlow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	drv.SetSlowThreshold(-1)
	ctx := context.Background()

	ep := mock.ExpectPrepare("SELECT id FROM note")
	ep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	ep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	stmt, err := drv.Prepare(ctx, "SELECT id FROM note")
	require.NoError(t, err)

	// An abandoned result set is accounted for by the next Execute.
	require.NoError(t, stmt.Execute(ctx))
	_, ok, err := stmt.FetchRow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, slow)
	require.NoError(t, stmt.Execute(ctx))
	assert.Len(t, slow, 1)

	// Close accounts for the running execution once.
	require.NoError(t, stmt.Close())
	assert.Equal(t, []string{"SELECT id FROM note", "SELECT id FROM note"}, slow)
	assert.Equal(t, int64(2), drv.Counters().Snapshot().Slow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotAvg(t *testing.T) {
	assert.Equal(t, time.Duration(0), Snapshot{}.Avg())
	s := Snapshot{Executes: 4, Busy: 2 * time.Second}
	assert.Equal(t, 500*time.Millisecond, s.Avg())
	assert.Equal(t, "prepares=0 executes=4 rows=0 busy=2s avg=500ms slow=0 errors=0", s.String())
}

func TestSlowLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.MySQL, db), WithSlowThreshold(-1), WithSlowLog(logger))
	ctx := context.Background()

	mock.ExpectPrepare("SELECT id FROM note").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}))
	stmt, err := drv.Prepare(ctx, "SELECT id FROM note")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx))
	assert.Empty(t, drain(t, stmt))
	require.NoError(t, stmt.Close())

	out := buf.String()
	assert.Contains(t, out, `msg="slow query"`)
	assert.Contains(t, out, `sql="SELECT id FROM note"`)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("slow query")))
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.SQLite, db), logger)
	ctx := context.Background()

	mock.ExpectPrepare("SELECT id FROM note").
		ExpectQuery().
		WithArgs("open").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7).AddRow(8))
	stmt, err := drv.Prepare(ctx, "SELECT id FROM note WHERE status = ?")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(ctx, "open"))
	assert.Len(t, drain(t, stmt), 2)
	require.NoError(t, stmt.Close())

	mock.ExpectPrepare("SELECT nope").WillReturnError(errors.New("no such table: nope"))
	_, err = drv.Prepare(ctx, "SELECT nope")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	for _, msg := range []string{"msg=prepare", "msg=execute", "args=[open]", "msg=drained", "rows=2", `msg="prepare failed"`} {
		assert.Contains(t, out, msg)
	}
}
