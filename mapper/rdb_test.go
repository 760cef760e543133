package mapper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rdb"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/query"
)

const countOpen = `SELECT COUNT(*) AS "value" FROM "note" AS "note" WHERE "note"."status" = ?`

func TestSelect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.mapper()

	f.mock.ExpectPrepare(openNotes).ExpectQuery().WithArgs("open").WillReturnRows(noteRows())
	c, err := m.Select(ctx, openQuery(t))
	require.NoError(t, err)
	list, ok := c.(*entity.List)
	require.True(t, ok, "eager select returns a list")
	assert.True(t, list.IsFetched())
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, "Escalation", list.At(2).Get("title"))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSelectStreamed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.mapper()

	q, err := query.NewBuilder().From("Note").Where(query.KV("status", "open")).Order(query.Attr("id")).Sth().Build()
	require.NoError(t, err)
	c, err := m.Select(ctx, q)
	require.NoError(t, err)
	cur, ok := c.(*Cursor)
	require.True(t, ok, "streamed select returns a cursor")
	assert.True(t, cur.IsFetched())
	assert.Equal(t, NotStarted, cur.State())
	require.NoError(t, f.mock.ExpectationsWereMet())

	f.mock.ExpectPrepare(openNotes).WillBeClosed().ExpectQuery().WillReturnRows(noteRows())
	all, err := c.ToArray(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.mapper()

	f.mock.ExpectPrepare(countOpen).ExpectQuery().WithArgs("open").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(3))
	n, err := m.Count(ctx, openQuery(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f.mock.ExpectPrepare(countOpen).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("7"))
	n, err = m.Count(ctx, openQuery(t))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	f.mock.ExpectPrepare(countOpen).ExpectQuery().
		WillReturnError(errors.New("no such column: status"))
	_, err = m.Count(ctx, openQuery(t))
	var qe *rdb.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "count", qe.Op)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.mapper()
	q := openQuery(t)
	tests := []struct {
		fn    func(context.Context, *query.Descriptor, string) (float64, error)
		sql   string
		value any
		want  float64
	}{
		{fn: m.Max, sql: `SELECT MAX("note"."id") AS "value" FROM "note" AS "note" WHERE "note"."status" = ?`, value: 3, want: 3},
		{fn: m.Min, sql: `SELECT MIN("note"."id") AS "value" FROM "note" AS "note" WHERE "note"."status" = ?`, value: nil, want: 0},
		{fn: m.Sum, sql: `SELECT SUM("note"."id") AS "value" FROM "note" AS "note" WHERE "note"."status" = ?`, value: "12.5", want: 12.5},
		{fn: m.Sum, sql: `SELECT SUM("note"."id") AS "value" FROM "note" AS "note" WHERE "note"."status" = ?`, value: 4.25, want: 4.25},
	}
	for _, tt := range tests {
		f.mock.ExpectPrepare(tt.sql).ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(tt.value))
		got, err := tt.fn(ctx, q, "id")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	f.mock.ExpectPrepare(`SELECT MAX("note"."id") AS "value" FROM "note" AS "note" WHERE "note"."status" = ?`).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("n/a"))
	_, err := m.Max(ctx, q, "id")
	require.True(t, rdb.IsQueryError(err))

	_, err = m.Max(ctx, q, "priority")
	require.Error(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSelectRelated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var buf bytes.Buffer
	m := New(f.drv, f.composer, f.factory, WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	noteDef, _ := f.registry.Definition("Note")
	note := entity.New(noteDef)
	note.SetMany(map[string]any{"id": int64(1), "accountId": "a1"})
	accountDef, _ := f.registry.Definition("Account")
	account := entity.New(accountDef)
	account.Set("id", "a1")

	accountQuery := `SELECT "account"."id" AS "id", "account"."name" AS "name" FROM "account" AS "account" WHERE "account"."id" = ? LIMIT 1`
	f.mock.ExpectPrepare(accountQuery).ExpectQuery().WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("a1", "Acme"))
	rel, err := m.SelectRelated(ctx, note, "account", nil)
	require.NoError(t, err)
	require.NotNil(t, rel.Entity)
	assert.Nil(t, rel.Collection)
	assert.Equal(t, "Acme", rel.Entity.Get("name"))
	assert.Equal(t, "Account", rel.Entity.EntityType())

	f.mock.ExpectPrepare(accountQuery).ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	rel, err = m.SelectRelated(ctx, note, "account", nil)
	require.NoError(t, err)
	assert.Equal(t, Related{}, rel)

	f.mock.ExpectPrepare(noteColumns+` WHERE "note"."account_id" = ?`).ExpectQuery().WithArgs("a1").WillReturnRows(noteRows())
	rel, err = m.SelectRelated(ctx, account, "notes", nil)
	require.NoError(t, err)
	require.NotNil(t, rel.Collection)
	notes, err := rel.Collection.ToArray(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 3)
	assert.True(t, rel.Collection.IsFetched())

	q, err := query.NewBuilder().From("Note").Sth().Build()
	require.NoError(t, err)
	rel, err = m.SelectRelated(ctx, account, "notes", q)
	require.NoError(t, err)
	cur, ok := rel.Collection.(*Cursor)
	require.True(t, ok)
	f.mock.ExpectPrepare(noteColumns+` WHERE "note"."account_id" = ?`).ExpectQuery().WithArgs("a1").WillReturnRows(noteRows())
	values, err := cur.ValueMapList(ctx)
	require.NoError(t, err)
	assert.Len(t, values, 3)

	_, err = m.SelectRelated(ctx, account, "owner", nil)
	require.ErrorIs(t, err, rdb.ErrUnknownRelation)

	f.mock.ExpectPrepare(`SELECT COUNT(*) AS "value" FROM "note" AS "note" WHERE "note"."account_id" = ?`).ExpectQuery().WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(2))
	n, err := m.CountRelated(ctx, account, "notes", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Contains(t, buf.String(), "entity=Account")
}
