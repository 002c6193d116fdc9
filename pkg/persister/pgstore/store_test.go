package pgstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statepersist/pkg/persister"
	"github.com/dmitrymomot/statepersist/pkg/persister/pgstore"
)

type fakeRow struct {
	state *string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(**string)) = r.state
	return nil
}

type fakeDB struct {
	sql  string
	args []any
	tag  pgconn.CommandTag
	err  error
	row  fakeRow
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return f.tag, f.err
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := pgstore.New(&fakeDB{}, pgstore.Config{Table: "orders"})
	assert.ErrorIs(t, err, pgstore.ErrInvalidConfig)

	_, err = pgstore.New(nil, pgstore.DefaultConfig())
	assert.Error(t, err)

	assert.Panics(t, func() {
		pgstore.MustNew(&fakeDB{}, pgstore.Config{})
	})
}

func TestStore_UpdateState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("binds values and reports affected rows", func(t *testing.T) {
		t.Parallel()
		db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
		store := pgstore.MustNew(db, pgstore.Config{Table: "billing.orders", IDColumn: "order_id", StateColumn: "status"})

		affected, err := store.UpdateState(ctx, persister.Update{
			ID:          int64(42),
			Expected:    "new",
			MatchAbsent: true,
			Next:        "processing",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)

		assert.Equal(t,
			`UPDATE "billing"."orders" SET "status" = $1 WHERE "order_id" = $2 AND ("status" = $3 OR ($4::boolean AND "status" IS NULL))`,
			db.sql)
		assert.Equal(t, []any{"processing", int64(42), "new", true}, db.args)
	})

	t.Run("zero rows", func(t *testing.T) {
		t.Parallel()
		db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
		store := pgstore.MustNew(db, pgstore.DefaultConfig())

		affected, err := store.UpdateState(ctx, persister.Update{ID: 1, Expected: "processing", Next: "shipped"})
		require.NoError(t, err)
		assert.Zero(t, affected)
		assert.Equal(t, false, db.args[3])
	})

	t.Run("identifiers are quoted", func(t *testing.T) {
		t.Parallel()
		db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
		store := pgstore.MustNew(db, pgstore.Config{Table: `orders"; DROP TABLE x; --`, IDColumn: "id", StateColumn: "state"})

		_, err := store.UpdateState(ctx, persister.Update{ID: 1, Expected: "new", Next: "processing"})
		require.NoError(t, err)
		assert.Contains(t, db.sql, `"orders""; DROP TABLE x; --"`)
	})

	t.Run("driver errors propagate", func(t *testing.T) {
		t.Parallel()
		errConn := errors.New("conn closed")
		store := pgstore.MustNew(&fakeDB{err: errConn}, pgstore.DefaultConfig())

		_, err := store.UpdateState(ctx, persister.Update{ID: 1, Expected: "new", Next: "processing"})
		assert.ErrorIs(t, err, errConn)
	})
}

func TestStore_LoadState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	shipped := "shipped"

	tests := []struct {
		name    string
		row     fakeRow
		want    string
		wantErr error
	}{
		{"recorded state", fakeRow{state: &shipped}, "shipped", nil},
		{"null state", fakeRow{}, "", nil},
		{"no row", fakeRow{err: pgx.ErrNoRows}, "", persister.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := &fakeDB{row: tt.row}
			store := pgstore.MustNew(db, pgstore.DefaultConfig())

			got, err := store.LoadState(ctx, int64(7))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, `SELECT "state" FROM "entities" WHERE "id" = $1`, db.sql)
			assert.Equal(t, []any{int64(7)}, db.args)
		})
	}

	t.Run("driver errors propagate", func(t *testing.T) {
		t.Parallel()
		errConn := errors.New("conn closed")
		store := pgstore.MustNew(&fakeDB{row: fakeRow{err: errConn}}, pgstore.DefaultConfig())

		_, err := store.LoadState(ctx, 1)
		assert.ErrorIs(t, err, errConn)
		assert.NotErrorIs(t, err, persister.ErrNotFound)
	})
}

func TestStore_InsertDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	store := pgstore.MustNew(db, pgstore.DefaultConfig())

	require.NoError(t, store.Insert(ctx, int64(3), ""))
	assert.Equal(t, `INSERT INTO "entities" ("id", "state") VALUES ($1, $2)`, db.sql)
	require.Len(t, db.args, 2)
	assert.Nil(t, db.args[1], "empty state is stored as NULL")

	require.NoError(t, store.Insert(ctx, int64(4), "shipped"))
	require.Len(t, db.args, 2)
	state, ok := db.args[1].(*string)
	require.True(t, ok)
	assert.Equal(t, "shipped", *state)

	require.NoError(t, store.Delete(ctx, int64(4)))
	assert.Equal(t, `DELETE FROM "entities" WHERE "id" = $1`, db.sql)
	assert.Equal(t, []any{int64(4)}, db.args)
}

func TestStore_InsertDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := &fakeDB{err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})}
	store := pgstore.MustNew(db, pgstore.DefaultConfig())
	err := store.Insert(ctx, int64(7), "new")
	assert.ErrorIs(t, err, persister.ErrAlreadyExists)

	db.err = errors.New("connection reset")
	err = store.Insert(ctx, int64(8), "new")
	require.Error(t, err)
	assert.NotErrorIs(t, err, persister.ErrAlreadyExists)
}

func TestTxFromContext(t *testing.T) {
	t.Parallel()
	_, ok := pgstore.TxFromContext(context.Background())
	assert.False(t, ok)
}
