package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/statepersist/pkg/persister"
	"github.com/dmitrymomot/statepersist/pkg/pg"
)

// Migrations holds goose migrations for the reference state table matching
// DefaultConfig. Apply them with pg.MigrateFS using "migrations" as the path.
//
//go:embed migrations/*.sql
var Migrations embed.FS

var ErrInvalidConfig = errors.New("pgstore: table and column names cannot be empty")

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements persister.Store on a PostgreSQL table. Statements are
// built once from the sanitized identifiers in Config; all values are bound
// parameters.
type Store struct {
	db        DBTX
	updateSQL string
	selectSQL string
	insertSQL string
	deleteSQL string
}

var _ persister.Store = (*Store)(nil)

// New creates a store over db.
func New(db DBTX, cfg Config) (*Store, error) {
	if db == nil {
		return nil, errors.New("pgstore: db cannot be nil")
	}
	if cfg.Table == "" || cfg.IDColumn == "" || cfg.StateColumn == "" {
		return nil, ErrInvalidConfig
	}

	table := pgx.Identifier(strings.Split(cfg.Table, ".")).Sanitize()
	id := pgx.Identifier{cfg.IDColumn}.Sanitize()
	state := pgx.Identifier{cfg.StateColumn}.Sanitize()

	return &Store{
		db: db,
		// $4 widens the match to NULL state only when the expected state is the start state.
		updateSQL: fmt.Sprintf(
			"UPDATE %s SET %s = $1 WHERE %s = $2 AND (%s = $3 OR ($4::boolean AND %s IS NULL))",
			table, state, id, state, state),
		selectSQL: fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", state, table, id),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2)", table, id, state),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, id),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(db DBTX, cfg Config) *Store {
	s, err := New(db, cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// UpdateState implements persister.Store.
func (s *Store) UpdateState(ctx context.Context, u persister.Update) (int64, error) {
	tag, err := s.conn(ctx).Exec(ctx, s.updateSQL, u.Next, u.ID, u.Expected, u.MatchAbsent)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LoadState implements persister.Store.
func (s *Store) LoadState(ctx context.Context, id any) (string, error) {
	var state *string
	if err := s.conn(ctx).QueryRow(ctx, s.selectSQL, id).Scan(&state); err != nil {
		if pg.IsNotFoundError(err) {
			return "", persister.ErrNotFound
		}
		return "", err
	}
	if state == nil {
		return "", nil
	}
	return *state, nil
}

// Insert adds a row with the given id and state. An empty state is stored as
// NULL, which the persister reads as the start state. A taken id yields
// persister.ErrAlreadyExists.
func (s *Store) Insert(ctx context.Context, id any, state string) error {
	var value *string
	if state != "" {
		value = &state
	}
	if _, err := s.conn(ctx).Exec(ctx, s.insertSQL, id, value); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return errors.Join(persister.ErrAlreadyExists, err)
		}
		return err
	}
	return nil
}

// Delete removes the row with the given id.
func (s *Store) Delete(ctx context.Context, id any) error {
	_, err := s.conn(ctx).Exec(ctx, s.deleteSQL, id)
	return err
}

func (s *Store) conn(ctx context.Context) DBTX {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}

type txKey struct{}

// WithTx makes every store call made with the returned context run inside tx,
// so state changes commit or roll back with the surrounding unit of work.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction attached with WithTx.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs fn in a transaction carried by ctx. The transaction commits when
// fn returns nil and rolls back otherwise.
func InTx(ctx context.Context, db TxBeginner, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		return fn(WithTx(ctx, tx))
	})
}
