package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/slotgo/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// Set exposes the store as a repository backend.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Events:   s.Events(),
		Ledger:   s.Ledger(),
		Bookings: s.Bookings(),
		Tx:       s,
	}
}

// RunTx runs fn inside a read-committed transaction. Repositories called
// with the ctx handed to fn use the transaction instead of the pool.
// A failed COMMIT is reported as repository.ErrCommitUnknown; any other
// error means the transaction was rolled back.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	const op = "postgresrepo.Store.RunTx"

	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(context.WithoutCancel(ctx))

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return commitFailed(op, err)
	}

	return nil
}

// commitFailed marks err as a failure whose outcome is unknown: the server
// may have committed before the error reached us.
func commitFailed(op string, err error) error {
	return fmt.Errorf("%s.commit:%w: %w", op, repository.ErrCommitUnknown, translateDBErr(err))
}

func handle(ctx context.Context, pool *pgxpool.Pool) DB {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

func (s *Store) Events() *EventRepo    { return &EventRepo{pool: s.pool} }
func (s *Store) Ledger() *LedgerRepo   { return &LedgerRepo{pool: s.pool} }
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{pool: s.pool} }
