package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// WithTxContext returns a copy of ctx carrying tx. Repositories pick it up
// through TxFromContext so that every statement of one mutation runs on the
// same transaction.
func WithTxContext(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// TxFromContext returns the transaction carried by ctx, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	if ctx == nil {
		return nil
	}
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// Transactor runs fn inside a single transaction boundary.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PoolTransactor opens read-committed transactions on a pgx pool.
type PoolTransactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) *PoolTransactor {
	return &PoolTransactor{pool: pool}
}

// WithTx begins a transaction, runs fn with it attached to the context and
// commits when fn returns nil. A context that already carries a transaction
// is reused as is, so nested service calls join the outer boundary.
func (t *PoolTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(WithTxContext(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NopTransactor calls fn directly. Tests and in-memory repositories use it.
type NopTransactor struct{}

func (NopTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Savepoint runs fn in a nested transaction when ctx carries one, so a
// failing statement inside fn rolls back to the savepoint instead of
// aborting the outer transaction. Without a transaction fn runs as is.
func Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return fn(ctx)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(WithTxContext(ctx, sp)); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}
