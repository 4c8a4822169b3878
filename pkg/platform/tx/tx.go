// Package tx provides the transactional boundary shared by stores and
// services. A Runner opens a transaction scope, the transaction handle rides
// in the context, and store methods pick it up when present.
package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner executes a function inside a transaction scope. Implementations
// wrap a database transaction or, in-memory, a coarse lock. The scope
// commits on a nil return and rolls back on any error or panic.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs callbacks inside *sql.DB transactions.
type SQLRunner struct {
	db *sql.DB
}

// NewSQLRunner constructs a Runner backed by a SQL database.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

// RunInTx begins a transaction, injects it into the context and invokes fn.
// Row locks acquired inside fn are held until commit or rollback.
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MemoryRunner serializes callbacks with a mutex. The in-memory stores use
// it so the lock-then-check-then-write sequence stays atomic without a
// database.
type MemoryRunner struct {
	mu sync.Mutex
}

// NewMemoryRunner constructs a mutex-backed Runner for in-memory stores.
func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

// RunInTx holds the lock for the duration of fn. There is no rollback of
// in-memory state; callers mutate only after all checks pass, mirroring the
// SQL path where checks precede writes.
func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}
