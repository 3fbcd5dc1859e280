package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/interviewsim/orchestrator/internal/eventbus"
)

// UnitOfWork wraps a single Postgres transaction and collects events
// raised inside it. Events are only dispatched to the bus after the
// transaction commits; a rollback discards them untouched, per spec.md
// §4.5.
type UnitOfWork struct {
	pool   *pgxpool.Pool
	bus    *eventbus.Bus
	tx     pgxTx
	events []eventbus.Event
}

// pgxTx is the subset of pgx.Tx a UnitOfWork needs, narrowed so the
// repositories only ever see the [DB] interface.
type pgxTx interface {
	DB
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// NewUnitOfWork creates a UnitOfWork bound to pool and bus.
func NewUnitOfWork(pool *pgxpool.Pool, bus *eventbus.Bus) *UnitOfWork {
	return &UnitOfWork{pool: pool, bus: bus}
}

// Run begins a transaction, invokes fn with a [DB] bound to it, and on
// success commits and dispatches every event fn passed to raise. On
// failure, or if fn returns an error, the transaction is rolled back and
// the events are discarded.
func (u *UnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, tx DB, raise func(eventbus.Event)) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("unitofwork: begin: %w", err)
	}

	var events []eventbus.Event
	raise := func(evt eventbus.Event) {
		events = append(events, evt)
	}

	if err := fn(ctx, tx, raise); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("unitofwork: commit: %w", err)
	}

	for _, evt := range events {
		u.bus.Dispatch(ctx, evt)
	}
	return nil
}
