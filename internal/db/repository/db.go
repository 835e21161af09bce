package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyQueued    = errors.New("participant already queued")
	ErrQueueChanged     = errors.New("queue entries are no longer waiting")
	ErrCourtUnavailable = errors.New("court is not available")
)

// DB is the subset of pgxpool.Pool used by the repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// inTx runs fn inside a transaction, rolling back on error.
func inTx(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// compactWaiting renumbers a location's waiting positions to 1..n keeping order.
// Positions are negated first so the unique index never sees a transient duplicate.
func compactWaiting(ctx context.Context, tx pgx.Tx, locationID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		UPDATE queue_entries SET position = -position
		WHERE location_id = $1 AND status = 'waiting'`, locationID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE queue_entries q SET position = r.rn
		FROM (
			SELECT id, row_number() OVER (ORDER BY position DESC) AS rn
			FROM queue_entries
			WHERE location_id = $1 AND status = 'waiting'
		) r
		WHERE q.id = r.id`, locationID)
	return err
}
