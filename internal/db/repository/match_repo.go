package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchRepository applies accepted suggestions and finished matches to the store.
type MatchRepository struct {
	db DB
}

// NewMatchRepository constructs a new match repository.
func NewMatchRepository(db DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// StartMatchParams describes an accepted suggestion.
type StartMatchParams struct {
	MatchID            uuid.UUID
	CourtID            uuid.UUID
	LocationID         uuid.UUID
	EntryIDs           []uuid.UUID
	ParticipantIDs     []uuid.UUID
	Branch             string
	PriorityScore      int
	RelaxedConstraints []string
	StartedAt          time.Time
}

// StartMatch marks the entries playing, occupies the court, closes the gap in
// the waiting queue and records the match, in one transaction.
func (r *MatchRepository) StartMatch(ctx context.Context, p StartMatchParams) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		court, err := tx.Exec(ctx, `
			UPDATE courts SET status = 'occupied'
			WHERE id = $1 AND location_id = $2 AND status = 'available'`, p.CourtID, p.LocationID)
		if err != nil {
			return err
		}
		if court.RowsAffected() != 1 {
			return ErrCourtUnavailable
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO matches (id, court_id, location_id, branch, priority_score, relaxed_constraints, started_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.MatchID, p.CourtID, p.LocationID, p.Branch, p.PriorityScore, p.RelaxedConstraints, p.StartedAt); err != nil {
			return err
		}

		for _, id := range p.ParticipantIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO match_players (match_id, participant_id) VALUES ($1, $2)`, p.MatchID, id); err != nil {
				return err
			}
		}

		entries, err := tx.Exec(ctx, `
			UPDATE queue_entries SET status = 'playing', match_id = $1
			WHERE id = ANY($2) AND location_id = $3 AND status = 'waiting'`,
			p.MatchID, p.EntryIDs, p.LocationID)
		if err != nil {
			return err
		}
		if int(entries.RowsAffected()) != len(p.EntryIDs) {
			return ErrQueueChanged
		}

		return compactWaiting(ctx, tx, p.LocationID)
	})
	if err != nil {
		return fmt.Errorf("start match: %w", err)
	}
	return nil
}

// FinishMatch frees the court and removes the players' queue entries.
// It returns the freed court.
func (r *MatchRepository) FinishMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (uuid.UUID, error) {
	var courtID uuid.UUID
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE matches SET ended_at = $2
			WHERE id = $1 AND ended_at IS NULL
			RETURNING court_id`, matchID, at).Scan(&courtID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM queue_entries WHERE match_id = $1`, matchID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE courts SET status = 'available' WHERE id = $1`, courtID)
		return err
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("finish match: %w", err)
	}
	return courtID, nil
}
