package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gokatarajesh/courtside/internal/facility"
)

const selectQueueEntries = `
	SELECT q.id, q.position, q.status, q.group_id, q.location_id,
	       p.id, p.name, p.skill_rank, p.gender, COALESCE(p.grouping_pref, '')
	FROM queue_entries q
	JOIN participants p ON p.id = q.participant_id`

// QueueRepository reads and appends location queues.
type QueueRepository struct {
	db DB
}

// NewQueueRepository constructs a queue repository.
func NewQueueRepository(db DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// ListWaiting returns a location's waiting entries ordered by position.
func (r *QueueRepository) ListWaiting(ctx context.Context, locationID uuid.UUID) ([]facility.QueueEntry, error) {
	rows, err := r.db.Query(ctx, selectQueueEntries+`
		WHERE q.status = 'waiting' AND q.location_id = $1
		ORDER BY q.position`, locationID)
	if err != nil {
		return nil, fmt.Errorf("query waiting entries: %w", err)
	}
	return collectEntries(rows)
}

// ListAllWaiting returns the waiting entries of every location.
func (r *QueueRepository) ListAllWaiting(ctx context.Context) ([]facility.QueueEntry, error) {
	rows, err := r.db.Query(ctx, selectQueueEntries+`
		WHERE q.status = 'waiting'
		ORDER BY q.location_id, q.position`)
	if err != nil {
		return nil, fmt.Errorf("query waiting entries: %w", err)
	}
	return collectEntries(rows)
}

// EnqueueParams describes participants joining the tail of a location queue.
type EnqueueParams struct {
	LocationID   uuid.UUID
	Participants []facility.Participant
	GroupID      *uuid.UUID
}

// Enqueue appends the participants after the last waiting position, in order.
func (r *QueueRepository) Enqueue(ctx context.Context, params EnqueueParams) ([]facility.QueueEntry, error) {
	entries := make([]facility.QueueEntry, 0, len(params.Participants))

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		// serializes appends to the same location
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM locations WHERE id = $1 FOR UPDATE`, params.LocationID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		var last int
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(position), 0) FROM queue_entries
			WHERE location_id = $1 AND status = 'waiting'`, params.LocationID).Scan(&last); err != nil {
			return err
		}

		for i, p := range params.Participants {
			e := facility.QueueEntry{
				ID:          uuid.New(),
				Participant: p,
				Position:    last + i + 1,
				Status:      facility.EntryWaiting,
				GroupID:     params.GroupID,
				LocationID:  params.LocationID,
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO queue_entries (id, participant_id, location_id, position, status, group_id)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				e.ID, p.ID, e.LocationID, e.Position, string(e.Status), e.GroupID)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return ErrAlreadyQueued
				}
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return entries, nil
}

func collectEntries(rows pgx.Rows) ([]facility.QueueEntry, error) {
	defer rows.Close()

	var entries []facility.QueueEntry
	for rows.Next() {
		var (
			e        facility.QueueEntry
			status   string
			gender   string
			grouping string
			rank     int16
		)
		if err := rows.Scan(
			&e.ID, &e.Position, &status, &e.GroupID, &e.LocationID,
			&e.Participant.ID, &e.Participant.Name, &rank, &gender, &grouping,
		); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.Status = facility.EntryStatus(status)
		e.Participant.Rank = facility.SkillRank(rank)
		e.Participant.Gender = facility.Gender(gender)
		e.Participant.Grouping = facility.GroupingPreference(grouping)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue entries: %w", err)
	}
	return entries, nil
}
