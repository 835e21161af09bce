package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/courtside/internal/facility"
)

// ParticipantRepository serves participant profiles, preferences, sessions and match history.
type ParticipantRepository struct {
	db DB
}

// NewParticipantRepository constructs a participant repository.
func NewParticipantRepository(db DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// GetMany loads participants by id, preserving the order of ids.
// A missing id yields ErrNotFound.
func (r *ParticipantRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]facility.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, skill_rank, gender, COALESCE(grouping_pref, '')
		FROM participants WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]facility.Participant, len(ids))
	for rows.Next() {
		var (
			p        facility.Participant
			rank     int16
			gender   string
			grouping string
		)
		if err := rows.Scan(&p.ID, &p.Name, &rank, &gender, &grouping); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.Rank = facility.SkillRank(rank)
		p.Gender = facility.Gender(gender)
		p.Grouping = facility.GroupingPreference(grouping)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}

	out := make([]facility.Participant, len(ids))
	for i, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("participant %s: %w", id, ErrNotFound)
		}
		out[i] = p
	}
	return out, nil
}

// SkillGenderPreferences returns stated preferences. Participants without a
// row, or with NULL columns, are left unset.
func (r *ParticipantRepository) SkillGenderPreferences(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]facility.Preferences, error) {
	rows, err := r.db.Query(ctx, `
		SELECT participant_id, skill_bucket, gender_pref
		FROM participant_preferences WHERE participant_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[uuid.UUID]facility.Preferences, len(ids))
	for rows.Next() {
		var (
			id     uuid.UUID
			bucket *string
			gender *string
		)
		if err := rows.Scan(&id, &bucket, &gender); err != nil {
			return nil, fmt.Errorf("scan preferences: %w", err)
		}
		var p facility.Preferences
		if bucket != nil {
			p.Skill = facility.StatedSkill(facility.SkillBucket(*bucket))
		}
		if gender != nil {
			p.Gender = facility.GenderPreference(*gender)
		}
		prefs[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return prefs, nil
}

// ActiveSessionStarts returns the start time of each participant's open session.
func (r *ParticipantRepository) ActiveSessionStarts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT participant_id, started_at FROM sessions
		WHERE participant_id = ANY($1) AND ended_at IS NULL`, ids)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	starts := make(map[uuid.UUID]time.Time, len(ids))
	for rows.Next() {
		var (
			id    uuid.UUID
			start time.Time
		)
		if err := rows.Scan(&id, &start); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		starts[id] = start
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return starts, nil
}

// StartSessions opens a session for every participant that has none.
func (r *ParticipantRepository) StartSessions(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	for _, id := range ids {
		_, err := r.db.Exec(ctx, `
			INSERT INTO sessions (id, participant_id, started_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (participant_id) WHERE ended_at IS NULL DO NOTHING`,
			uuid.New(), id, at)
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}
	return nil
}

// RecentOpponents returns up to limit distinct co-players, most recent match first.
func (r *ParticipantRepository) RecentOpponents(ctx context.Context, id uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT opp.participant_id
		FROM match_players me
		JOIN matches m ON m.id = me.match_id
		JOIN match_players opp ON opp.match_id = me.match_id AND opp.participant_id <> me.participant_id
		WHERE me.participant_id = $1
		GROUP BY opp.participant_id
		ORDER BY MAX(m.started_at) DESC
		LIMIT $2`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("query opponents: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var opp uuid.UUID
		if err := rows.Scan(&opp); err != nil {
			return nil, fmt.Errorf("scan opponent: %w", err)
		}
		out = append(out, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opponents: %w", err)
	}
	return out, nil
}
