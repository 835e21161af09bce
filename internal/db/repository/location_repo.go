package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/courtside/internal/facility"
)

// LocationRepository loads locations and their courts.
type LocationRepository struct {
	db DB
}

// NewLocationRepository constructs a location repository.
func NewLocationRepository(db DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// ListWithCourts returns every location, active or not, in display order with its courts.
func (r *LocationRepository) ListWithCourts(ctx context.Context) ([]facility.Location, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, is_active FROM locations
		ORDER BY sort_order, name, id`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []facility.Location
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var l facility.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Active); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		index[l.ID] = len(locations)
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	rows.Close()

	courtRows, err := r.db.Query(ctx, `
		SELECT id, location_id, name, status FROM courts
		ORDER BY sort_order, name, id`)
	if err != nil {
		return nil, fmt.Errorf("query courts: %w", err)
	}
	defer courtRows.Close()

	for courtRows.Next() {
		var (
			c      facility.Court
			status string
		)
		if err := courtRows.Scan(&c.ID, &c.LocationID, &c.Name, &status); err != nil {
			return nil, fmt.Errorf("scan court: %w", err)
		}
		c.Status = facility.CourtStatus(status)
		if i, ok := index[c.LocationID]; ok {
			locations[i].Courts = append(locations[i].Courts, c)
		}
	}
	if err := courtRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courts: %w", err)
	}
	return locations, nil
}

// GetCourt returns a court and whether its location is active.
func (r *LocationRepository) GetCourt(ctx context.Context, courtID uuid.UUID) (facility.Court, bool, error) {
	var (
		c      facility.Court
		status string
		active bool
	)
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.location_id, c.name, c.status, l.is_active
		FROM courts c
		JOIN locations l ON l.id = c.location_id
		WHERE c.id = $1`, courtID).Scan(&c.ID, &c.LocationID, &c.Name, &status, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return facility.Court{}, false, ErrNotFound
	}
	if err != nil {
		return facility.Court{}, false, fmt.Errorf("get court: %w", err)
	}
	c.Status = facility.CourtStatus(status)
	return c, active, nil
}
