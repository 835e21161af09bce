package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/courtside/internal/db/repository"
	"github.com/gokatarajesh/courtside/internal/facility"
)

var (
	ErrUnknownParticipant = errors.New("participant not found")
	ErrAlreadyQueued      = errors.New("participant is already queued")
)

type participantStore interface {
	GetMany(ctx context.Context, ids []uuid.UUID) ([]facility.Participant, error)
	StartSessions(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type locationStore interface {
	ListWithCourts(ctx context.Context) ([]facility.Location, error)
}

type queueStore interface {
	ListAllWaiting(ctx context.Context) ([]facility.QueueEntry, error)
	Enqueue(ctx context.Context, params repository.EnqueueParams) ([]facility.QueueEntry, error)
}

// CheckInRequest names the arriving participants. IsGroup marks them as
// friends who want to play together.
type CheckInRequest struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	IsGroup        bool        `json:"is_group"`
}

// CheckInResult is where the arrival was placed.
type CheckInResult struct {
	Assignment Assignment            `json:"assignment"`
	GroupID    *uuid.UUID            `json:"group_id,omitempty"`
	Entries    []facility.QueueEntry `json:"entries"`
}

// Service places arrivals into location queues.
type Service struct {
	participants participantStore
	locations    locationStore
	queue        queueStore
	checkIns     *prometheus.CounterVec
	now          func() time.Time
	logger       zerolog.Logger
}

// NewService creates a placement service. reg may be nil.
func NewService(participants participantStore, locations locationStore, queue queueStore, reg prometheus.Registerer, logger zerolog.Logger) *Service {
	checkIns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtside",
		Subsystem: "placement",
		Name:      "check_ins_total",
		Help:      "Check-ins placed, by decision rule.",
	}, []string{"rule"})
	if reg != nil {
		reg.MustRegister(checkIns)
	}
	return &Service{
		participants: participants,
		locations:    locations,
		queue:        queue,
		checkIns:     checkIns,
		now:          time.Now,
		logger:       logger.With().Str("component", "placement_service").Logger(),
	}
}

// CheckIn assigns the arrival to a location, appends it to that queue and
// opens a session for every participant that has none.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if hasDuplicates(req.ParticipantIDs) {
		return nil, ErrInvalidArrival
	}
	if err := validateSize(len(req.ParticipantIDs), req.IsGroup); err != nil {
		return nil, err
	}

	participants, err := s.participants.GetMany(ctx, req.ParticipantIDs)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownParticipant, err)
	}
	if err != nil {
		return nil, err
	}
	arrival := Arrival{Participants: participants, IsGroup: req.IsGroup}

	locations, err := s.locations.ListWithCourts(ctx)
	if err != nil {
		return nil, err
	}
	opt, err := NewOptimizer(locations)
	if err != nil {
		return nil, err
	}
	waiting, err := s.queue.ListAllWaiting(ctx)
	if err != nil {
		return nil, err
	}

	assignment, err := opt.Assign(arrival, waiting)
	if err != nil {
		return nil, err
	}

	if err := s.participants.StartSessions(ctx, req.ParticipantIDs, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("start sessions: %w", err)
	}

	var groupID *uuid.UUID
	if arrival.IsGroup {
		id := uuid.New()
		groupID = &id
	}
	entries, err := s.queue.Enqueue(ctx, repository.EnqueueParams{
		LocationID:   assignment.LocationID,
		Participants: participants,
		GroupID:      groupID,
	})
	if errors.Is(err, repository.ErrAlreadyQueued) {
		return nil, ErrAlreadyQueued
	}
	if err != nil {
		return nil, err
	}

	s.checkIns.WithLabelValues(string(assignment.Rule)).Inc()
	s.logger.Info().
		Str("location_id", assignment.LocationID.String()).
		Str("rule", string(assignment.Rule)).
		Int("size", arrival.Size()).
		Bool("group", arrival.IsGroup).
		Msg("arrival placed")

	return &CheckInResult{Assignment: assignment, GroupID: groupID, Entries: entries}, nil
}

func hasDuplicates(ids []uuid.UUID) bool {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
