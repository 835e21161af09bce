package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/courtside/internal/db/repository"
	"github.com/gokatarajesh/courtside/internal/facility"
	"github.com/gokatarajesh/courtside/internal/match/queue"
)

var (
	ErrCourtNotFound    = errors.New("court not found")
	ErrCourtUnavailable = errors.New("court is not available")
	ErrLocationBusy     = errors.New("location is being allocated")
	ErrSuggestionStale  = errors.New("suggestion no longer applies")
	ErrMatchNotFound    = errors.New("match not found")
)

type courtStore interface {
	GetCourt(ctx context.Context, courtID uuid.UUID) (facility.Court, bool, error)
}

type queueStore interface {
	ListWaiting(ctx context.Context, locationID uuid.UUID) ([]facility.QueueEntry, error)
}

type matchStore interface {
	StartMatch(ctx context.Context, p repository.StartMatchParams) error
	FinishMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (uuid.UUID, error)
}

type sessionStore interface {
	StartSessions(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type holdManager interface {
	LockLocation(ctx context.Context, locationID uuid.UUID) (func() error, error)
	Hold(ctx context.Context, suggestionID uuid.UUID, participantIDs []uuid.UUID) error
	Release(ctx context.Context, suggestionID uuid.UUID, participantIDs []uuid.UUID) error
	Held(ctx context.Context, participantIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type suggestionStore interface {
	Save(ctx context.Context, sug *Suggestion) error
	Get(ctx context.Context, id uuid.UUID) (*Suggestion, error)
	ForCourt(ctx context.Context, courtID uuid.UUID) (*Suggestion, error)
	Delete(ctx context.Context, sug *Suggestion) error
}

type eventPublisher interface {
	Publish(ctx context.Context, evt Event)
}

// Match is a started match.
type Match struct {
	ID             uuid.UUID   `json:"match_id"`
	SuggestionID   uuid.UUID   `json:"suggestion_id"`
	CourtID        uuid.UUID   `json:"court_id"`
	LocationID     uuid.UUID   `json:"location_id"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	StartedAt      time.Time   `json:"started_at"`
}

// Service turns allocator output into held suggestions and applies
// accepted ones to the store.
type Service struct {
	courts      courtStore
	queue       queueStore
	matches     matchStore
	sessions    sessionStore
	holds       holdManager
	suggestions suggestionStore
	allocator   *Allocator
	events      eventPublisher
	metrics     *Metrics
	now         func() time.Time
	logger      zerolog.Logger
}

// Deps groups the service's collaborators.
type Deps struct {
	Courts      courtStore
	Queue       queueStore
	Matches     matchStore
	Sessions    sessionStore
	Holds       holdManager
	Suggestions suggestionStore
	Allocator   *Allocator
	Events      eventPublisher
	Metrics     *Metrics
}

// NewService creates a match service. A nil Metrics gets unregistered collectors.
func NewService(deps Deps, now func() time.Time, logger zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	return &Service{
		courts:      deps.Courts,
		queue:       deps.Queue,
		matches:     deps.Matches,
		sessions:    deps.Sessions,
		holds:       deps.Holds,
		suggestions: deps.Suggestions,
		allocator:   deps.Allocator,
		events:      deps.Events,
		metrics:     deps.Metrics,
		now:         now,
		logger:      logger.With().Str("component", "match_service").Logger(),
	}
}

// SuggestForCourt returns the court's pending suggestion, or generates, holds
// and stores a new one. It returns nil when the queue cannot fill the court.
func (s *Service) SuggestForCourt(ctx context.Context, courtID uuid.UUID) (*Suggestion, error) {
	court, active, err := s.courts.GetCourt(ctx, courtID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCourtNotFound
	}
	if err != nil {
		return nil, err
	}
	if !active || court.Status != facility.CourtAvailable {
		return nil, ErrCourtUnavailable
	}

	unlock, err := s.holds.LockLocation(ctx, court.LocationID)
	if errors.Is(err, queue.ErrLockNotAcquired) {
		return nil, ErrLocationBusy
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Warn().Err(err).Str("location_id", court.LocationID.String()).Msg("failed to release location lock")
		}
	}()

	pending, err := s.suggestions.ForCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return pending, nil
	}

	entries, err := s.queue.ListWaiting(ctx, court.LocationID)
	if err != nil {
		return nil, err
	}
	held, err := s.holds.Held(ctx, facility.ParticipantIDs(entries))
	if err != nil {
		return nil, err
	}

	started := time.Now()
	sug, err := s.allocator.GenerateMatch(ctx, MatchRequest{
		Court:      court,
		LocationID: court.LocationID,
		Snapshot:   entries,
		Exclude:    held,
	})
	s.metrics.AllocLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("generate match: %w", err)
	}
	if sug == nil {
		s.metrics.NoMatch.Inc()
		return nil, nil
	}

	ids := sug.ParticipantIDs()
	if err := s.holds.Hold(ctx, sug.ID, ids); err != nil {
		return nil, err
	}
	if err := s.suggestions.Save(ctx, sug); err != nil {
		s.release(ctx, sug)
		return nil, err
	}

	s.metrics.observeSuggestion(sug)
	s.events.Publish(ctx, Event{
		Type:           EventSuggested,
		SuggestionID:   sug.ID,
		CourtID:        sug.CourtID,
		LocationID:     sug.LocationID,
		ParticipantIDs: ids,
		PriorityScore:  sug.PriorityScore,
		Branch:         sug.Branch,
		At:             sug.CreatedAt,
	})
	s.logger.Info().
		Str("suggestion_id", sug.ID.String()).
		Str("court_id", courtID.String()).
		Str("branch", string(sug.Branch)).
		Int("score", sug.PriorityScore).
		Msg("suggestion created")
	return sug, nil
}

// Accept starts the suggested match. A suggestion whose entries or court
// changed since it was made is discarded and ErrSuggestionStale returned.
func (s *Service) Accept(ctx context.Context, suggestionID uuid.UUID) (*Match, error) {
	sug, err := s.suggestions.Get(ctx, suggestionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &Match{
		ID:             uuid.New(),
		SuggestionID:   sug.ID,
		CourtID:        sug.CourtID,
		LocationID:     sug.LocationID,
		ParticipantIDs: sug.ParticipantIDs(),
		StartedAt:      now,
	}

	// StartSessions skips participants that already have an open session.
	if err := s.sessions.StartSessions(ctx, m.ParticipantIDs, now); err != nil {
		return nil, fmt.Errorf("start sessions: %w", err)
	}

	relaxed := make([]string, len(sug.RelaxedConstraints))
	for i, c := range sug.RelaxedConstraints {
		relaxed[i] = string(c)
	}
	err = s.matches.StartMatch(ctx, repository.StartMatchParams{
		MatchID:            m.ID,
		CourtID:            sug.CourtID,
		LocationID:         sug.LocationID,
		EntryIDs:           sug.EntryIDs,
		ParticipantIDs:     m.ParticipantIDs,
		Branch:             string(sug.Branch),
		PriorityScore:      sug.PriorityScore,
		RelaxedConstraints: relaxed,
		StartedAt:          now,
	})
	if errors.Is(err, repository.ErrQueueChanged) || errors.Is(err, repository.ErrCourtUnavailable) {
		s.discard(ctx, sug)
		s.metrics.Outcomes.WithLabelValues("stale").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSuggestionStale, err)
	}
	if err != nil {
		return nil, err
	}

	s.discard(ctx, sug)

	s.metrics.Outcomes.WithLabelValues("accepted").Inc()
	s.events.Publish(ctx, Event{
		Type:           EventStarted,
		SuggestionID:   sug.ID,
		MatchID:        m.ID,
		CourtID:        m.CourtID,
		LocationID:     m.LocationID,
		ParticipantIDs: m.ParticipantIDs,
		PriorityScore:  sug.PriorityScore,
		Branch:         sug.Branch,
		At:             now,
	})
	s.logger.Info().
		Str("match_id", m.ID.String()).
		Str("court_id", m.CourtID.String()).
		Msg("match started")
	return m, nil
}

// Reject drops the suggestion and frees its participants.
func (s *Service) Reject(ctx context.Context, suggestionID uuid.UUID) error {
	sug, err := s.suggestions.Get(ctx, suggestionID)
	if err != nil {
		return err
	}
	s.discard(ctx, sug)

	s.metrics.Outcomes.WithLabelValues("rejected").Inc()
	s.events.Publish(ctx, Event{
		Type:           EventRejected,
		SuggestionID:   sug.ID,
		CourtID:        sug.CourtID,
		LocationID:     sug.LocationID,
		ParticipantIDs: sug.ParticipantIDs(),
		At:             s.now().UTC(),
	})
	return nil
}

// Finish ends a match, freeing its court and removing its players from the queue.
func (s *Service) Finish(ctx context.Context, matchID uuid.UUID) error {
	courtID, err := s.matches.FinishMatch(ctx, matchID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMatchNotFound
	}
	if err != nil {
		return err
	}

	s.events.Publish(ctx, Event{
		Type:    EventFinished,
		MatchID: matchID,
		CourtID: courtID,
		At:      s.now().UTC(),
	})
	return nil
}

func (s *Service) discard(ctx context.Context, sug *Suggestion) {
	s.release(ctx, sug)
	if err := s.suggestions.Delete(ctx, sug); err != nil {
		s.logger.Warn().Err(err).Str("suggestion_id", sug.ID.String()).Msg("failed to delete suggestion")
	}
}

func (s *Service) release(ctx context.Context, sug *Suggestion) {
	if err := s.holds.Release(ctx, sug.ID, sug.ParticipantIDs()); err != nil {
		s.logger.Warn().Err(err).Str("suggestion_id", sug.ID.String()).Msg("failed to release holds")
	}
}
