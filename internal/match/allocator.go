package match

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/courtside/internal/facility"
	"github.com/gokatarajesh/courtside/internal/match/scoring"
)

// Directory is the read-only lookup surface the allocator needs from the store.
type Directory interface {
	SkillGenderPreferences(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]facility.Preferences, error)
	ActiveSessionStarts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error)
	RecentOpponents(ctx context.Context, id uuid.UUID, limit int) ([]uuid.UUID, error)
}

// Options configures allocator behavior. Zero values fall back to defaults.
type Options struct {
	PoolSize        int           // default: 8
	SessionBudget   time.Duration // default: 5h
	UrgentThreshold time.Duration // default: 30m
	RecentOpponents int           // default: 3
	// SplitGroups lets members of complete groups fill urgent and standard
	// pools. When false they are only matched together.
	SplitGroups bool
	Scoring     scoring.ScoringConfig
	Now         func() time.Time
}

// Allocator builds at most one 4-person suggestion per call from a queue snapshot.
// It never mutates the snapshot and holds no state between calls.
type Allocator struct {
	dir    Directory
	opts   Options
	engine *scoring.Engine
	logger zerolog.Logger
}

// NewAllocator creates an allocator over the given directory.
func NewAllocator(dir Directory, opts Options, logger zerolog.Logger) *Allocator {
	if opts.PoolSize < MatchSize {
		opts.PoolSize = 8
	}
	if opts.SessionBudget <= 0 {
		opts.SessionBudget = 5 * time.Hour
	}
	if opts.UrgentThreshold <= 0 {
		opts.UrgentThreshold = 30 * time.Minute
	}
	if opts.RecentOpponents <= 0 {
		opts.RecentOpponents = 3
	}
	if opts.Scoring == (scoring.ScoringConfig{}) {
		opts.Scoring = scoring.DefaultScoringConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Allocator{
		dir:    dir,
		opts:   opts,
		engine: scoring.NewEngine(opts.Scoring),
		logger: logger.With().Str("component", "allocator").Logger(),
	}
}

// GenerateMatch returns a suggestion for req.Court, or nil when no four
// waiting entries at req.LocationID pass validation even with every
// constraint relaxed. Errors are only returned for directory failures.
func (a *Allocator) GenerateMatch(ctx context.Context, req MatchRequest) (*Suggestion, error) {
	eligible := a.eligible(req)
	if len(eligible) < MatchSize {
		return nil, nil
	}

	ids := facility.ParticipantIDs(eligible)
	prefs, err := a.dir.SkillGenderPreferences(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	starts, err := a.dir.ActiveSessionStarts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load session starts: %w", err)
	}

	s := a.newSearch(ctx, eligible, prefs, starts)
	for _, relaxed := range relaxationSchedule {
		cand, branch, err := s.run(newRelaxation(relaxed))
		if err != nil {
			return nil, err
		}
		if cand == nil {
			continue
		}
		sug := a.suggestion(req, cand, branch, relaxed)
		a.logger.Debug().
			Str("court_id", req.Court.ID.String()).
			Str("branch", string(branch)).
			Interface("relaxed", relaxed).
			Int("score", sug.PriorityScore).
			Msg("match generated")
		return sug, nil
	}

	a.logger.Debug().
		Str("court_id", req.Court.ID.String()).
		Int("eligible", len(eligible)).
		Msg("no match possible")
	return nil, nil
}

func (a *Allocator) eligible(req MatchRequest) []facility.QueueEntry {
	waiting := facility.WaitingAt(req.Snapshot, req.LocationID)
	if len(req.Exclude) == 0 {
		return waiting
	}
	out := waiting[:0]
	for _, e := range waiting {
		if !req.Exclude[e.Participant.ID] {
			out = append(out, e)
		}
	}
	return out
}

// urgent returns entries whose session has less than UrgentThreshold left,
// least time remaining first.
func (a *Allocator) urgent(entries []facility.QueueEntry, starts map[uuid.UUID]time.Time) []facility.QueueEntry {
	now := a.opts.Now()
	type scored struct {
		entry     facility.QueueEntry
		remaining time.Duration
	}
	var list []scored
	for _, e := range entries {
		start, ok := starts[e.Participant.ID]
		if !ok {
			continue
		}
		remaining := a.opts.SessionBudget - now.Sub(start)
		if remaining < a.opts.UrgentThreshold {
			list = append(list, scored{entry: e, remaining: remaining})
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].remaining < list[j].remaining
	})

	out := make([]facility.QueueEntry, len(list))
	for i, s := range list {
		out[i] = s.entry
	}
	return out
}

func (a *Allocator) suggestion(req MatchRequest, cand []facility.QueueEntry, branch Branch, relaxed []Constraint) *Suggestion {
	r := newRelaxation(relaxed)
	factors := scoring.Factors{
		IsFriendGroup:        branch == BranchFriendGroup,
		HasTimeUrgentPlayers: branch == BranchTimeUrgent,
		SkillCompatible:      !r[ConstraintSkill],
		GenderCompatible:     !r[ConstraintGender],
		VarietyCompliant:     !r[ConstraintVariety],
	}

	participants := make([]facility.Participant, len(cand))
	entryIDs := make([]uuid.UUID, len(cand))
	for i, e := range cand {
		participants[i] = e.Participant
		entryIDs[i] = e.ID
	}

	return &Suggestion{
		ID:                 uuid.New(),
		CourtID:            req.Court.ID,
		LocationID:         req.LocationID,
		Participants:       participants,
		EntryIDs:           entryIDs,
		Factors:            factors,
		RelaxedConstraints: append([]Constraint{}, relaxed...),
		PriorityScore:      a.engine.PriorityScore(factors),
		Branch:             branch,
		CreatedAt:          a.opts.Now().UTC(),
	}
}
