package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/courtside/internal/facility"
)

// search holds the per-call state shared by every relaxation attempt.
type search struct {
	ctx       context.Context
	dir       Directory
	limit     int
	prefs     map[uuid.UUID]facility.Preferences
	opponents map[uuid.UUID]map[uuid.UUID]bool

	friend   []facility.QueueEntry
	urgent   []facility.QueueEntry
	standard []facility.QueueEntry
}

func (a *Allocator) newSearch(
	ctx context.Context,
	eligible []facility.QueueEntry,
	prefs map[uuid.UUID]facility.Preferences,
	starts map[uuid.UUID]time.Time,
) *search {
	groups, solos := facility.GroupEntries(eligible)

	pool := solos
	if a.opts.SplitGroups {
		pool = eligible
	}

	s := &search{
		ctx:       ctx,
		dir:       a.dir,
		limit:     a.opts.RecentOpponents,
		prefs:     prefs,
		opponents: make(map[uuid.UUID]map[uuid.UUID]bool),
		friend:    friendCandidate(groups, solos),
		standard:  head(pool, a.opts.PoolSize),
	}

	if urgent := a.urgent(pool, starts); len(urgent) > 0 {
		s.urgent = head(urgentFirst(urgent, pool), a.opts.PoolSize)
	}
	return s
}

// run tries the friend-group, time-urgency and standard branches in order
// under one relaxation set.
func (s *search) run(relaxed relaxation) ([]facility.QueueEntry, Branch, error) {
	if s.friend != nil {
		ok, err := s.valid(s.friend, relaxed)
		if err != nil {
			return nil, "", err
		}
		if ok {
			return s.friend, BranchFriendGroup, nil
		}
	}

	if len(s.urgent) > 0 {
		cand, err := s.firstValid(s.urgent, relaxed)
		if err != nil || cand != nil {
			return cand, BranchTimeUrgent, err
		}
	}

	cand, err := s.firstValid(s.standard, relaxed)
	return cand, BranchStandard, err
}

// firstValid enumerates 4-subsets of pool in lexicographic index order.
func (s *search) firstValid(pool []facility.QueueEntry, relaxed relaxation) ([]facility.QueueEntry, error) {
	n := len(pool)
	for i := 0; i < n-3; i++ {
		for j := i + 1; j < n-2; j++ {
			for k := j + 1; k < n-1; k++ {
				for l := k + 1; l < n; l++ {
					cand := []facility.QueueEntry{pool[i], pool[j], pool[k], pool[l]}
					ok, err := s.valid(cand, relaxed)
					if err != nil {
						return nil, err
					}
					if ok {
						return cand, nil
					}
				}
			}
		}
	}
	return nil, nil
}

func (s *search) valid(cand []facility.QueueEntry, relaxed relaxation) (bool, error) {
	if !relaxed[ConstraintSkill] && !skillCompatible(cand, s.prefs) {
		return false, nil
	}
	if !relaxed[ConstraintGender] && !genderCompatible(cand, s.prefs) {
		return false, nil
	}
	if !relaxed[ConstraintVariety] {
		return s.varietyCompliant(cand)
	}
	return true, nil
}

// varietyCompliant fails when any candidate is among another candidate's
// most recent opponents.
func (s *search) varietyCompliant(cand []facility.QueueEntry) (bool, error) {
	for _, e := range cand {
		recent, err := s.recentOpponents(e.Participant.ID)
		if err != nil {
			return false, err
		}
		for _, other := range cand {
			if other.Participant.ID != e.Participant.ID && recent[other.Participant.ID] {
				return false, nil
			}
		}
	}
	return true, nil
}

func (s *search) recentOpponents(id uuid.UUID) (map[uuid.UUID]bool, error) {
	if set, ok := s.opponents[id]; ok {
		return set, nil
	}
	ids, err := s.dir.RecentOpponents(s.ctx, id, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load recent opponents: %w", err)
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, o := range ids {
		if len(set) == s.limit {
			break
		}
		set[o] = true
	}
	s.opponents[id] = set
	return set, nil
}

// friendCandidate returns the first group-based four from the first
// category that can produce one: a group of 4, a group of 3 plus a solo, two
// groups of 2, a group of 2 plus two solos. Nil when no category applies.
func friendCandidate(groups []facility.Group, solos []facility.QueueEntry) []facility.QueueEntry {
	if fours := facility.GroupsOfSize(groups, 4); len(fours) > 0 {
		return join(fours[0].Entries)
	}
	if threes := facility.GroupsOfSize(groups, 3); len(threes) > 0 && len(solos) >= 1 {
		return join(threes[0].Entries, solos[:1])
	}
	pairs := facility.GroupsOfSize(groups, 2)
	if len(pairs) >= 2 {
		return join(pairs[0].Entries, pairs[1].Entries)
	}
	if len(pairs) == 1 && len(solos) >= 2 {
		return join(pairs[0].Entries, solos[:2])
	}
	return nil
}

// urgentFirst puts urgent entries ahead of the rest of pool, keeping pool order for the rest.
func urgentFirst(urgent, pool []facility.QueueEntry) []facility.QueueEntry {
	seen := make(map[uuid.UUID]bool, len(urgent))
	out := make([]facility.QueueEntry, 0, len(pool))
	for _, e := range urgent {
		seen[e.ID] = true
		out = append(out, e)
	}
	for _, e := range pool {
		if !seen[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func join(parts ...[]facility.QueueEntry) []facility.QueueEntry {
	out := make([]facility.QueueEntry, 0, MatchSize)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func head(entries []facility.QueueEntry, n int) []facility.QueueEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
