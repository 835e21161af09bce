package facility

import (
	"sort"

	"github.com/google/uuid"
)

// Group size bounds for a complete group.
const (
	MinGroupSize = 2
	MaxGroupSize = 4
)

// Group is a complete set of waiting entries sharing a group id.
type Group struct {
	ID      uuid.UUID
	Entries []QueueEntry
}

// Size is the number of members.
func (g Group) Size() int {
	return len(g.Entries)
}

// Bucket is the skill bucket of the group's first member.
func (g Group) Bucket() SkillBucket {
	return g.Entries[0].Participant.Bucket()
}

// WaitingAt returns the waiting entries of a location sorted by position.
func WaitingAt(entries []QueueEntry, locationID uuid.UUID) []QueueEntry {
	out := make([]QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status == EntryWaiting && e.LocationID == locationID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// GroupEntries splits position-sorted entries into complete groups and solos.
// Groups are ordered by the position of their first member. Members of a
// group id with fewer than MinGroupSize or more than MaxGroupSize entries are
// returned as solos.
func GroupEntries(entries []QueueEntry) (groups []Group, solos []QueueEntry) {
	byID := make(map[uuid.UUID][]QueueEntry)
	var order []uuid.UUID
	for _, e := range entries {
		if e.GroupID == nil {
			continue
		}
		id := *e.GroupID
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = append(byID[id], e)
	}

	complete := make(map[uuid.UUID]bool, len(order))
	for _, id := range order {
		members := byID[id]
		if len(members) >= MinGroupSize && len(members) <= MaxGroupSize {
			complete[id] = true
			groups = append(groups, Group{ID: id, Entries: members})
		}
	}

	for _, e := range entries {
		if e.GroupID != nil && complete[*e.GroupID] {
			continue
		}
		solos = append(solos, e)
	}
	return groups, solos
}

// GroupsOfSize filters groups by exact size.
func GroupsOfSize(groups []Group, size int) []Group {
	var out []Group
	for _, g := range groups {
		if g.Size() == size {
			out = append(out, g)
		}
	}
	return out
}

// ParticipantIDs collects participant ids in entry order.
func ParticipantIDs(entries []QueueEntry) []uuid.UUID {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.Participant.ID
	}
	return ids
}
