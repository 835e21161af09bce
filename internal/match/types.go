package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/courtside/internal/facility"
	"github.com/gokatarajesh/courtside/internal/match/scoring"
)

// MatchSize is the number of participants on a court.
const MatchSize = 4

// Constraint names a relaxable validation category.
type Constraint string

// Constraints in priority order: skill is relaxed last, variety first.
const (
	ConstraintSkill   Constraint = "skill"
	ConstraintGender  Constraint = "gender"
	ConstraintVariety Constraint = "variety"
)

// relaxationSchedule lists the cumulative relaxation sets tried in order.
var relaxationSchedule = [][]Constraint{
	{},
	{ConstraintVariety},
	{ConstraintVariety, ConstraintGender},
	{ConstraintVariety, ConstraintGender, ConstraintSkill},
}

// Branch records which search branch produced a suggestion.
type Branch string

const (
	BranchFriendGroup Branch = "friend_group"
	BranchTimeUrgent  Branch = "time_urgent"
	BranchStandard    Branch = "standard"
)

// MatchRequest is the input to GenerateMatch. Snapshot may contain entries
// from every location; Exclude holds participant ids that are already
// reserved by another pending suggestion.
type MatchRequest struct {
	Court      facility.Court
	LocationID uuid.UUID
	Snapshot   []facility.QueueEntry
	Exclude    map[uuid.UUID]bool
}

// Suggestion is an immutable 4-person match proposal for one court.
type Suggestion struct {
	ID                 uuid.UUID              `json:"id"`
	CourtID            uuid.UUID              `json:"court_id"`
	LocationID         uuid.UUID              `json:"location_id"`
	Participants       []facility.Participant `json:"participants"`
	EntryIDs           []uuid.UUID            `json:"entry_ids"`
	Factors            scoring.Factors        `json:"factors"`
	RelaxedConstraints []Constraint           `json:"relaxed_constraints"`
	PriorityScore      int                    `json:"priority_score"`
	Branch             Branch                 `json:"branch"`
	CreatedAt          time.Time              `json:"created_at"`
}

// ParticipantIDs returns the ids of the four matched participants.
func (s *Suggestion) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Participants))
	for i, p := range s.Participants {
		ids[i] = p.ID
	}
	return ids
}

// Relaxed reports whether c was relaxed to produce the suggestion.
func (s *Suggestion) Relaxed(c Constraint) bool {
	for _, r := range s.RelaxedConstraints {
		if r == c {
			return true
		}
	}
	return false
}
