package facility

import (
	"time"

	"github.com/google/uuid"
)

// SkillRank is the 4-level skill scale (Rank1 lowest).
type SkillRank int

const (
	Rank1 SkillRank = iota + 1
	Rank2
	Rank3
	Rank4
)

// SkillBucket is the 2-category reduction of SkillRank used for matching.
type SkillBucket string

const (
	BucketLow  SkillBucket = "low"
	BucketHigh SkillBucket = "high"
)

// Bucket maps ranks {1,2} to low and {3,4} to high.
func (r SkillRank) Bucket() SkillBucket {
	if r >= Rank3 {
		return BucketHigh
	}
	return BucketLow
}

// Valid reports whether the rank is within 1..4.
func (r SkillRank) Valid() bool {
	return r >= Rank1 && r <= Rank4
}

// Gender categories.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// GenderPreference is the stated gender-match preference. The empty value means unset.
type GenderPreference string

const (
	GenderPrefMaleOnly   GenderPreference = "male_only"
	GenderPrefFemaleOnly GenderPreference = "female_only"
	GenderPrefMixed      GenderPreference = "mixed"
	GenderPrefNone       GenderPreference = "none"
)

// GroupingPreference is informational only.
type GroupingPreference string

const (
	GroupingSolo  GroupingPreference = "solo"
	GroupingGroup GroupingPreference = "group"
)

// SkillPreference is either a stated bucket or unset. The zero value is unset.
type SkillPreference struct {
	bucket SkillBucket
	stated bool
}

// StatedSkill returns a preference for the given bucket.
func StatedSkill(b SkillBucket) SkillPreference {
	return SkillPreference{bucket: b, stated: true}
}

// Bucket returns the preferred bucket and whether one was stated.
func (p SkillPreference) Bucket() (SkillBucket, bool) {
	return p.bucket, p.stated
}

// Preferences groups the stated matching preferences for one participant.
type Preferences struct {
	Skill  SkillPreference
	Gender GenderPreference
}

// Participant is a person who can be queued at a location.
type Participant struct {
	ID       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	Rank     SkillRank          `json:"rank"`
	Gender   Gender             `json:"gender"`
	Grouping GroupingPreference `json:"grouping,omitempty"`
}

// Bucket is the participant's skill bucket.
func (p Participant) Bucket() SkillBucket {
	return p.Rank.Bucket()
}

// EntryStatus is the lifecycle state of a queue entry.
type EntryStatus string

const (
	EntryWaiting EntryStatus = "waiting"
	EntryPlaying EntryStatus = "playing"
)

// QueueEntry is one participant's slot in a location queue.
type QueueEntry struct {
	ID          uuid.UUID   `json:"id"`
	Participant Participant `json:"participant"`
	Position    int         `json:"position"`
	Status      EntryStatus `json:"status"`
	GroupID     *uuid.UUID  `json:"group_id,omitempty"`
	LocationID  uuid.UUID   `json:"location_id"`
}

// Grouped reports whether the entry carries a group id.
func (e QueueEntry) Grouped() bool {
	return e.GroupID != nil
}

// CourtStatus values.
type CourtStatus string

const (
	CourtAvailable CourtStatus = "available"
	CourtOccupied  CourtStatus = "occupied"
)

// Court is a playing slot at a location.
type Court struct {
	ID         uuid.UUID   `json:"id"`
	LocationID uuid.UUID   `json:"location_id"`
	Name       string      `json:"name"`
	Status     CourtStatus `json:"status"`
}

// Location is a physical site with courts.
type Location struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
	Courts []Court   `json:"courts"`
}

// AvailableCourts counts courts that are not occupied.
func (l Location) AvailableCourts() int {
	n := 0
	for _, c := range l.Courts {
		if c.Status == CourtAvailable {
			n++
		}
	}
	return n
}

// Session tracks a participant's active play timer.
type Session struct {
	ParticipantID uuid.UUID
	StartedAt     time.Time
}
