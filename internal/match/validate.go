package match

import (
	"github.com/google/uuid"

	"github.com/gokatarajesh/courtside/internal/facility"
)

type relaxation map[Constraint]bool

func newRelaxation(cs []Constraint) relaxation {
	r := make(relaxation, len(cs))
	for _, c := range cs {
		r[c] = true
	}
	return r
}

// skillCompatible requires all four candidates in one bucket and every stated
// skill preference to equal that bucket.
func skillCompatible(cand []facility.QueueEntry, prefs map[uuid.UUID]facility.Preferences) bool {
	bucket := cand[0].Participant.Bucket()
	for _, e := range cand[1:] {
		if e.Participant.Bucket() != bucket {
			return false
		}
	}
	for _, e := range cand {
		if want, ok := prefs[e.Participant.ID].Skill.Bucket(); ok && want != bucket {
			return false
		}
	}
	return true
}

// genderCompatible checks every candidate's gender-match preference against
// the composition of the four. Unset preferences never fail.
func genderCompatible(cand []facility.QueueEntry, prefs map[uuid.UUID]facility.Preferences) bool {
	var males, females int
	sameCategory := true
	for i, e := range cand {
		switch e.Participant.Gender {
		case facility.GenderMale:
			males++
		case facility.GenderFemale:
			females++
		}
		if i > 0 && e.Participant.Gender != cand[0].Participant.Gender {
			sameCategory = false
		}
	}

	for _, e := range cand {
		switch prefs[e.Participant.ID].Gender {
		case facility.GenderPrefMaleOnly:
			if females > 0 {
				return false
			}
		case facility.GenderPrefFemaleOnly:
			if males > 0 {
				return false
			}
		case facility.GenderPrefMixed:
			if sameCategory {
				return false
			}
		}
	}
	return true
}
