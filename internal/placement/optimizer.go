package placement

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/gokatarajesh/courtside/internal/facility"
)

var (
	ErrNoActiveLocations = errors.New("no active locations")
	ErrInvalidArrival    = errors.New("arrival must be one solo participant or a group of 2-4")
)

// Rule identifies which decision rule picked a location.
type Rule string

const (
	RuleInstantMatch  Rule = "instant_match"
	RuleCompleteGroup Rule = "complete_group"
	RulePairWithPair  Rule = "pair_with_pair"
	RulePairWithSolos Rule = "pair_with_solos"
	RuleJoinTrio      Rule = "join_trio"
	RuleJoinSolos     Rule = "join_solos"
	RuleBestBalance   Rule = "best_balance"
)

var reasons = map[Rule]string{
	RuleInstantMatch:  "instant match",
	RuleCompleteGroup: "completes the group",
	RulePairWithPair:  "pairs with another group of 2",
	RulePairWithSolos: "joins 2 waiting players of the same level",
	RuleJoinTrio:      "completes a waiting group of 3",
	RuleJoinSolos:     "completes 3 waiting players of the same level",
	RuleBestBalance:   "best balance of courts and queue",
}

// Arrival is a newly checked-in individual or group.
type Arrival struct {
	Participants []facility.Participant
	IsGroup      bool
}

// Size is the number of arriving participants.
func (a Arrival) Size() int {
	return len(a.Participants)
}

// Bucket is the skill bucket of the lead participant.
func (a Arrival) Bucket() facility.SkillBucket {
	return a.Participants[0].Bucket()
}

func (a Arrival) validate() error {
	return validateSize(a.Size(), a.IsGroup)
}

func validateSize(n int, isGroup bool) error {
	if n < 1 || n > facility.MaxGroupSize {
		return ErrInvalidArrival
	}
	if isGroup != (n >= facility.MinGroupSize) {
		return ErrInvalidArrival
	}
	return nil
}

// Assignment is the chosen location and the reason it was chosen.
type Assignment struct {
	LocationID   uuid.UUID `json:"location_id"`
	LocationName string    `json:"location_name"`
	Rule         Rule      `json:"rule"`
	Reason       string    `json:"reason"`
	Score        *int      `json:"score,omitempty"`
}

// Optimizer picks the active location where an arrival is most likely to
// play immediately.
type Optimizer struct {
	locations []facility.Location
}

// NewOptimizer keeps the active locations in list order. It fails when none are active.
func NewOptimizer(locations []facility.Location) (*Optimizer, error) {
	active := make([]facility.Location, 0, len(locations))
	for _, l := range locations {
		if l.Active {
			active = append(active, l)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveLocations
	}
	return &Optimizer{locations: active}, nil
}

// Locations returns the active locations considered by the optimizer.
func (o *Optimizer) Locations() []facility.Location {
	return o.locations
}

// Assign chooses a location for the arrival given the current queue snapshot.
func (o *Optimizer) Assign(arrival Arrival, queue []facility.QueueEntry) (Assignment, error) {
	if err := arrival.validate(); err != nil {
		return Assignment{}, err
	}
	if len(o.locations) == 0 {
		return Assignment{}, ErrNoActiveLocations
	}

	views := make([]locationView, len(o.locations))
	for i, l := range o.locations {
		views[i] = newLocationView(l, queue, arrival.Bucket())
	}

	if v, rule, ok := o.direct(arrival, views); ok {
		return assignment(v.location, rule, nil), nil
	}
	return o.fallback(arrival, views), nil
}

// direct applies the instant-match rules in order.
func (o *Optimizer) direct(arrival Arrival, views []locationView) (locationView, Rule, bool) {
	switch arrival.Size() {
	case 4:
		best := views[0]
		for _, v := range views[1:] {
			if v.location.AvailableCourts() > best.location.AvailableCourts() {
				best = v
			}
		}
		return best, RuleInstantMatch, true
	case 3:
		for _, v := range views {
			if v.matchingSolos >= 1 {
				return v, RuleCompleteGroup, true
			}
		}
	case 2:
		for _, v := range views {
			if v.matchingPairs >= 1 {
				return v, RulePairWithPair, true
			}
			if v.matchingSolos >= 2 {
				return v, RulePairWithSolos, true
			}
		}
	case 1:
		for _, v := range views {
			if v.matchingTrios >= 1 {
				return v, RuleJoinTrio, true
			}
			if v.matchingSolos == 3 {
				return v, RuleJoinSolos, true
			}
		}
	}
	return locationView{}, "", false
}

// fallback scores every location and picks the first maximum.
func (o *Optimizer) fallback(arrival Arrival, views []locationView) Assignment {
	type scored struct {
		view  locationView
		score int
	}
	list := make([]scored, len(views))
	for i, v := range views {
		list[i] = scored{view: v, score: v.balanceScore(arrival.Size())}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})
	score := list[0].score
	return assignment(list[0].view.location, RuleBestBalance, &score)
}

func assignment(l facility.Location, rule Rule, score *int) Assignment {
	return Assignment{
		LocationID:   l.ID,
		LocationName: l.Name,
		Rule:         rule,
		Reason:       reasons[rule],
		Score:        score,
	}
}

// locationView summarizes one location's waiting queue relative to an arrival's bucket.
type locationView struct {
	location      facility.Location
	waiting       int
	sameBucket    int
	matchingSolos int
	matchingPairs int
	matchingTrios int
}

func newLocationView(l facility.Location, queue []facility.QueueEntry, bucket facility.SkillBucket) locationView {
	waiting := facility.WaitingAt(queue, l.ID)
	groups, solos := facility.GroupEntries(waiting)

	v := locationView{location: l, waiting: len(waiting)}
	for _, e := range waiting {
		if e.Participant.Bucket() == bucket {
			v.sameBucket++
		}
	}
	for _, e := range solos {
		if e.Participant.Bucket() == bucket {
			v.matchingSolos++
		}
	}
	for _, g := range groups {
		if g.Bucket() != bucket {
			continue
		}
		switch g.Size() {
		case 2:
			v.matchingPairs++
		case 3:
			v.matchingTrios++
		}
	}
	return v
}

// balanceScore is 10 per available court, minus queue length, plus a
// compatibility bonus that depends on the arrival size.
func (v locationView) balanceScore(size int) int {
	score := 10*v.location.AvailableCourts() - v.waiting
	switch size {
	case 3:
		score += 5 * v.matchingSolos
	case 2:
		score += 10 * v.matchingPairs
		if v.matchingSolos >= 2 {
			score += 8
		}
	case 1:
		score += 2 * v.sameBucket
	}
	return score
}
