package scoring

// ScoringConfig holds the weights added to a suggestion's priority score.
type ScoringConfig struct {
	FriendGroup  int // default: 100
	TimeUrgent   int // default: 50
	SkillMatch   int // default: 30
	GenderMatch  int // default: 15
	VarietyMatch int // default: 10
}

// DefaultScoringConfig returns production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		FriendGroup:  100,
		TimeUrgent:   50,
		SkillMatch:   30,
		GenderMatch:  15,
		VarietyMatch: 10,
	}
}

// Factors are the boolean properties of a match that contribute to its score.
type Factors struct {
	IsFriendGroup        bool `json:"is_friend_group"`
	HasTimeUrgentPlayers bool `json:"has_time_urgent_players"`
	SkillCompatible      bool `json:"skill_compatible"`
	GenderCompatible     bool `json:"gender_compatible"`
	VarietyCompliant     bool `json:"variety_compliant"`
}

// Engine computes priority scores with configurable weights.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config ScoringConfig) *Engine {
	return &Engine{config: config}
}

// PriorityScore sums the weight of every factor that holds.
// The score is informational and never used to rank candidates.
func (e *Engine) PriorityScore(f Factors) int {
	score := 0
	if f.IsFriendGroup {
		score += e.config.FriendGroup
	}
	if f.HasTimeUrgentPlayers {
		score += e.config.TimeUrgent
	}
	if f.SkillCompatible {
		score += e.config.SkillMatch
	}
	if f.GenderCompatible {
		score += e.config.GenderMatch
	}
	if f.VarietyCompliant {
		score += e.config.VarietyMatch
	}
	return score
}
