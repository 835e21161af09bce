package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityScore(t *testing.T) {
	engine := NewEngine(DefaultScoringConfig())

	cases := []struct {
		name    string
		factors Factors
		want    int
	}{
		{"nothing", Factors{}, 0},
		{"fully compatible", Factors{SkillCompatible: true, GenderCompatible: true, VarietyCompliant: true}, 55},
		{"friend group", Factors{IsFriendGroup: true, SkillCompatible: true, GenderCompatible: true, VarietyCompliant: true}, 155},
		{"urgent with gender relaxed", Factors{HasTimeUrgentPlayers: true, SkillCompatible: true}, 80},
		{"everything", Factors{true, true, true, true, true}, 205},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, engine.PriorityScore(tc.factors))
		})
	}
}

func TestPriorityScoreCustomWeights(t *testing.T) {
	engine := NewEngine(ScoringConfig{FriendGroup: 1, TimeUrgent: 2})
	assert.Equal(t, 3, engine.PriorityScore(Factors{IsFriendGroup: true, HasTimeUrgentPlayers: true, SkillCompatible: true}))
}
