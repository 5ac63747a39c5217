package service

import (
	"testing"

	"MC_monster_miniapp/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestRewardAmount(t *testing.T) {
	multipliers := DefaultQuestConfig().Multipliers

	tests := []struct {
		name       string
		base       int
		difficulty model.Difficulty
		expected   int
	}{
		{"Easy coins", 50, model.DifficultyEasy, 50},
		{"Medium coins", 50, model.DifficultyMedium, 75},
		{"Hard coins", 50, model.DifficultyHard, 100},
		{"Easy xp", 10, model.DifficultyEasy, 10},
		{"Medium xp", 10, model.DifficultyMedium, 15},
		{"Hard xp", 10, model.DifficultyHard, 20},
		{"Fractional result is floored", 3, model.DifficultyMedium, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RewardAmount(tt.base, tt.difficulty, multipliers))
		})
	}
}

func TestRewardAmount_UnknownDifficulty(t *testing.T) {
	assert.Equal(t, 50, RewardAmount(50, model.Difficulty("nightmare"), DefaultQuestConfig().Multipliers))
}
