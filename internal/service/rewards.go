package service

import (
	"math"

	"MC_monster_miniapp/internal/model"
)

// QuestConfig carries every tunable of the quest engine. It is passed
// explicitly to constructors so tests can vary it per case.
type QuestConfig struct {
	QuestsPerDay    int                `yaml:"perDay" mapstructure:"perDay"`
	ResetHour       int                `yaml:"resetHour" mapstructure:"resetHour"`
	ResetMinute     int                `yaml:"resetMinute" mapstructure:"resetMinute"`
	BaseCoinReward  int                `yaml:"baseCoinReward" mapstructure:"baseCoinReward"`
	BaseXPReward    int                `yaml:"baseXpReward" mapstructure:"baseXpReward"`
	Multipliers     map[string]float64 `yaml:"multipliers" mapstructure:"multipliers"`
	AllowEarlyClaim bool               `yaml:"allowEarlyClaim" mapstructure:"allowEarlyClaim"`
}

func DefaultQuestConfig() QuestConfig {
	return QuestConfig{
		QuestsPerDay:   5,
		ResetHour:      0,
		ResetMinute:    0,
		BaseCoinReward: 50,
		BaseXPReward:   10,
		Multipliers: map[string]float64{
			string(model.DifficultyEasy):   1,
			string(model.DifficultyMedium): 1.5,
			string(model.DifficultyHard):   2,
		},
		AllowEarlyClaim: true,
	}
}

// RewardAmount computes floor(base * multiplier) for the given difficulty.
// Unknown difficulties fall back to multiplier 1.
func RewardAmount(base int, difficulty model.Difficulty, multipliers map[string]float64) int {
	multiplier, ok := multipliers[string(difficulty)]
	if !ok {
		multiplier = 1
	}
	return int(math.Floor(float64(base) * multiplier))
}
