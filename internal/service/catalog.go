package service

import (
	"math/rand"

	"MC_monster_miniapp/internal/model"
)

type templateKey struct {
	Type       model.QuestType
	Difficulty model.Difficulty
}

type templateSpec struct {
	questType   model.QuestType
	difficulty  model.Difficulty
	title       string
	description string
	targetCount int
}

var templateSpecs = []templateSpec{
	{model.QuestTypeFeedMonster, model.DifficultyEasy, "Snack Time", "Feed your monster 3 times", 3},
	{model.QuestTypeFeedMonster, model.DifficultyMedium, "Balanced Diet", "Feed your monster 5 times", 5},
	{model.QuestTypeFeedMonster, model.DifficultyHard, "Feast Mode", "Feed your monster 10 times", 10},
	{model.QuestTypePlayWithMonster, model.DifficultyEasy, "Quick Game", "Play with your monster 2 times", 2},
	{model.QuestTypePlayWithMonster, model.DifficultyMedium, "Playtime Marathon", "Play with your monster 5 times", 5},
	{model.QuestTypeLevelUpMonster, model.DifficultyMedium, "Growth Spurt", "Level up your monster once", 1},
	{model.QuestTypeLevelUpMonster, model.DifficultyHard, "Power Leveling", "Level up your monster 2 times", 2},
	{model.QuestTypeBuyAccessory, model.DifficultyMedium, "Window Shopping", "Buy an accessory from the shop", 1},
	{model.QuestTypeBuyAccessory, model.DifficultyHard, "Shopping Spree", "Buy 3 accessories from the shop", 3},
	{model.QuestTypeEquipAccessory, model.DifficultyEasy, "Dress Up", "Equip an accessory on your monster", 1},
	{model.QuestTypeEquipAccessory, model.DifficultyMedium, "Fashion Show", "Equip 3 accessories on your monster", 3},
	{model.QuestTypeVisitGallery, model.DifficultyEasy, "Art Lover", "Visit the monster gallery", 1},
	{model.QuestTypeVisitGallery, model.DifficultyMedium, "Gallery Regular", "Visit the monster gallery 3 times", 3},
	{model.QuestTypeEarnCoins, model.DifficultyEasy, "Pocket Money", "Earn 50 coins", 50},
	{model.QuestTypeEarnCoins, model.DifficultyMedium, "Coin Collector", "Earn 150 coins", 150},
	{model.QuestTypeEarnCoins, model.DifficultyHard, "Treasure Hunter", "Earn 400 coins", 400},
}

// QuestCatalog holds the fixed template list. Rewards are stamped onto the
// templates once, at construction, from the configured bases and
// multipliers; quest instances copy them and never recompute.
type QuestCatalog struct {
	templates []model.QuestTemplate
	byKey     map[templateKey]model.QuestTemplate
}

func NewQuestCatalog(cfg QuestConfig) *QuestCatalog {
	templates := make([]model.QuestTemplate, 0, len(templateSpecs))
	byKey := make(map[templateKey]model.QuestTemplate, len(templateSpecs))

	for _, spec := range templateSpecs {
		template := model.QuestTemplate{
			Type:        spec.questType,
			Difficulty:  spec.difficulty,
			Title:       spec.title,
			Description: spec.description,
			TargetCount: spec.targetCount,
			CoinReward:  RewardAmount(cfg.BaseCoinReward, spec.difficulty, cfg.Multipliers),
			XPReward:    RewardAmount(cfg.BaseXPReward, spec.difficulty, cfg.Multipliers),
		}
		key := templateKey{Type: spec.questType, Difficulty: spec.difficulty}
		if _, exists := byKey[key]; exists {
			continue
		}
		templates = append(templates, template)
		byKey[key] = template
	}

	return &QuestCatalog{
		templates: templates,
		byKey:     byKey,
	}
}

func (c *QuestCatalog) All() []model.QuestTemplate {
	out := make([]model.QuestTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

func (c *QuestCatalog) TemplateFor(questType model.QuestType, difficulty model.Difficulty) (model.QuestTemplate, bool) {
	template, ok := c.byKey[templateKey{Type: questType, Difficulty: difficulty}]
	return template, ok
}

func (c *QuestCatalog) Size() int {
	return len(c.templates)
}

// SampleDistinct returns count templates pairwise-distinct on
// (type, difficulty), picked by shuffling the catalog and taking a prefix.
// Asking for more templates than the catalog holds is a configuration
// error, not a crash.
func (c *QuestCatalog) SampleDistinct(count int, rng *rand.Rand) ([]model.QuestTemplate, error) {
	if count > len(c.templates) {
		return nil, ErrGenerationConfig
	}

	shuffled := c.All()
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	picked := make([]model.QuestTemplate, 0, count)
	seen := make(map[templateKey]struct{}, count)
	for _, template := range shuffled {
		key := templateKey{Type: template.Type, Difficulty: template.Difficulty}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		picked = append(picked, template)
		if len(picked) == count {
			return picked, nil
		}
	}

	return nil, ErrGenerationConfig
}
