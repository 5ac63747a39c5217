package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestType names the gameplay action a daily quest counts.
type QuestType string

const (
	QuestTypeFeedMonster     QuestType = "feed_monster"
	QuestTypePlayWithMonster QuestType = "play_with_monster"
	QuestTypeLevelUpMonster  QuestType = "level_up_monster"
	QuestTypeBuyAccessory    QuestType = "buy_accessory"
	QuestTypeEquipAccessory  QuestType = "equip_accessory"
	QuestTypeVisitGallery    QuestType = "visit_gallery"
	QuestTypeEarnCoins       QuestType = "earn_coins"
)

func (t QuestType) IsValid() bool {
	switch t {
	case QuestTypeFeedMonster, QuestTypePlayWithMonster, QuestTypeLevelUpMonster,
		QuestTypeBuyAccessory, QuestTypeEquipAccessory, QuestTypeVisitGallery,
		QuestTypeEarnCoins:
		return true
	default:
		return false
	}
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// QuestStatus is the lifecycle state of a daily quest instance.
// Transitions: active -> completed -> claimed, or active -> expired.
// claimed and expired are terminal.
type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusClaimed   QuestStatus = "claimed"
	QuestStatusExpired   QuestStatus = "expired"
)

func (s QuestStatus) IsValid() bool {
	switch s {
	case QuestStatusActive, QuestStatusCompleted, QuestStatusClaimed, QuestStatusExpired:
		return true
	default:
		return false
	}
}

func (s QuestStatus) IsTerminal() bool {
	return s == QuestStatusClaimed || s == QuestStatusExpired
}

// QuestTemplate is an immutable catalog entry a daily quest is stamped from.
// Rewards are derived from the reward calculator at catalog construction,
// never authored by hand.
type QuestTemplate struct {
	Type        QuestType
	Difficulty  Difficulty
	Title       string
	Description string
	TargetCount int
	CoinReward  int
	XPReward    int
}

// DailyQuest is a per-user quest instance. Rewards are fixed at creation;
// ExpiresAt is the daily boundary the batch was generated for and never
// changes afterwards.
type DailyQuest struct {
	ID              uuid.UUID
	OwnerTelegramID int64
	Type            QuestType
	Difficulty      Difficulty
	Title           string
	Description     string
	TargetCount     int
	CurrentProgress int
	CoinReward      int
	XPReward        int
	Status          QuestStatus
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TargetReached reports whether progress has met the quest target.
func (q *DailyQuest) TargetReached() bool {
	return q.CurrentProgress >= q.TargetCount
}

// Claimable reports whether the reward can still be collected.
func (q *DailyQuest) Claimable() bool {
	return q.Status == QuestStatusCompleted
}
