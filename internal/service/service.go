package service

import (
	"context"
	"errors"
	"time"

	"MC_monster_miniapp/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")

	ErrQuestNotFound       = errors.New("quest not found")
	ErrQuestNotActive      = errors.New("quest is not active")
	ErrQuestNotCompleted   = errors.New("quest is not completed")
	ErrTargetNotReached    = errors.New("quest target not reached")
	ErrQuestAlreadyClaimed = errors.New("quest reward already claimed")
	ErrClaimNotAvailable   = errors.New("claim is not available until the daily reset")
	ErrUnknownQuestType    = errors.New("unknown quest type")
	ErrInvalidIncrement    = errors.New("increment must be positive")

	ErrGenerationConfig  = errors.New("quest catalog is smaller than the configured batch size")
	ErrRewardGrantFailed = errors.New("failed to grant quest reward")
)

type Service struct {
	*UserService
	*DailyQuestService
}

func NewService(userService *UserService, dailyQuestService *DailyQuestService) *Service {
	return &Service{
		UserService:       userService,
		DailyQuestService: dailyQuestService,
	}
}

type UserServiceI interface {
	RegisterUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetLeaderboard(ctx context.Context) ([]*model.User, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateUserCoins(ctx context.Context, telegramID int64, delta int) error
	UpdateUserXP(ctx context.Context, telegramID int64, delta int) error
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
}

type DailyQuestServiceI interface {
	GetActiveQuestSet(ctx context.Context, ownerID int64) ([]*model.DailyQuest, error)
	UpdateProgress(ctx context.Context, questID uuid.UUID, ownerID int64, incrementBy int) (*model.DailyQuest, error)
	TrackByType(ctx context.Context, ownerID int64, questType model.QuestType, incrementBy int) ([]*model.DailyQuest, error)
	CompleteQuest(ctx context.Context, questID uuid.UUID, ownerID int64) (*model.DailyQuest, error)
	ClaimReward(ctx context.Context, questID uuid.UUID, ownerID int64) (*model.DailyQuest, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	GetQuestSummary(ctx context.Context, ownerID int64) (map[model.QuestStatus][]uuid.UUID, error)
}

type DailyQuestRepository interface {
	GetValidQuestSet(ctx context.Context, ownerID int64, now time.Time) ([]*model.DailyQuest, error)
	GetQuestByID(ctx context.Context, questID uuid.UUID, ownerID int64) (*model.DailyQuest, error)
	CreateQuestBatch(ctx context.Context, quests []*model.DailyQuest) error
	ApplyQuestProgress(ctx context.Context, questID uuid.UUID, ownerID int64, incrementBy int, now time.Time) (*model.DailyQuest, error)
	TrackQuestProgressByType(ctx context.Context, ownerID int64, questType model.QuestType, incrementBy int, now time.Time) ([]*model.DailyQuest, error)
	MarkQuestCompleted(ctx context.Context, questID uuid.UUID, ownerID int64, now time.Time) error
	MarkQuestClaimed(ctx context.Context, questID uuid.UUID, ownerID int64, now time.Time) error
	ExpireOverdueQuests(ctx context.Context, now time.Time) (int64, error)
	ExpireOwnerOverdueQuests(ctx context.Context, ownerID int64, now time.Time) (int64, error)
	GetOwnerQuestSummary(ctx context.Context, ownerID int64) (map[model.QuestStatus][]uuid.UUID, error)
}

// RewardGranter is the external ledger the claim flow pays out through.
// GrantCoins must succeed before a quest may transition to claimed.
type RewardGranter interface {
	GrantCoins(ctx context.Context, ownerID int64, amount int) error
	GrantXP(ctx context.Context, ownerID int64, amount int) error
}

// QuestEventPublisher pushes quest mutations to connected clients.
// Implementations must not block the request path.
type QuestEventPublisher interface {
	PublishQuestUpdate(ownerID int64, quest *model.DailyQuest)
}

// QuestNotifier announces a freshly generated batch to the owner.
// Best effort only; failures are logged, never propagated.
type QuestNotifier interface {
	NotifyBatchGenerated(ownerID int64, quests []*model.DailyQuest)
}
