package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"MC_monster_miniapp/internal/model"
	"MC_monster_miniapp/internal/repository"

	"github.com/google/uuid"
)

// DailyQuestService owns the daily quest lifecycle: generation, progress
// tracking, completion, reward claim and the lazy expiration sweep.
type DailyQuestService struct {
	cfg     QuestConfig
	repo    DailyQuestRepository
	catalog *QuestCatalog
	rewards RewardGranter

	mu  sync.Mutex
	rng *rand.Rand

	events   QuestEventPublisher
	notifier QuestNotifier

	now func() time.Time
}

func NewDailyQuestService(cfg QuestConfig, repo DailyQuestRepository, catalog *QuestCatalog, rewards RewardGranter, rng *rand.Rand) *DailyQuestService {
	return &DailyQuestService{
		cfg:     cfg,
		repo:    repo,
		catalog: catalog,
		rewards: rewards,
		rng:     rng,
		now:     time.Now,
	}
}

func (s *DailyQuestService) SetEventPublisher(events QuestEventPublisher) {
	s.events = events
}

func (s *DailyQuestService) SetNotifier(notifier QuestNotifier) {
	s.notifier = notifier
}

// NextDailyBoundary returns the next instant at the configured reset time.
// If today's reset has already passed, it resolves to tomorrow's.
func NextDailyBoundary(now time.Time, resetHour, resetMinute int) time.Time {
	boundary := time.Date(now.Year(), now.Month(), now.Day(), resetHour, resetMinute, 0, 0, now.Location())
	if !boundary.After(now) {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary
}

// GetActiveQuestSet returns the owner's current quest set, generating a
// fresh batch when none is valid. Generation first sweeps the owner's
// lingering overdue quests, then samples QuestsPerDay pairwise-distinct
// templates. A concurrent generation race is resolved by the batch unique
// index: the loser reloads and returns the winner's batch.
func (s *DailyQuestService) GetActiveQuestSet(ctx context.Context, ownerID int64) ([]*model.DailyQuest, error) {
	now := s.now()

	quests, err := s.repo.GetValidQuestSet(ctx, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get quest set: %w", err)
	}
	if len(quests) > 0 {
		return quests, nil
	}

	if _, err := s.repo.ExpireOwnerOverdueQuests(ctx, ownerID, now); err != nil {
		return nil, fmt.Errorf("failed to expire overdue quests: %w", err)
	}

	templates, err := s.sampleTemplates()
	if err != nil {
		return nil, err
	}

	expiresAt := NextDailyBoundary(now, s.cfg.ResetHour, s.cfg.ResetMinute)
	batch := make([]*model.DailyQuest, len(templates))
	for i, template := range templates {
		batch[i] = &model.DailyQuest{
			ID:              uuid.New(),
			OwnerTelegramID: ownerID,
			Type:            template.Type,
			Difficulty:      template.Difficulty,
			Title:           template.Title,
			Description:     template.Description,
			TargetCount:     template.TargetCount,
			CurrentProgress: 0,
			CoinReward:      template.CoinReward,
			XPReward:        template.XPReward,
			Status:          model.QuestStatusActive,
			ExpiresAt:       expiresAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	err = s.repo.CreateQuestBatch(ctx, batch)
	if err != nil {
		if errors.Is(err, repository.ErrBatchAlreadyExists) {
			return s.repo.GetValidQuestSet(ctx, ownerID, now)
		}
		return nil, fmt.Errorf("failed to create quest batch: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyBatchGenerated(ownerID, batch)
	}

	return batch, nil
}

func (s *DailyQuestService) sampleTemplates() ([]model.QuestTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.SampleDistinct(s.cfg.QuestsPerDay, s.rng)
}

// UpdateProgress increments a single active quest, clamped to the target.
// Reaching the target completes the quest in the same write.
func (s *DailyQuestService) UpdateProgress(ctx context.Context, questID uuid.UUID, ownerID int64, incrementBy int) (*model.DailyQuest, error) {
	if incrementBy < 1 {
		return nil, ErrInvalidIncrement
	}

	quest, err := s.repo.ApplyQuestProgress(ctx, questID, ownerID, incrementBy, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrQuestNotFound
		case errors.Is(err, repository.ErrQuestNotActive):
			return nil, ErrQuestNotActive
		default:
			return nil, fmt.Errorf("failed to update quest progress: %w", err)
		}
	}

	s.publish(ownerID, quest)

	return quest, nil
}

// TrackByType applies one gameplay action to every matching active quest.
// Zero matches returns an empty list, not an error.
func (s *DailyQuestService) TrackByType(ctx context.Context, ownerID int64, questType model.QuestType, incrementBy int) ([]*model.DailyQuest, error) {
	if !questType.IsValid() {
		return nil, ErrUnknownQuestType
	}
	if incrementBy < 1 {
		return nil, ErrInvalidIncrement
	}

	quests, err := s.repo.TrackQuestProgressByType(ctx, ownerID, questType, incrementBy, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to track quest progress: %w", err)
	}

	for _, quest := range quests {
		s.publish(ownerID, quest)
	}

	return quests, nil
}

// CompleteQuest is the manual completion path, distinct from the automatic
// completion inside progress updates.
func (s *DailyQuestService) CompleteQuest(ctx context.Context, questID uuid.UUID, ownerID int64) (*model.DailyQuest, error) {
	err := s.repo.MarkQuestCompleted(ctx, questID, ownerID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrQuestNotFound
		case errors.Is(err, repository.ErrTargetNotReached):
			return nil, ErrTargetNotReached
		case errors.Is(err, repository.ErrAlreadyClaimed):
			return nil, ErrQuestAlreadyClaimed
		case errors.Is(err, repository.ErrQuestNotActive):
			return nil, ErrQuestNotActive
		default:
			return nil, fmt.Errorf("failed to complete quest: %w", err)
		}
	}

	quest, err := s.repo.GetQuestByID(ctx, questID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quest: %w", err)
	}

	s.publish(ownerID, quest)

	return quest, nil
}

// ClaimReward pays out a completed quest exactly once. The grant call runs
// first; only after it succeeds does the guarded completed -> claimed
// transition commit, so a grant failure leaves the quest completed and
// retryable, and of two racing claims only one flips the status.
func (s *DailyQuestService) ClaimReward(ctx context.Context, questID uuid.UUID, ownerID int64) (*model.DailyQuest, error) {
	now := s.now()

	quest, err := s.repo.GetQuestByID(ctx, questID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	switch quest.Status {
	case model.QuestStatusCompleted:
	case model.QuestStatusClaimed:
		return nil, ErrQuestAlreadyClaimed
	default:
		return nil, ErrQuestNotCompleted
	}

	if !s.cfg.AllowEarlyClaim && now.Before(quest.ExpiresAt) {
		return nil, ErrClaimNotAvailable
	}

	if err := s.rewards.GrantCoins(ctx, ownerID, quest.CoinReward); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRewardGrantFailed, err)
	}
	if quest.XPReward > 0 {
		if err := s.rewards.GrantXP(ctx, ownerID, quest.XPReward); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRewardGrantFailed, err)
		}
	}

	err = s.repo.MarkQuestClaimed(ctx, questID, ownerID, now)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyClaimed):
			return nil, ErrQuestAlreadyClaimed
		case errors.Is(err, repository.ErrQuestNotCompleted):
			return nil, ErrQuestNotCompleted
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrQuestNotFound
		default:
			return nil, fmt.Errorf("failed to claim quest: %w", err)
		}
	}

	quest.Status = model.QuestStatusClaimed
	quest.UpdatedAt = now

	s.publish(ownerID, quest)

	return quest, nil
}

// ExpireOverdue bulk-transitions overdue active quests to expired. It only
// ever moves active quests, so it is idempotent and safe to run while
// progress updates and claims are in flight.
func (s *DailyQuestService) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = s.now()
	}

	expired, err := s.repo.ExpireOverdueQuests(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue quests: %w", err)
	}

	return expired, nil
}

func (s *DailyQuestService) GetQuestSummary(ctx context.Context, ownerID int64) (map[model.QuestStatus][]uuid.UUID, error) {
	summary, err := s.repo.GetOwnerQuestSummary(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quest summary: %w", err)
	}
	return summary, nil
}

func (s *DailyQuestService) publish(ownerID int64, quest *model.DailyQuest) {
	if s.events != nil {
		s.events.PublishQuestUpdate(ownerID, quest)
	}
}
