package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"MC_monster_miniapp/internal/model"
	"MC_monster_miniapp/internal/repository"
	"MC_monster_miniapp/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func newTestService(cfg QuestConfig, repo *mocks.MockDailyQuestRepository, rewards *mocks.MockRewardGranter) *DailyQuestService {
	s := NewDailyQuestService(cfg, repo, NewQuestCatalog(cfg), rewards, rand.New(rand.NewSource(1)))
	s.now = func() time.Time { return testNow }
	return s
}

func activeQuest(ownerID int64, questType model.QuestType, target, progress int) *model.DailyQuest {
	return &model.DailyQuest{
		ID:              uuid.New(),
		OwnerTelegramID: ownerID,
		Type:            questType,
		Difficulty:      model.DifficultyEasy,
		TargetCount:     target,
		CurrentProgress: progress,
		CoinReward:      50,
		XPReward:        10,
		Status:          model.QuestStatusActive,
		ExpiresAt:       testNow.Add(9 * time.Hour),
	}
}

func TestDailyQuestService_GetActiveQuestSet(t *testing.T) {
	ownerID := int64(123)

	t.Run("Existing valid set is returned unchanged", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})

		existing := []*model.DailyQuest{
			activeQuest(ownerID, model.QuestTypeFeedMonster, 3, 1),
			activeQuest(ownerID, model.QuestTypeEarnCoins, 50, 0),
		}
		mockRepo.On("GetValidQuestSet", mock.Anything, ownerID, testNow).
			Return(existing, nil)

		quests, err := service.GetActiveQuestSet(context.Background(), ownerID)

		assert.NoError(t, err)
		assert.Equal(t, existing, quests)
		mockRepo.AssertNotCalled(t, "CreateQuestBatch", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Empty set sweeps the owner and generates a fresh batch", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		cfg := DefaultQuestConfig()
		service := newTestService(cfg, mockRepo, &mocks.MockRewardGranter{})

		wantBoundary := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

		mockRepo.On("GetValidQuestSet", mock.Anything, ownerID, testNow).
			Return([]*model.DailyQuest{}, nil)
		mockRepo.On("ExpireOwnerOverdueQuests", mock.Anything, ownerID, testNow).
			Return(int64(1), nil)
		mockRepo.On("CreateQuestBatch", mock.Anything, mock.MatchedBy(func(batch []*model.DailyQuest) bool {
			if len(batch) != cfg.QuestsPerDay {
				return false
			}
			seen := make(map[string]struct{})
			for _, q := range batch {
				if q.OwnerTelegramID != ownerID ||
					q.Status != model.QuestStatusActive ||
					q.CurrentProgress != 0 ||
					!q.ExpiresAt.Equal(wantBoundary) {
					return false
				}
				key := string(q.Type) + "/" + string(q.Difficulty)
				if _, dup := seen[key]; dup {
					return false
				}
				seen[key] = struct{}{}
			}
			return true
		})).Return(nil)

		quests, err := service.GetActiveQuestSet(context.Background(), ownerID)

		assert.NoError(t, err)
		assert.Len(t, quests, cfg.QuestsPerDay)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Generation race loser returns the winner's batch", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})

		winnerBatch := []*model.DailyQuest{
			activeQuest(ownerID, model.QuestTypeVisitGallery, 1, 0),
		}

		mockRepo.On("GetValidQuestSet", mock.Anything, ownerID, testNow).
			Return([]*model.DailyQuest{}, nil).Once()
		mockRepo.On("ExpireOwnerOverdueQuests", mock.Anything, ownerID, testNow).
			Return(int64(0), nil)
		mockRepo.On("CreateQuestBatch", mock.Anything, mock.Anything).
			Return(repository.ErrBatchAlreadyExists)
		mockRepo.On("GetValidQuestSet", mock.Anything, ownerID, testNow).
			Return(winnerBatch, nil).Once()

		quests, err := service.GetActiveQuestSet(context.Background(), ownerID)

		assert.NoError(t, err)
		assert.Equal(t, winnerBatch, quests)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Batch size beyond the catalog is a configuration error", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		cfg := DefaultQuestConfig()
		cfg.QuestsPerDay = 100
		service := newTestService(cfg, mockRepo, &mocks.MockRewardGranter{})

		mockRepo.On("GetValidQuestSet", mock.Anything, ownerID, testNow).
			Return([]*model.DailyQuest{}, nil)
		mockRepo.On("ExpireOwnerOverdueQuests", mock.Anything, ownerID, testNow).
			Return(int64(0), nil)

		_, err := service.GetActiveQuestSet(context.Background(), ownerID)

		assert.ErrorIs(t, err, ErrGenerationConfig)
		mockRepo.AssertNotCalled(t, "CreateQuestBatch", mock.Anything, mock.Anything)
	})
}

func TestDailyQuestService_UpdateProgress(t *testing.T) {
	ownerID := int64(124)
	questID := uuid.New()

	tests := []struct {
		name          string
		incrementBy   int
		mockSetup     func(repo *mocks.MockDailyQuestRepository, events *mocks.MockQuestEventPublisher)
		expectedError error
		check         func(t *testing.T, quest *model.DailyQuest)
	}{
		{
			name:        "Progress increments below target",
			incrementBy: 1,
			mockSetup: func(repo *mocks.MockDailyQuestRepository, events *mocks.MockQuestEventPublisher) {
				updated := activeQuest(ownerID, model.QuestTypeFeedMonster, 3, 2)
				repo.On("ApplyQuestProgress", mock.Anything, questID, ownerID, 1, testNow).
					Return(updated, nil)
				events.On("PublishQuestUpdate", ownerID, updated).Return()
			},
			check: func(t *testing.T, quest *model.DailyQuest) {
				assert.Equal(t, 2, quest.CurrentProgress)
				assert.Equal(t, model.QuestStatusActive, quest.Status)
			},
		},
		{
			name:        "Reaching the target completes in the same update",
			incrementBy: 3,
			mockSetup: func(repo *mocks.MockDailyQuestRepository, events *mocks.MockQuestEventPublisher) {
				updated := activeQuest(ownerID, model.QuestTypeFeedMonster, 3, 3)
				updated.Status = model.QuestStatusCompleted
				repo.On("ApplyQuestProgress", mock.Anything, questID, ownerID, 3, testNow).
					Return(updated, nil)
				events.On("PublishQuestUpdate", ownerID, updated).Return()
			},
			check: func(t *testing.T, quest *model.DailyQuest) {
				assert.Equal(t, 3, quest.CurrentProgress)
				assert.Equal(t, model.QuestStatusCompleted, quest.Status)
			},
		},
		{
			name:        "Wrong owner or missing quest",
			incrementBy: 1,
			mockSetup: func(repo *mocks.MockDailyQuestRepository, events *mocks.MockQuestEventPublisher) {
				repo.On("ApplyQuestProgress", mock.Anything, questID, ownerID, 1, testNow).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrQuestNotFound,
		},
		{
			name:        "Quest no longer active",
			incrementBy: 1,
			mockSetup: func(repo *mocks.MockDailyQuestRepository, events *mocks.MockQuestEventPublisher) {
				repo.On("ApplyQuestProgress", mock.Anything, questID, ownerID, 1, testNow).
					Return(nil, repository.ErrQuestNotActive)
			},
			expectedError: ErrQuestNotActive,
		},
		{
			name:          "Zero increment is rejected",
			incrementBy:   0,
			mockSetup:     func(repo *mocks.MockDailyQuestRepository, events *mocks.MockQuestEventPublisher) {},
			expectedError: ErrInvalidIncrement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockDailyQuestRepository{}
			mockEvents := &mocks.MockQuestEventPublisher{}
			service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})
			service.SetEventPublisher(mockEvents)

			tt.mockSetup(mockRepo, mockEvents)

			quest, err := service.UpdateProgress(context.Background(), questID, ownerID, tt.incrementBy)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				mockEvents.AssertNotCalled(t, "PublishQuestUpdate", mock.Anything, mock.Anything)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, quest)
			if tt.check != nil {
				tt.check(t, quest)
			}
			mockRepo.AssertExpectations(t)
			mockEvents.AssertExpectations(t)
		})
	}
}

func TestDailyQuestService_TrackByType(t *testing.T) {
	ownerID := int64(125)

	t.Run("Zero matches returns an empty list", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})

		mockRepo.On("TrackQuestProgressByType", mock.Anything, ownerID, model.QuestTypeVisitGallery, 1, testNow).
			Return([]*model.DailyQuest{}, nil)

		quests, err := service.TrackByType(context.Background(), ownerID, model.QuestTypeVisitGallery, 1)

		assert.NoError(t, err)
		assert.Empty(t, quests)
	})

	t.Run("Every matching quest is updated and published", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		mockEvents := &mocks.MockQuestEventPublisher{}
		service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})
		service.SetEventPublisher(mockEvents)

		updated := []*model.DailyQuest{
			activeQuest(ownerID, model.QuestTypeFeedMonster, 3, 1),
			activeQuest(ownerID, model.QuestTypeFeedMonster, 10, 1),
		}
		mockRepo.On("TrackQuestProgressByType", mock.Anything, ownerID, model.QuestTypeFeedMonster, 1, testNow).
			Return(updated, nil)
		mockEvents.On("PublishQuestUpdate", ownerID, mock.Anything).Return().Times(2)

		quests, err := service.TrackByType(context.Background(), ownerID, model.QuestTypeFeedMonster, 1)

		assert.NoError(t, err)
		assert.Len(t, quests, 2)
		mockEvents.AssertExpectations(t)
	})

	t.Run("Unknown type is rejected", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})

		_, err := service.TrackByType(context.Background(), ownerID, model.QuestType("slay_dragon"), 1)

		assert.ErrorIs(t, err, ErrUnknownQuestType)
		mockRepo.AssertNotCalled(t, "TrackQuestProgressByType",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDailyQuestService_CompleteQuest(t *testing.T) {
	ownerID := int64(126)
	questID := uuid.New()

	tests := []struct {
		name          string
		mockSetup     func(repo *mocks.MockDailyQuestRepository)
		expectedError error
	}{
		{
			name: "Quest at target completes",
			mockSetup: func(repo *mocks.MockDailyQuestRepository) {
				repo.On("MarkQuestCompleted", mock.Anything, questID, ownerID, testNow).
					Return(nil)
				completed := activeQuest(ownerID, model.QuestTypeEarnCoins, 50, 50)
				completed.Status = model.QuestStatusCompleted
				repo.On("GetQuestByID", mock.Anything, questID, ownerID).
					Return(completed, nil)
			},
		},
		{
			name: "Target not reached",
			mockSetup: func(repo *mocks.MockDailyQuestRepository) {
				repo.On("MarkQuestCompleted", mock.Anything, questID, ownerID, testNow).
					Return(repository.ErrTargetNotReached)
			},
			expectedError: ErrTargetNotReached,
		},
		{
			name: "Already claimed",
			mockSetup: func(repo *mocks.MockDailyQuestRepository) {
				repo.On("MarkQuestCompleted", mock.Anything, questID, ownerID, testNow).
					Return(repository.ErrAlreadyClaimed)
			},
			expectedError: ErrQuestAlreadyClaimed,
		},
		{
			name: "Missing quest",
			mockSetup: func(repo *mocks.MockDailyQuestRepository) {
				repo.On("MarkQuestCompleted", mock.Anything, questID, ownerID, testNow).
					Return(repository.ErrNotFound)
			},
			expectedError: ErrQuestNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockDailyQuestRepository{}
			service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})

			tt.mockSetup(mockRepo)

			quest, err := service.CompleteQuest(context.Background(), questID, ownerID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, model.QuestStatusCompleted, quest.Status)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestDailyQuestService_ClaimReward(t *testing.T) {
	ownerID := int64(127)
	questID := uuid.New()

	completedQuest := func() *model.DailyQuest {
		q := activeQuest(ownerID, model.QuestTypeFeedMonster, 3, 3)
		q.ID = questID
		q.Status = model.QuestStatusCompleted
		q.CoinReward = 100
		q.XPReward = 20
		return q
	}

	t.Run("Completed quest pays out once and flips to claimed", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		mockRewards := &mocks.MockRewardGranter{}
		service := newTestService(DefaultQuestConfig(), mockRepo, mockRewards)

		mockRepo.On("GetQuestByID", mock.Anything, questID, ownerID).
			Return(completedQuest(), nil)
		mockRewards.On("GrantCoins", mock.Anything, ownerID, 100).Return(nil).Once()
		mockRewards.On("GrantXP", mock.Anything, ownerID, 20).Return(nil).Once()
		mockRepo.On("MarkQuestClaimed", mock.Anything, questID, ownerID, testNow).
			Return(nil)

		quest, err := service.ClaimReward(context.Background(), questID, ownerID)

		assert.NoError(t, err)
		assert.Equal(t, model.QuestStatusClaimed, quest.Status)
		mockRewards.AssertExpectations(t)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Second claim returns AlreadyClaimed and grants nothing", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		mockRewards := &mocks.MockRewardGranter{}
		service := newTestService(DefaultQuestConfig(), mockRepo, mockRewards)

		claimed := completedQuest()
		claimed.Status = model.QuestStatusClaimed
		mockRepo.On("GetQuestByID", mock.Anything, questID, ownerID).
			Return(claimed, nil)

		_, err := service.ClaimReward(context.Background(), questID, ownerID)

		assert.ErrorIs(t, err, ErrQuestAlreadyClaimed)
		mockRewards.AssertNotCalled(t, "GrantCoins", mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "MarkQuestClaimed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Active quest cannot be claimed", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		mockRewards := &mocks.MockRewardGranter{}
		service := newTestService(DefaultQuestConfig(), mockRepo, mockRewards)

		active := completedQuest()
		active.Status = model.QuestStatusActive
		active.CurrentProgress = 1
		mockRepo.On("GetQuestByID", mock.Anything, questID, ownerID).
			Return(active, nil)

		_, err := service.ClaimReward(context.Background(), questID, ownerID)

		assert.ErrorIs(t, err, ErrQuestNotCompleted)
		mockRewards.AssertNotCalled(t, "GrantCoins", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Grant failure leaves the quest completed and retryable", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		mockRewards := &mocks.MockRewardGranter{}
		service := newTestService(DefaultQuestConfig(), mockRepo, mockRewards)

		mockRepo.On("GetQuestByID", mock.Anything, questID, ownerID).
			Return(completedQuest(), nil)
		mockRewards.On("GrantCoins", mock.Anything, ownerID, 100).
			Return(assert.AnError)

		_, err := service.ClaimReward(context.Background(), questID, ownerID)

		assert.ErrorIs(t, err, ErrRewardGrantFailed)
		mockRepo.AssertNotCalled(t, "MarkQuestClaimed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Racing claim that loses the swap observes AlreadyClaimed", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		mockRewards := &mocks.MockRewardGranter{}
		service := newTestService(DefaultQuestConfig(), mockRepo, mockRewards)

		mockRepo.On("GetQuestByID", mock.Anything, questID, ownerID).
			Return(completedQuest(), nil)
		mockRewards.On("GrantCoins", mock.Anything, ownerID, 100).Return(nil)
		mockRewards.On("GrantXP", mock.Anything, ownerID, 20).Return(nil)
		mockRepo.On("MarkQuestClaimed", mock.Anything, questID, ownerID, testNow).
			Return(repository.ErrAlreadyClaimed)

		_, err := service.ClaimReward(context.Background(), questID, ownerID)

		assert.ErrorIs(t, err, ErrQuestAlreadyClaimed)
	})

	t.Run("Early claim blocked until the boundary when disabled", func(t *testing.T) {
		mockRepo := &mocks.MockDailyQuestRepository{}
		mockRewards := &mocks.MockRewardGranter{}
		cfg := DefaultQuestConfig()
		cfg.AllowEarlyClaim = false
		service := newTestService(cfg, mockRepo, mockRewards)

		mockRepo.On("GetQuestByID", mock.Anything, questID, ownerID).
			Return(completedQuest(), nil)

		_, err := service.ClaimReward(context.Background(), questID, ownerID)

		assert.ErrorIs(t, err, ErrClaimNotAvailable)
		mockRewards.AssertNotCalled(t, "GrantCoins", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDailyQuestService_ExpireOverdue(t *testing.T) {
	mockRepo := &mocks.MockDailyQuestRepository{}
	service := newTestService(DefaultQuestConfig(), mockRepo, &mocks.MockRewardGranter{})

	mockRepo.On("ExpireOverdueQuests", mock.Anything, testNow).
		Return(int64(3), nil)

	expired, err := service.ExpireOverdue(context.Background(), testNow)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), expired)
	mockRepo.AssertExpectations(t)
}

func TestNextDailyBoundary(t *testing.T) {
	tests := []struct {
		name        string
		now         time.Time
		resetHour   int
		resetMinute int
		expected    time.Time
	}{
		{
			name:      "Midnight reset resolves to tomorrow",
			now:       time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC),
			expected:  time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "Reset later today stays on today",
			now:         time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC),
			resetHour:   20,
			resetMinute: 30,
			expected:    time.Date(2025, 6, 10, 20, 30, 0, 0, time.UTC),
		},
		{
			name:      "Reset earlier today rolls over",
			now:       time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC),
			resetHour: 6,
			expected:  time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC),
		},
		{
			name:      "Exactly at the boundary rolls over",
			now:       time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC),
			resetHour: 6,
			expected:  time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDailyBoundary(tt.now, tt.resetHour, tt.resetMinute)
			assert.True(t, got.Equal(tt.expected), "got %v, want %v", got, tt.expected)
		})
	}
}
