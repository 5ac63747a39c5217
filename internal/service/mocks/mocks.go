package mocks

import (
	"context"
	"time"

	"MC_monster_miniapp/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockDailyQuestRepository struct {
	mock.Mock
}

func (m *MockDailyQuestRepository) GetValidQuestSet(ctx context.Context, ownerID int64, now time.Time) ([]*model.DailyQuest, error) {
	args := m.Called(ctx, ownerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DailyQuest), args.Error(1)
}

func (m *MockDailyQuestRepository) GetQuestByID(ctx context.Context, questID uuid.UUID, ownerID int64) (*model.DailyQuest, error) {
	args := m.Called(ctx, questID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyQuest), args.Error(1)
}

func (m *MockDailyQuestRepository) CreateQuestBatch(ctx context.Context, quests []*model.DailyQuest) error {
	args := m.Called(ctx, quests)
	return args.Error(0)
}

func (m *MockDailyQuestRepository) ApplyQuestProgress(ctx context.Context, questID uuid.UUID, ownerID int64, incrementBy int, now time.Time) (*model.DailyQuest, error) {
	args := m.Called(ctx, questID, ownerID, incrementBy, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyQuest), args.Error(1)
}

func (m *MockDailyQuestRepository) TrackQuestProgressByType(ctx context.Context, ownerID int64, questType model.QuestType, incrementBy int, now time.Time) ([]*model.DailyQuest, error) {
	args := m.Called(ctx, ownerID, questType, incrementBy, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DailyQuest), args.Error(1)
}

func (m *MockDailyQuestRepository) MarkQuestCompleted(ctx context.Context, questID uuid.UUID, ownerID int64, now time.Time) error {
	args := m.Called(ctx, questID, ownerID, now)
	return args.Error(0)
}

func (m *MockDailyQuestRepository) MarkQuestClaimed(ctx context.Context, questID uuid.UUID, ownerID int64, now time.Time) error {
	args := m.Called(ctx, questID, ownerID, now)
	return args.Error(0)
}

func (m *MockDailyQuestRepository) ExpireOverdueQuests(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDailyQuestRepository) ExpireOwnerOverdueQuests(ctx context.Context, ownerID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, ownerID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDailyQuestRepository) GetOwnerQuestSummary(ctx context.Context, ownerID int64) (map[model.QuestStatus][]uuid.UUID, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.QuestStatus][]uuid.UUID), args.Error(1)
}

type MockRewardGranter struct {
	mock.Mock
}

func (m *MockRewardGranter) GrantCoins(ctx context.Context, ownerID int64, amount int) error {
	args := m.Called(ctx, ownerID, amount)
	return args.Error(0)
}

func (m *MockRewardGranter) GrantXP(ctx context.Context, ownerID int64, amount int) error {
	args := m.Called(ctx, ownerID, amount)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUserCoins(ctx context.Context, telegramID int64, delta int) error {
	args := m.Called(ctx, telegramID, delta)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateUserXP(ctx context.Context, telegramID int64, delta int) error {
	args := m.Called(ctx, telegramID, delta)
	return args.Error(0)
}

func (m *MockUserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

type MockQuestEventPublisher struct {
	mock.Mock
}

func (m *MockQuestEventPublisher) PublishQuestUpdate(ownerID int64, quest *model.DailyQuest) {
	m.Called(ownerID, quest)
}
