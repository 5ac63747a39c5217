package service

import (
	"context"
	"errors"
	"fmt"

	"MC_monster_miniapp/internal/model"
	"MC_monster_miniapp/internal/repository"
)

// UserService manages accounts and doubles as the coin/xp ledger the quest
// engine pays rewards into.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) RegisterUser(ctx context.Context, user *model.User) error {
	err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

// GrantCoins credits the owner's coin balance. Part of the RewardGranter
// contract consumed by the quest claim flow.
func (s *UserService) GrantCoins(ctx context.Context, ownerID int64, amount int) error {
	err := s.repo.UpdateUserCoins(ctx, ownerID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to grant coins: %w", err)
	}
	return nil
}

func (s *UserService) GrantXP(ctx context.Context, ownerID int64, amount int) error {
	err := s.repo.UpdateUserXP(ctx, ownerID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to grant xp: %w", err)
	}
	return nil
}

func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.GetTopUsers(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	return users, nil
}
