package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"MC_monster_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
)

type user struct {
	TelegramID       int64     `db:"telegram_id"`
	Handle           string    `db:"handle"`
	Username         string    `db:"username"`
	Coins            int       `db:"coins"`
	XP               int       `db:"xp"`
	IsAdmin          bool      `db:"is_admin"`
	RegistrationDate time.Time `db:"registration_date"`
	AuthDate         time.Time `db:"last_auth_date"`
}

func (u *user) toModel() *model.User {
	return &model.User{
		TelegramID:       u.TelegramID,
		Handle:           u.Handle,
		Username:         u.Username,
		Coins:            u.Coins,
		XP:               u.XP,
		IsAdmin:          u.IsAdmin,
		RegistrationDate: u.RegistrationDate,
		AuthDate:         u.AuthDate,
	}
}

func (r *Repository) CreateUser(ctx context.Context, u *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"telegram_id":       u.TelegramID,
			"handle":            u.Handle,
			"username":          u.Username,
			"coins":             u.Coins,
			"xp":                u.XP,
			"is_admin":          u.IsAdmin,
			"registration_date": u.RegistrationDate,
			"last_auth_date":    u.AuthDate,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query, args, err := squirrel.
		Select("telegram_id", "handle", "username", "coins", "xp", "is_admin",
			"registration_date", "last_auth_date").
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	var u user
	err = r.db.GetContext(ctx, &u, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u.toModel(), nil
}

// UpdateUserCoins credits (or debits) the user's coin balance atomically.
func (r *Repository) UpdateUserCoins(ctx context.Context, telegramID int64, delta int) error {
	return r.updateUserBalance(ctx, telegramID, "coins", delta)
}

// UpdateUserXP credits the user's experience total atomically.
func (r *Repository) UpdateUserXP(ctx context.Context, telegramID int64, delta int) error {
	return r.updateUserBalance(ctx, telegramID, "xp", delta)
}

func (r *Repository) updateUserBalance(ctx context.Context, telegramID int64, column string, delta int) error {
	query, args, err := squirrel.
		Update("users").
		Set(column, squirrel.Expr(column+" + ?", delta)).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s update query: %w", column, err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", column, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("telegram_id", "handle", "username", "coins", "xp", "is_admin",
			"registration_date", "last_auth_date").
		From("users").
		OrderBy("coins DESC", "xp DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard query: %w", err)
	}

	var dbUsers []*user
	err = r.db.SelectContext(ctx, &dbUsers, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	users := make([]*model.User, len(dbUsers))
	for i, u := range dbUsers {
		users[i] = u.toModel()
	}

	return users, nil
}
