package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"MC_monster_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

const questColumns = "id, owner_telegram_id, type, difficulty, title, description, " +
	"target_count, current_progress, coin_reward, xp_reward, status, " +
	"expires_at, created_at, updated_at"

type dailyQuest struct {
	ID              uuid.UUID `db:"id"`
	OwnerTelegramID int64     `db:"owner_telegram_id"`
	Type            string    `db:"type"`
	Difficulty      string    `db:"difficulty"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	TargetCount     int       `db:"target_count"`
	CurrentProgress int       `db:"current_progress"`
	CoinReward      int       `db:"coin_reward"`
	XPReward        int       `db:"xp_reward"`
	Status          string    `db:"status"`
	ExpiresAt       time.Time `db:"expires_at"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (q *dailyQuest) toModel() *model.DailyQuest {
	return &model.DailyQuest{
		ID:              q.ID,
		OwnerTelegramID: q.OwnerTelegramID,
		Type:            model.QuestType(q.Type),
		Difficulty:      model.Difficulty(q.Difficulty),
		Title:           q.Title,
		Description:     q.Description,
		TargetCount:     q.TargetCount,
		CurrentProgress: q.CurrentProgress,
		CoinReward:      q.CoinReward,
		XPReward:        q.XPReward,
		Status:          model.QuestStatus(q.Status),
		ExpiresAt:       q.ExpiresAt,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// GetValidQuestSet returns the owner's quests that still belong to the
// current daily window: active, completed or claimed, with expires_at in
// the future. Expired quests and past days are never part of the set.
func (r *Repository) GetValidQuestSet(ctx context.Context, ownerID int64, now time.Time) ([]*model.DailyQuest, error) {
	query, args, err := squirrel.
		Select(questColumns).
		From("daily_quests").
		Where(squirrel.Eq{
			"owner_telegram_id": ownerID,
			"status": []string{
				string(model.QuestStatusActive),
				string(model.QuestStatusCompleted),
				string(model.QuestStatusClaimed),
			},
		}).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("created_at", "id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build quest set query: %w", err)
	}

	var dbQuests []*dailyQuest
	err = r.db.SelectContext(ctx, &dbQuests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select quest set: %w", err)
	}

	quests := make([]*model.DailyQuest, len(dbQuests))
	for i, q := range dbQuests {
		quests[i] = q.toModel()
	}

	return quests, nil
}

func (r *Repository) GetQuestByID(ctx context.Context, questID uuid.UUID, ownerID int64) (*model.DailyQuest, error) {
	query, args, err := squirrel.
		Select(questColumns).
		From("daily_quests").
		Where(squirrel.Eq{
			"id":                questID,
			"owner_telegram_id": ownerID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build quest query: %w", err)
	}

	var q dailyQuest
	err = r.db.GetContext(ctx, &q, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	return q.toModel(), nil
}

// CreateQuestBatch inserts a freshly generated batch in one transaction.
// The unique (owner_telegram_id, expires_at, slot) index serializes
// concurrent generation attempts for the same owner and daily boundary;
// the loser gets ErrBatchAlreadyExists and should reload the winner's set.
func (r *Repository) CreateQuestBatch(ctx context.Context, quests []*model.DailyQuest) error {
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		for slot, quest := range quests {
			query, args, err := squirrel.
				Insert("daily_quests").
				SetMap(map[string]interface{}{
					"id":                quest.ID,
					"owner_telegram_id": quest.OwnerTelegramID,
					"slot":              slot,
					"type":              string(quest.Type),
					"difficulty":        string(quest.Difficulty),
					"title":             quest.Title,
					"description":       quest.Description,
					"target_count":      quest.TargetCount,
					"current_progress":  quest.CurrentProgress,
					"coin_reward":       quest.CoinReward,
					"xp_reward":         quest.XPReward,
					"status":            string(quest.Status),
					"expires_at":        quest.ExpiresAt,
					"created_at":        quest.CreatedAt,
					"updated_at":        quest.UpdatedAt,
				}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build quest insert query: %w", err)
			}

			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to insert quest: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrBatchAlreadyExists
		}
		return err
	}

	return nil
}

// ApplyQuestProgress increments, clamps and possibly completes a single
// active quest in one atomic statement. The status flip to completed
// happens in the same write as the progress update, so a maxed-progress
// quest is never observable as still active.
func (r *Repository) ApplyQuestProgress(ctx context.Context, questID uuid.UUID, ownerID int64, incrementBy int, now time.Time) (*model.DailyQuest, error) {
	query, args, err := squirrel.
		Update("daily_quests").
		Set("current_progress", squirrel.Expr("LEAST(current_progress + ?, target_count)", incrementBy)).
		Set("status", squirrel.Expr(
			"CASE WHEN current_progress + ? >= target_count THEN 'completed' ELSE status END", incrementBy)).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"id":                questID,
			"owner_telegram_id": ownerID,
			"status":            string(model.QuestStatusActive),
		}).
		Where(squirrel.Gt{"expires_at": now}).
		Suffix("RETURNING " + questColumns).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build progress update query: %w", err)
	}

	var q dailyQuest
	err = r.db.GetContext(ctx, &q, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.diagnoseProgressMiss(ctx, questID, ownerID)
		}
		return nil, fmt.Errorf("failed to update quest progress: %w", err)
	}

	return q.toModel(), nil
}

// TrackQuestProgressByType applies the same clamp-and-maybe-complete update
// to every active, unexpired quest of the given type. Zero matches is not
// an error; the returned slice is empty.
func (r *Repository) TrackQuestProgressByType(ctx context.Context, ownerID int64, questType model.QuestType, incrementBy int, now time.Time) ([]*model.DailyQuest, error) {
	query, args, err := squirrel.
		Update("daily_quests").
		Set("current_progress", squirrel.Expr("LEAST(current_progress + ?, target_count)", incrementBy)).
		Set("status", squirrel.Expr(
			"CASE WHEN current_progress + ? >= target_count THEN 'completed' ELSE status END", incrementBy)).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"owner_telegram_id": ownerID,
			"type":              string(questType),
			"status":            string(model.QuestStatusActive),
		}).
		Where(squirrel.Gt{"expires_at": now}).
		Suffix("RETURNING " + questColumns).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build track query: %w", err)
	}

	var dbQuests []*dailyQuest
	err = r.db.SelectContext(ctx, &dbQuests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to track quest progress: %w", err)
	}

	quests := make([]*model.DailyQuest, len(dbQuests))
	for i, q := range dbQuests {
		quests[i] = q.toModel()
	}

	return quests, nil
}

// MarkQuestCompleted is the manual completion path: active quest whose
// progress already reached the target flips to completed.
func (r *Repository) MarkQuestCompleted(ctx context.Context, questID uuid.UUID, ownerID int64, now time.Time) error {
	query, args, err := squirrel.
		Update("daily_quests").
		Set("status", string(model.QuestStatusCompleted)).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"id":                questID,
			"owner_telegram_id": ownerID,
			"status":            string(model.QuestStatusActive),
		}).
		Where(squirrel.Expr("current_progress >= target_count")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build complete query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to complete quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return r.diagnoseCompleteMiss(ctx, questID, ownerID)
	}

	return nil
}

// MarkQuestClaimed performs the completed -> claimed transition as a
// compare-and-swap: the UPDATE is guarded on the current status, so of two
// racing claims exactly one flips the row and the other sees zero rows
// affected.
func (r *Repository) MarkQuestClaimed(ctx context.Context, questID uuid.UUID, ownerID int64, now time.Time) error {
	query, args, err := squirrel.
		Update("daily_quests").
		Set("status", string(model.QuestStatusClaimed)).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"id":                questID,
			"owner_telegram_id": ownerID,
			"status":            string(model.QuestStatusCompleted),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build claim query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to claim quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return r.diagnoseClaimMiss(ctx, questID, ownerID)
	}

	return nil
}

// ExpireOverdueQuests moves every overdue active quest to expired.
// Completed and claimed quests are left alone regardless of expires_at.
func (r *Repository) ExpireOverdueQuests(ctx context.Context, now time.Time) (int64, error) {
	return r.expireQuests(ctx, squirrel.Eq{"status": string(model.QuestStatusActive)}, now)
}

// ExpireOwnerOverdueQuests is the owner-scoped sweep run before generating
// a fresh batch.
func (r *Repository) ExpireOwnerOverdueQuests(ctx context.Context, ownerID int64, now time.Time) (int64, error) {
	return r.expireQuests(ctx, squirrel.Eq{
		"status":            string(model.QuestStatusActive),
		"owner_telegram_id": ownerID,
	}, now)
}

func (r *Repository) expireQuests(ctx context.Context, where squirrel.Eq, now time.Time) (int64, error) {
	query, args, err := squirrel.
		Update("daily_quests").
		Set("status", string(model.QuestStatusExpired)).
		Set("updated_at", now).
		Where(where).
		Where(squirrel.LtOrEq{"expires_at": now}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build expire query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire quests: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

type questStatusGroup struct {
	Status string         `db:"status"`
	IDs    pq.StringArray `db:"ids"`
}

// GetOwnerQuestSummary groups all of an owner's quests (historical ones
// included) by status.
func (r *Repository) GetOwnerQuestSummary(ctx context.Context, ownerID int64) (map[model.QuestStatus][]uuid.UUID, error) {
	query, args, err := squirrel.
		Select("status", "array_agg(id::text ORDER BY created_at) AS ids").
		From("daily_quests").
		Where(squirrel.Eq{"owner_telegram_id": ownerID}).
		GroupBy("status").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build summary query: %w", err)
	}

	var groups []questStatusGroup
	err = r.db.SelectContext(ctx, &groups, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get quest summary: %w", err)
	}

	summary := make(map[model.QuestStatus][]uuid.UUID, len(groups))
	for _, g := range groups {
		ids := make([]uuid.UUID, 0, len(g.IDs))
		for _, raw := range g.IDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse quest id %q: %w", raw, err)
			}
			ids = append(ids, id)
		}
		summary[model.QuestStatus(g.Status)] = ids
	}

	return summary, nil
}

func (r *Repository) diagnoseProgressMiss(ctx context.Context, questID uuid.UUID, ownerID int64) error {
	if _, err := r.GetQuestByID(ctx, questID, ownerID); err != nil {
		return err
	}
	// Row exists but was not eligible: wrong status, or active past its
	// boundary with the sweep not run yet.
	return ErrQuestNotActive
}

func (r *Repository) diagnoseCompleteMiss(ctx context.Context, questID uuid.UUID, ownerID int64) error {
	quest, err := r.GetQuestByID(ctx, questID, ownerID)
	if err != nil {
		return err
	}
	switch {
	case quest.Status == model.QuestStatusActive && !quest.TargetReached():
		return ErrTargetNotReached
	case quest.Status == model.QuestStatusClaimed:
		return ErrAlreadyClaimed
	default:
		return ErrQuestNotActive
	}
}

func (r *Repository) diagnoseClaimMiss(ctx context.Context, questID uuid.UUID, ownerID int64) error {
	quest, err := r.GetQuestByID(ctx, questID, ownerID)
	if err != nil {
		return err
	}
	switch quest.Status {
	case model.QuestStatusClaimed:
		return ErrAlreadyClaimed
	default:
		return ErrQuestNotCompleted
	}
}
