package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"MC_monster_miniapp/internal/middleware"
	"MC_monster_miniapp/internal/model"
	"MC_monster_miniapp/internal/service"
	"MC_monster_miniapp/pkg/auth"
	"MC_monster_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type dailyQuestRoutes struct {
	ds  service.DailyQuestServiceI
	a   *auth.TelegramAuth
	hub *QuestEventHub
}

func NewDailyQuestRoutes(handler *gin.RouterGroup, ds service.DailyQuestServiceI, a *auth.TelegramAuth, authz *middleware.Authorization, hub *QuestEventHub) {
	r := &dailyQuestRoutes{ds: ds, a: a, hub: hub}
	h := handler.Group("/dailyquests")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/:telegram_id", r.GetActiveQuestSet)
		h.GET("/:telegram_id/summary", r.GetQuestSummary)
		h.GET("/:telegram_id/events", r.QuestEvents)
		h.POST("/:telegram_id/track", r.TrackAction)
		h.POST("/:telegram_id/quests/:quest_id/progress", r.UpdateProgress)
		h.POST("/:telegram_id/quests/:quest_id/complete", r.CompleteQuest)
		h.POST("/:telegram_id/quests/:quest_id/claim", r.ClaimReward)
	}

	admin := handler.Group("/admin/dailyquests")
	admin.Use(a.TelegramAuthMiddleware(), authz.AdminOnly())
	{
		admin.POST("/expire", r.ExpireOverdue)
	}
}

type QuestResponse struct {
	ID              uuid.UUID `json:"id"`
	Type            string    `json:"type"`
	Difficulty      string    `json:"difficulty"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	TargetCount     int       `json:"target_count"`
	CurrentProgress int       `json:"current_progress"`
	CoinReward      int       `json:"coin_reward"`
	XPReward        int       `json:"xp_reward"`
	Status          string    `json:"status"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func toQuestResponse(q *model.DailyQuest) QuestResponse {
	return QuestResponse{
		ID:              q.ID,
		Type:            string(q.Type),
		Difficulty:      string(q.Difficulty),
		Title:           q.Title,
		Description:     q.Description,
		TargetCount:     q.TargetCount,
		CurrentProgress: q.CurrentProgress,
		CoinReward:      q.CoinReward,
		XPReward:        q.XPReward,
		Status:          string(q.Status),
		ExpiresAt:       q.ExpiresAt,
	}
}

func toQuestResponses(quests []*model.DailyQuest) []QuestResponse {
	out := make([]QuestResponse, len(quests))
	for i, q := range quests {
		out[i] = toQuestResponse(q)
	}
	return out
}

func parseOwnerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		logger.Logger().Error("failed to parse telegram_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return 0, false
	}
	return id, true
}

func parseQuestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		logger.Logger().Error("failed to parse quest_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return uuid.Nil, false
	}
	return id, true
}

func (r *dailyQuestRoutes) GetActiveQuestSet(c *gin.Context) {
	log := logger.Logger()

	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}

	quests, err := r.ds.GetActiveQuestSet(c.Request.Context(), ownerID)
	if err != nil {
		log.Error("failed to get active quest set", zap.Error(err))
		if errors.Is(err, service.ErrGenerationConfig) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "quest generation is misconfigured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get daily quests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"quests": toQuestResponses(quests)})
}

type TrackActionRequest struct {
	Action      string `json:"action" binding:"required"`
	IncrementBy int    `json:"increment_by"`
}

func (r *dailyQuestRoutes) TrackAction(c *gin.Context) {
	log := logger.Logger()

	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}

	var req TrackActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.IncrementBy == 0 {
		req.IncrementBy = 1
	}

	quests, err := r.ds.TrackByType(c.Request.Context(), ownerID, model.QuestType(req.Action), req.IncrementBy)
	if err != nil {
		log.Error("failed to track action", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrUnknownQuestType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		case errors.Is(err, service.ErrInvalidIncrement):
			c.JSON(http.StatusBadRequest, gin.H{"error": "increment must be positive"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to track action"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": toQuestResponses(quests)})
}

type UpdateProgressRequest struct {
	IncrementBy int `json:"increment_by"`
}

func (r *dailyQuestRoutes) UpdateProgress(c *gin.Context) {
	log := logger.Logger()

	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	// Body is optional; a bare POST increments by one.
	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.IncrementBy = 1
	}
	if req.IncrementBy == 0 {
		req.IncrementBy = 1
	}

	quest, err := r.ds.UpdateProgress(c.Request.Context(), questID, ownerID, req.IncrementBy)
	if err != nil {
		log.Error("failed to update quest progress", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrQuestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		case errors.Is(err, service.ErrQuestNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": "quest is not active"})
		case errors.Is(err, service.ErrInvalidIncrement):
			c.JSON(http.StatusBadRequest, gin.H{"error": "increment must be positive"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update quest progress"})
		}
		return
	}

	c.JSON(http.StatusOK, toQuestResponse(quest))
}

func (r *dailyQuestRoutes) CompleteQuest(c *gin.Context) {
	log := logger.Logger()

	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	quest, err := r.ds.CompleteQuest(c.Request.Context(), questID, ownerID)
	if err != nil {
		log.Error("failed to complete quest", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrQuestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		case errors.Is(err, service.ErrTargetNotReached):
			c.JSON(http.StatusConflict, gin.H{"error": "quest target not reached"})
		case errors.Is(err, service.ErrQuestAlreadyClaimed):
			c.JSON(http.StatusConflict, gin.H{"error": "quest already claimed"})
		case errors.Is(err, service.ErrQuestNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": "quest is not active"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete quest"})
		}
		return
	}

	c.JSON(http.StatusOK, toQuestResponse(quest))
}

func (r *dailyQuestRoutes) ClaimReward(c *gin.Context) {
	log := logger.Logger()

	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	quest, err := r.ds.ClaimReward(c.Request.Context(), questID, ownerID)
	if err != nil {
		log.Error("failed to claim quest reward", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrQuestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		case errors.Is(err, service.ErrQuestAlreadyClaimed):
			c.JSON(http.StatusConflict, gin.H{"error": "quest already claimed"})
		case errors.Is(err, service.ErrQuestNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "quest is not completed"})
		case errors.Is(err, service.ErrClaimNotAvailable):
			c.JSON(http.StatusForbidden, gin.H{"error": "claim is not available until the daily reset"})
		case errors.Is(err, service.ErrRewardGrantFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reward grant failed, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim quest reward"})
		}
		return
	}

	c.JSON(http.StatusOK, toQuestResponse(quest))
}

func (r *dailyQuestRoutes) GetQuestSummary(c *gin.Context) {
	log := logger.Logger()

	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}

	summary, err := r.ds.GetQuestSummary(c.Request.Context(), ownerID)
	if err != nil {
		log.Error("failed to get quest summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quest summary"})
		return
	}

	response := make(map[string][]uuid.UUID, len(summary))
	for status, ids := range summary {
		response[string(status)] = ids
	}

	c.JSON(http.StatusOK, gin.H{"summary": response})
}

func (r *dailyQuestRoutes) QuestEvents(c *gin.Context) {
	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}

	r.hub.Serve(c, ownerID)
}

func (r *dailyQuestRoutes) ExpireOverdue(c *gin.Context) {
	log := logger.Logger()

	expired, err := r.ds.ExpireOverdue(c.Request.Context(), time.Now())
	if err != nil {
		log.Error("failed to run expiration sweep", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run expiration sweep"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
