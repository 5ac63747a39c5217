package service

import (
	"fmt"

	"MC_monster_miniapp/internal/model"
	"MC_monster_miniapp/pkg/logger"
	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BatchNotifier pings the owner through the bot when a fresh daily batch
// is generated.
type BatchNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewBatchNotifier(botToken string) (*BatchNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	return &BatchNotifier{bot: bot}, nil
}

func (n *BatchNotifier) NotifyBatchGenerated(ownerID int64, quests []*model.DailyQuest) {
	msg := tgbotapi.NewMessage(ownerID,
		fmt.Sprintf("%d new daily quests are waiting for your monster!", len(quests)))

	if _, err := n.bot.Send(msg); err != nil {
		logger.Logger().Warn("failed to send quest batch notification",
			zap.Int64("telegram_id", ownerID),
			zap.Error(err))
	}
}
