package main

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"MC_monster_miniapp/internal/api"
	"MC_monster_miniapp/internal/middleware"
	"MC_monster_miniapp/internal/repository"
	"MC_monster_miniapp/internal/service"
	"MC_monster_miniapp/pkg/auth"
	"MC_monster_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	userService := service.NewUserService(repo)

	catalog := service.NewQuestCatalog(cfg.Quests)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	questService := service.NewDailyQuestService(cfg.Quests, repo, catalog, userService, rng)

	hub := api.NewQuestEventHub()
	questService.SetEventPublisher(hub)

	if cfg.TelegramAuth.NotifyNewQuests {
		notifier, err := service.NewBatchNotifier(cfg.TelegramAuth.TelegramBotToken)
		if err != nil {
			zapLogger.Warn("Failed to initialize quest notifier", zap.Error(err))
		} else {
			questService.SetNotifier(notifier)
		}
	}

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	authz := middleware.NewAuthorization(userService)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, userService, telegramAuth)
	api.NewDailyQuestRoutes(a, questService, telegramAuth, authz, hub)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
