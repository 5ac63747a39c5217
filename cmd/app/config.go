package main

import (
	"fmt"
	"strings"

	"MC_monster_miniapp/internal/repository"
	"MC_monster_miniapp/internal/service"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`

	TelegramAuth TelegramAuthConfig  `yaml:"telegramAuth"`
	Quests       service.QuestConfig `yaml:"quests"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	DebugMode        bool   `yaml:"debugMode"`
	NotifyNewQuests  bool   `yaml:"notifyNewQuests"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := service.DefaultQuestConfig()
	viper.SetDefault("quests.perDay", defaults.QuestsPerDay)
	viper.SetDefault("quests.resetHour", defaults.ResetHour)
	viper.SetDefault("quests.resetMinute", defaults.ResetMinute)
	viper.SetDefault("quests.baseCoinReward", defaults.BaseCoinReward)
	viper.SetDefault("quests.baseXpReward", defaults.BaseXPReward)
	viper.SetDefault("quests.multipliers", defaults.Multipliers)
	viper.SetDefault("quests.allowEarlyClaim", defaults.AllowEarlyClaim)
	viper.SetDefault("logLevel", "info")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
