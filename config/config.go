package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	BackendBaseURL  string        `mapstructure:"BACKEND_BASE_URL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	WebPort         int           `mapstructure:"WEB_PORT"`
	CachePath       string        `mapstructure:"CACHE_PATH"`
	CacheHotEntries int           `mapstructure:"CACHE_HOT_ENTRIES"`
	StatePath       string        `mapstructure:"STATE_PATH"`
	HistoryWindow   int           `mapstructure:"HISTORY_WINDOW"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:8090")
	viper.SetDefault("REQUEST_TIMEOUT", 60)
	viper.SetDefault("WEB_PORT", 3000)
	viper.SetDefault("CACHE_PATH", "datachat_cache.db")
	viper.SetDefault("CACHE_HOT_ENTRIES", 256)
	viper.SetDefault("STATE_PATH", "datachat_state.yaml")
	viper.SetDefault("HISTORY_WINDOW", 10)
	viper.SetDefault("LOG_LEVEL", "info")

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			// Fallback if logger not available (should not happen in practice)
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	if config.HistoryWindow <= 0 {
		config.HistoryWindow = 10
	}
	if config.CacheHotEntries <= 0 {
		config.CacheHotEntries = 256
	}

	// Convert seconds to proper time.Duration
	config.RequestTimeout = config.RequestTimeout * time.Second

	return &config
}
