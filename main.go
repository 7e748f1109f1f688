package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"datachat/backend"
	"datachat/cache"
	"datachat/chat"
	"datachat/config"
	"datachat/identity"
	"datachat/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	ids := identity.NewStore(cfg.StatePath, logger)

	store, err := cache.NewStore(cfg.CachePath, cfg.CacheHotEntries, logger)
	if err != nil {
		logger.Fatal("Failed to open result cache", zap.Error(err))
	}
	defer store.Close()

	client := backend.NewClient(cfg.BackendBaseURL, cfg.RequestTimeout, logger)
	synchronizer := chat.NewSynchronizer(client, store, logger)
	controller := chat.NewController(client, synchronizer, store, ids, cfg.HistoryWindow, logger)

	// Resume the persisted session reference, if any
	if err := controller.Reload(ctx); err != nil {
		logger.Warn("Could not resume previous session", zap.Error(err))
	}

	webServer := web.NewServer(controller, logger, cfg)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting conversational analytics front end", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
