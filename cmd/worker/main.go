package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/config"
	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/internal/downloader"
	"github.com/ytsm/subscription-manager-go/internal/queue"
	"github.com/ytsm/subscription-manager-go/internal/service"
	"github.com/ytsm/subscription-manager-go/internal/service/youtube"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	pool, err := db.NewPool(ctx, &db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         "disable",
		MaxConns:        int32(cfg.Database.MaxConnections),
		MinConns:        int32(cfg.Database.MinConnections),
		MaxConnLifetime: cfg.Database.MaxLifetime,
		MaxConnIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close(pool)

	settingsRepo := repository.NewUserSettingsRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	videoRepo := repository.NewVideoRepository(pool)

	queueClient, err := queue.NewClient(cfg.Redis.URL)
	if err != nil {
		logger.Log.Fatal("failed to initialize queue client", zap.Error(err))
	}
	defer func() { _ = queueClient.Close() }()

	var eventPublisher service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err := service.NewSyncEventPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Fatal("failed to initialize event publisher", zap.Error(err))
		}
		defer func() { _ = publisher.Close() }()
		eventPublisher = publisher
	}

	source, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		logger.Log.Fatal("failed to initialize YouTube API client", zap.Error(err))
	}

	synchronizer := service.NewSynchronizer(subscriptionRepo, settingsRepo, videoRepo, source, queueClient, eventPublisher)
	lifecycle := service.NewLifecycleService(videoRepo, subscriptionRepo, settingsRepo, queueClient)

	taskHandler := queue.NewTaskHandler(
		videoRepo,
		subscriptionRepo,
		channelRepo,
		settingsRepo,
		lifecycle,
		synchronizer,
		downloader.NewYtdlpDownloader(),
	)

	server, err := queue.NewServer(cfg.Redis.URL, cfg.Sync.Concurrency, taskHandler, queueClient)
	if err != nil {
		logger.Log.Fatal("failed to initialize queue server", zap.Error(err))
	}

	scheduler, err := queue.NewPeriodicScheduler(cfg.Redis.URL, cfg.Sync.Schedule)
	if err != nil {
		logger.Log.Fatal("failed to initialize periodic scheduler", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		logger.Log.Fatal("failed to start queue server", zap.Error(err))
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Log.Fatal("periodic scheduler error", zap.Error(err))
		}
	}()

	logger.Log.Info("worker started",
		zap.Int("concurrency", cfg.Sync.Concurrency),
		zap.String("schedule", cfg.Sync.Schedule),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down worker")
	scheduler.Shutdown()
	server.Stop()
	logger.Log.Info("worker stopped")
}
