package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/config"
	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/internal/handler"
	"github.com/ytsm/subscription-manager-go/internal/middleware"
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

	logger.Log.Info("database connection established",
		zap.Int32("max_conns", pool.Config().MaxConns),
	)

	userRepo := repository.NewUserRepository(pool)
	settingsRepo := repository.NewUserSettingsRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	videoRepo := repository.NewVideoRepository(pool)

	queueClient, err := queue.NewClient(cfg.Redis.URL)
	if err != nil {
		logger.Log.Fatal("failed to initialize queue client", zap.Error(err))
	}
	defer func() { _ = queueClient.Close() }()

	var publisher *service.SyncEventPublisher
	var eventPublisher service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err = service.NewSyncEventPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Fatal("failed to initialize event publisher", zap.Error(err))
		}
		defer func() { _ = publisher.Close() }()
		eventPublisher = publisher
		logger.Log.Info("sync event publishing enabled",
			zap.String("exchange", cfg.RabbitMQ.Exchange),
		)
	}

	source, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		logger.Log.Fatal("failed to initialize YouTube API client", zap.Error(err))
	}

	resolver := service.NewSubscriptionResolver(channelRepo, subscriptionRepo, source)
	synchronizer := service.NewSynchronizer(subscriptionRepo, settingsRepo, videoRepo, source, queueClient, eventPublisher)
	lifecycle := service.NewLifecycleService(videoRepo, subscriptionRepo, settingsRepo, queueClient)
	hierarchy := service.NewHierarchyService(folderRepo, subscriptionRepo)

	auth := middleware.NewAPIKeyAuth(userRepo)
	router := handler.NewRouter(auth, handler.Handlers{
		Health:        handler.NewHealthHandler(pool, publisher),
		Subscriptions: handler.NewSubscriptionHandler(subscriptionRepo, resolver, synchronizer, queueClient),
		Folders:       handler.NewFolderHandler(folderRepo, hierarchy),
		Videos:        handler.NewVideoHandler(videoRepo, subscriptionRepo, lifecycle),
		Settings:      handler.NewSettingsHandler(settingsRepo),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Log.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown failed", zap.Error(err))
	}

	logger.Log.Info("server stopped")
}
