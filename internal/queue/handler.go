package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hibiken/asynq"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/internal/downloader"
	"github.com/ytsm/subscription-manager-go/internal/service"
)

// TaskHandler processes download, deletion and resync tasks handed off by
// the engine.
type TaskHandler struct {
	videos     repository.VideoRepository
	subs       repository.SubscriptionRepository
	channels   repository.ChannelRepository
	settings   repository.UserSettingsRepository
	lifecycle  *service.LifecycleService
	sync       *service.Synchronizer
	downloader downloader.Downloader
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(
	videos repository.VideoRepository,
	subs repository.SubscriptionRepository,
	channels repository.ChannelRepository,
	settings repository.UserSettingsRepository,
	lifecycle *service.LifecycleService,
	sync *service.Synchronizer,
	dl downloader.Downloader,
) *TaskHandler {
	return &TaskHandler{
		videos:     videos,
		subs:       subs,
		channels:   channels,
		settings:   settings,
		lifecycle:  lifecycle,
		sync:       sync,
		downloader: dl,
	}
}

// HandleDownloadVideoTask returns an asynq.HandlerFunc for video downloads
func (h *TaskHandler) HandleDownloadVideoTask() asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := UnmarshalDownloadVideoPayload(task.Payload())
		if err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		log.Printf("[Handler] Processing video download: video_id=%d", payload.VideoID)

		video, err := h.videos.GetByID(ctx, payload.VideoID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				// Subscription was deleted while the task was queued
				log.Printf("[Handler] Video %d no longer exists, skipping", payload.VideoID)
				return nil
			}
			return fmt.Errorf("failed to load video: %w", err)
		}

		// At-least-once delivery means the same task can run twice
		if video.IsDownloaded() {
			log.Printf("[Handler] Video %d already downloaded, skipping", video.ID)
			return nil
		}

		sub, err := h.subs.GetByID(ctx, video.SubscriptionID)
		if err != nil {
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		channel, err := h.channels.GetByID(ctx, sub.ChannelID)
		if err != nil {
			return fmt.Errorf("failed to load channel: %w", err)
		}

		policy, err := h.effectivePolicy(ctx, sub)
		if err != nil {
			return err
		}

		path, err := h.downloader.Download(ctx, video, sub, channel, policy)
		if err != nil {
			return fmt.Errorf("failed to download video %s: %w", video.VideoID, err)
		}

		if err := h.lifecycle.FinishDownload(ctx, video.ID, path); err != nil {
			return fmt.Errorf("failed to record download: %w", err)
		}

		log.Printf("[Handler] Successfully downloaded video: video_id=%d, path=%s", video.ID, path)
		return nil
	}
}

// HandleDeleteVideoTask returns an asynq.HandlerFunc for video file deletion
func (h *TaskHandler) HandleDeleteVideoTask() asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := UnmarshalDeleteVideoPayload(task.Payload())
		if err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		log.Printf("[Handler] Processing video deletion: video_id=%d", payload.VideoID)

		video, err := h.videos.GetByID(ctx, payload.VideoID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				log.Printf("[Handler] Video %d no longer exists, skipping", payload.VideoID)
				return nil
			}
			return fmt.Errorf("failed to load video: %w", err)
		}

		if !video.IsDownloaded() {
			log.Printf("[Handler] Video %d has no files, skipping", video.ID)
			return nil
		}

		files, err := h.lifecycle.GetFiles(video)
		if err != nil {
			return fmt.Errorf("failed to list video files: %w", err)
		}

		for _, file := range files {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove %s: %w", file, err)
			}
		}

		if err := h.lifecycle.FinishDelete(ctx, video.ID); err != nil {
			return fmt.Errorf("failed to record deletion: %w", err)
		}

		log.Printf("[Handler] Deleted %d file(s) for video: video_id=%d", len(files), video.ID)
		return nil
	}
}

// HandleResyncSubscriptionTask returns an asynq.HandlerFunc for subscription
// resync
func (h *TaskHandler) HandleResyncSubscriptionTask() asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := UnmarshalResyncSubscriptionPayload(task.Payload())
		if err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		log.Printf("[Handler] Processing subscription resync: subscription_id=%d", payload.SubscriptionID)

		sub, err := h.subs.GetByID(ctx, payload.SubscriptionID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				log.Printf("[Handler] Subscription %d no longer exists, skipping", payload.SubscriptionID)
				return nil
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		if err := h.sync.Synchronize(ctx, sub); err != nil {
			if errors.Is(err, service.ErrConcurrencyViolation) {
				// Another worker holds the per-subscription lock
				log.Printf("[Handler] Subscription %d is already synchronizing, skipping", sub.ID)
				return nil
			}
			return fmt.Errorf("failed to synchronize subscription %d: %w", sub.ID, err)
		}

		return nil
	}
}

// HandleResyncAllTask returns an asynq.HandlerFunc that fans a periodic
// resync out to one task per subscription
func (h *TaskHandler) HandleResyncAllTask(scheduler service.JobScheduler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		subs, err := h.subs.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to list subscriptions: %w", err)
		}

		for _, sub := range subs {
			if err := scheduler.ScheduleResync(ctx, sub.ID); err != nil {
				log.Printf("[Handler] Failed to enqueue resync for subscription %d: %v", sub.ID, err)
				// Continue with other subscriptions
			}
		}

		log.Printf("[Handler] Enqueued resync for %d subscription(s)", len(subs))
		return nil
	}
}

func (h *TaskHandler) effectivePolicy(ctx context.Context, sub *models.Subscription) (service.Policy, error) {
	settings, err := h.settings.GetByUserID(ctx, sub.UserID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return service.Policy{}, fmt.Errorf("failed to load user settings: %w", err)
	}

	return service.ResolvePolicy(settings, sub), nil
}

// Server wraps asynq server for processing tasks
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a new task processing server
func NewServer(redisURL string, concurrency int, handler *TaskHandler, scheduler service.JobScheduler) (*Server, error) {
	// Parse Redis URL to extract connection details (host, password, db, TLS)
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueDefault:   10,
				QueueDownloads: 4,
			},
			StrictPriority: false, // Process all queues fairly
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Server] Task failed: type=%s, error=%v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	// Register handlers
	mux.HandleFunc(TypeDownloadVideo, handler.HandleDownloadVideoTask())
	mux.HandleFunc(TypeDeleteVideo, handler.HandleDeleteVideoTask())
	mux.HandleFunc(TypeResyncSubscription, handler.HandleResyncSubscriptionTask())
	mux.HandleFunc(TypeResyncAll, handler.HandleResyncAllTask(scheduler))

	return &Server{
		asynqServer: srv,
		mux:         mux,
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	log.Println("[Server] Starting task processing server...")
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	log.Println("[Server] Shutting down task processing server...")
	s.asynqServer.Shutdown()
}
