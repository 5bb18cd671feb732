package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

// Queue names. Downloads run on a dedicated queue so long transfers never
// starve quick maintenance tasks.
const (
	QueueDownloads = "downloads"
	QueueDefault   = "default"
)

// Client wraps asynq client for enqueueing tasks. It implements
// service.JobScheduler.
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a new queue client
func NewClient(redisURL string) (*Client, error) {
	// Parse Redis URL to extract connection details (host, password, db, TLS)
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{asynqClient: asynq.NewClient(redisOpt)}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// ScheduleDownload enqueues a video download task
func (c *Client) ScheduleDownload(ctx context.Context, video *models.Video) error {
	payload, err := NewDownloadVideoTask(video.ID, video.SubscriptionID, video.VideoID)
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeDownloadVideo, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Hour),
		asynq.Queue(QueueDownloads),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Printf("[Queue] Enqueued video download: video_id=%d, task_id=%s", video.ID, info.ID)
	return nil
}

// ScheduleDelete enqueues a video file deletion task
func (c *Client) ScheduleDelete(ctx context.Context, video *models.Video) error {
	payload, err := NewDeleteVideoTask(video.ID)
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeDeleteVideo, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue(QueueDefault),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Printf("[Queue] Enqueued video deletion: video_id=%d, task_id=%s", video.ID, info.ID)
	return nil
}

// ScheduleResync enqueues a subscription resync task
func (c *Client) ScheduleResync(ctx context.Context, subscriptionID int64) error {
	payload, err := NewResyncSubscriptionTask(subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeResyncSubscription, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueDefault),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Printf("[Queue] Enqueued subscription resync: subscription_id=%d, task_id=%s", subscriptionID, info.ID)
	return nil
}
