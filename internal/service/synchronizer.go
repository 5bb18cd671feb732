package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
	"github.com/ytsm/subscription-manager-go/pkg/metrics"
)

// Synchronizer reconciles a subscription's remote video list against stored
// video records and emits download decisions according to the effective
// policy. Different subscriptions may synchronize concurrently; two passes
// for the same subscription are rejected with ErrConcurrencyViolation.
type Synchronizer struct {
	subs      repository.SubscriptionRepository
	settings  repository.UserSettingsRepository
	videos    repository.VideoRepository
	source    VideoSource
	scheduler JobScheduler
	publisher EventPublisher

	mu      sync.Mutex
	running map[int64]bool
}

// NewSynchronizer creates a new Synchronizer. publisher may be nil to
// disable event publishing.
func NewSynchronizer(
	subs repository.SubscriptionRepository,
	settings repository.UserSettingsRepository,
	videos repository.VideoRepository,
	source VideoSource,
	scheduler JobScheduler,
	publisher EventPublisher,
) *Synchronizer {
	return &Synchronizer{
		subs:      subs,
		settings:  settings,
		videos:    videos,
		source:    source,
		scheduler: scheduler,
		publisher: publisher,
		running:   make(map[int64]bool),
	}
}

// Synchronize runs one sync pass for a subscription: fetch the remote
// playlist, create video rows for unseen items, then schedule downloads for
// the best candidates within the per-subscription and global budgets.
//
// The pass is idempotent: re-running with an unchanged remote list creates
// no rows and schedules no additional jobs. Rate limiting and transient
// network failures abort the pass cleanly; rows committed before the
// failure stay committed and are not re-created on retry.
func (s *Synchronizer) Synchronize(ctx context.Context, sub *models.Subscription) error {
	if !s.acquire(sub.ID) {
		return fmt.Errorf("subscription %d: %w", sub.ID, ErrConcurrencyViolation)
	}
	defer s.release(sub.ID)

	started := time.Now()
	metrics.SyncPasses.Inc()

	settings, err := s.settings.GetByUserID(ctx, sub.UserID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		metrics.SyncErrors.Inc()
		return fmt.Errorf("load user settings: %w", err)
	}
	policy := ResolvePolicy(settings, sub)

	items, err := s.source.GetPlaylist(ctx, sub.PlaylistID)
	if err != nil {
		metrics.SyncErrors.Inc()
		return fmt.Errorf("fetch playlist %q: %w", sub.PlaylistID, err)
	}

	videos, err := s.videos.ListBySubscription(ctx, sub.ID)
	if err != nil {
		metrics.SyncErrors.Inc()
		return fmt.Errorf("list stored videos: %w", err)
	}

	videos, created, err := s.storeNewItems(ctx, sub, items, videos)
	if err != nil {
		metrics.SyncErrors.Inc()
		return err
	}
	metrics.VideosDiscovered.Add(float64(created))

	scheduled := 0
	if policy.AutoDownload {
		scheduled, err = s.scheduleDownloads(ctx, sub, policy, videos)
		if err != nil {
			metrics.SyncErrors.Inc()
			return err
		}
	}

	logger.Log.Info("sync pass completed",
		zap.Int64("subscription_id", sub.ID),
		zap.Int("remote_items", len(items)),
		zap.Int("new_videos", created),
		zap.Int("scheduled_downloads", scheduled),
		zap.Duration("elapsed", time.Since(started)),
	)

	s.publish(ctx, &SyncEvent{
		EventID:        uuid.New().String(),
		SubscriptionID: sub.ID,
		NewVideos:      created,
		Scheduled:      scheduled,
		CompletedAt:    time.Now(),
	})

	return nil
}

// RequestResyncAll hands off a resync job for every subscription of a user.
func (s *Synchronizer) RequestResyncAll(ctx context.Context, userID int64) error {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	for _, sub := range subs {
		if err := s.scheduler.ScheduleResync(ctx, sub.ID); err != nil {
			return fmt.Errorf("schedule resync for subscription %d: %w", sub.ID, err)
		}
	}

	return nil
}

// storeNewItems creates a video row for every remote item not yet stored.
// Row creation is all-or-nothing per item; a duplicate key from a competing
// retry means the row already exists and is not an error.
func (s *Synchronizer) storeNewItems(ctx context.Context, sub *models.Subscription, items []PlaylistItem, videos []*models.Video) ([]*models.Video, int, error) {
	known := make(map[string]bool, len(videos))
	for _, v := range videos {
		known[v.VideoID] = true
	}

	created := 0
	for _, item := range items {
		if known[item.VideoID] {
			continue
		}

		now := time.Now()
		video := &models.Video{
			SubscriptionID: sub.ID,
			VideoID:        item.VideoID,
			Name:           item.Title,
			Description:    item.Description,
			Watched:        false,
			PlaylistIndex:  item.Position,
			PublishDate:    item.PublishDate,
			IconDefault:    item.IconDefault,
			IconBest:       item.IconBest,
			UploaderName:   item.Uploader,
			Views:          item.Views,
			Rating:         item.Rating,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := s.videos.Create(ctx, video); err != nil {
			if errors.Is(err, db.ErrDuplicateKey) {
				continue
			}
			return nil, 0, fmt.Errorf("store video %q: %w", item.VideoID, err)
		}

		known[item.VideoID] = true
		videos = append(videos, video)
		created++
	}

	return videos, created, nil
}

// scheduleDownloads picks download candidates ordered by the effective
// download order and hands off up to the remaining budget. The budget is
// the minimum of the per-subscription and global remaining counts;
// downloaded videos and in-flight download requests count against both.
// The global count is a best-effort point-in-time read across
// subscriptions and may be exceeded transiently by concurrent passes.
func (s *Synchronizer) scheduleDownloads(ctx context.Context, sub *models.Subscription, policy Policy, videos []*models.Video) (int, error) {
	committedInSub := 0
	var candidates []*models.Video
	for _, v := range videos {
		switch {
		case v.IsDownloaded() || v.DownloadPending():
			committedInSub++
		case !v.Watched:
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		return 0, nil
	}

	budget := Unlimited
	if policy.SubscriptionLimit >= 0 {
		budget = max(policy.SubscriptionLimit-committedInSub, 0)
	}

	if policy.GlobalLimit >= 0 {
		downloadedGlobal, err := s.videos.CountDownloadedByUser(ctx, sub.UserID)
		if err != nil {
			return 0, fmt.Errorf("count downloaded videos: %w", err)
		}
		pendingInSub := committedInSub - countDownloaded(videos)
		globalRemaining := max(policy.GlobalLimit-downloadedGlobal-pendingInSub, 0)
		if budget == Unlimited || globalRemaining < budget {
			budget = globalRemaining
		}
	}

	if budget == 0 {
		return 0, nil
	}

	sortCandidates(candidates, policy.DownloadOrder)

	scheduled := 0
	for _, v := range candidates {
		if budget != Unlimited && scheduled >= budget {
			break
		}

		if err := s.scheduler.ScheduleDownload(ctx, v); err != nil {
			return scheduled, fmt.Errorf("schedule download for video %d: %w", v.ID, err)
		}

		now := time.Now()
		if err := s.videos.MarkDownloadRequested(ctx, v.ID, now); err != nil {
			return scheduled, fmt.Errorf("mark download requested for video %d: %w", v.ID, err)
		}
		v.DownloadRequestedAt = &now

		metrics.JobsScheduled.WithLabelValues("download").Inc()
		scheduled++
	}

	return scheduled, nil
}

// sortCandidates orders candidates by the given download order, breaking
// ties by row id so selection is deterministic.
func sortCandidates(videos []*models.Video, order string) {
	less := func(a, b *models.Video) bool { return a.PlaylistIndex < b.PlaylistIndex }

	switch order {
	case OrderNewest:
		less = func(a, b *models.Video) bool { return a.PublishDate.After(b.PublishDate) }
	case OrderOldest:
		less = func(a, b *models.Video) bool { return a.PublishDate.Before(b.PublishDate) }
	case OrderPlaylist:
		// default
	case OrderPlaylistReverse:
		less = func(a, b *models.Video) bool { return a.PlaylistIndex > b.PlaylistIndex }
	case OrderPopularity:
		less = func(a, b *models.Video) bool { return a.Views > b.Views }
	case OrderRating:
		less = func(a, b *models.Video) bool { return a.Rating > b.Rating }
	}

	sort.Slice(videos, func(i, j int) bool {
		a, b := videos[i], videos[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID < b.ID
	})
}

func countDownloaded(videos []*models.Video) int {
	n := 0
	for _, v := range videos {
		if v.IsDownloaded() {
			n++
		}
	}
	return n
}

func (s *Synchronizer) publish(ctx context.Context, event *SyncEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSyncEvent(ctx, event); err != nil {
		logger.Log.Warn("failed to publish sync event",
			zap.Error(err),
			zap.Int64("subscription_id", event.SubscriptionID),
		)
	}
}

func (s *Synchronizer) acquire(subscriptionID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[subscriptionID] {
		return false
	}
	s.running[subscriptionID] = true
	return true
}

func (s *Synchronizer) release(subscriptionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, subscriptionID)
}
