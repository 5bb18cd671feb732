package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
	"github.com/ytsm/subscription-manager-go/pkg/metrics"
)

// LifecycleService tracks per-video watched/downloaded state and triggers
// the side effects of state transitions: scheduling downloads, deletions
// and re-synchronization of the parent subscription. Job handoffs are
// fire-and-forget; completion is written back later through FinishDownload
// and FinishDelete.
type LifecycleService struct {
	videos    repository.VideoRepository
	subs      repository.SubscriptionRepository
	settings  repository.UserSettingsRepository
	scheduler JobScheduler
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(
	videos repository.VideoRepository,
	subs repository.SubscriptionRepository,
	settings repository.UserSettingsRepository,
	scheduler JobScheduler,
) *LifecycleService {
	return &LifecycleService{
		videos:    videos,
		subs:      subs,
		settings:  settings,
		scheduler: scheduler,
	}
}

// MarkWatched flags a video as watched. If the video is downloaded and the
// effective delete_watched policy is on, its files are scheduled for
// deletion and the parent subscription is re-synchronized to refill the
// freed download budget.
func (l *LifecycleService) MarkWatched(ctx context.Context, video *models.Video) error {
	if err := l.videos.SetWatched(ctx, video.ID, true); err != nil {
		return fmt.Errorf("mark watched: %w", err)
	}
	video.Watched = true

	if !video.IsDownloaded() {
		return nil
	}

	policy, err := l.effectivePolicy(ctx, video)
	if err != nil {
		return err
	}

	if policy.DeleteWatched {
		if err := l.scheduler.ScheduleDelete(ctx, video); err != nil {
			return fmt.Errorf("schedule delete: %w", err)
		}
		metrics.JobsScheduled.WithLabelValues("delete").Inc()

		if err := l.scheduler.ScheduleResync(ctx, video.SubscriptionID); err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
		metrics.JobsScheduled.WithLabelValues("resync").Inc()
	}

	return nil
}

// MarkUnwatched clears the watched flag and always requests a
// re-synchronize of the parent subscription; whether that frees budget or
// triggers a re-download is decided by the engine on the next pass.
func (l *LifecycleService) MarkUnwatched(ctx context.Context, video *models.Video) error {
	if err := l.videos.SetWatched(ctx, video.ID, false); err != nil {
		return fmt.Errorf("mark unwatched: %w", err)
	}
	video.Watched = false

	if err := l.scheduler.ScheduleResync(ctx, video.SubscriptionID); err != nil {
		return fmt.Errorf("schedule resync: %w", err)
	}
	metrics.JobsScheduled.WithLabelValues("resync").Inc()

	return nil
}

// DeleteFiles schedules deletion of the on-disk artifact. With the
// effective mark_deleted_as_watched policy the video is also flagged
// watched and a resync is requested. DownloadedPath stays set until the
// external deletion job confirms completion via FinishDelete.
func (l *LifecycleService) DeleteFiles(ctx context.Context, video *models.Video) error {
	if !video.IsDownloaded() {
		return nil
	}

	if err := l.scheduler.ScheduleDelete(ctx, video); err != nil {
		return fmt.Errorf("schedule delete: %w", err)
	}
	metrics.JobsScheduled.WithLabelValues("delete").Inc()

	policy, err := l.effectivePolicy(ctx, video)
	if err != nil {
		return err
	}

	if policy.MarkDeletedAsWatched {
		if err := l.videos.SetWatched(ctx, video.ID, true); err != nil {
			return fmt.Errorf("mark deleted as watched: %w", err)
		}
		video.Watched = true

		if err := l.scheduler.ScheduleResync(ctx, video.SubscriptionID); err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
		metrics.JobsScheduled.WithLabelValues("resync").Inc()
	}

	return nil
}

// Download schedules a download job for a video that has no artifact yet.
// No-op if the video is already downloaded or a download is in flight.
func (l *LifecycleService) Download(ctx context.Context, video *models.Video) error {
	if video.IsDownloaded() || video.DownloadPending() {
		return nil
	}

	if err := l.scheduler.ScheduleDownload(ctx, video); err != nil {
		return fmt.Errorf("schedule download: %w", err)
	}
	metrics.JobsScheduled.WithLabelValues("download").Inc()

	now := time.Now()
	if err := l.videos.MarkDownloadRequested(ctx, video.ID, now); err != nil {
		return fmt.Errorf("mark download requested: %w", err)
	}
	video.DownloadRequestedAt = &now

	return nil
}

// FinishDownload records a completed download. Called by the worker when
// the external download job finishes.
func (l *LifecycleService) FinishDownload(ctx context.Context, videoID int64, path string) error {
	if err := l.videos.SetDownloadedPath(ctx, videoID, path); err != nil {
		return fmt.Errorf("finish download: %w", err)
	}

	logger.Log.Info("download completed",
		zap.Int64("video_id", videoID),
		zap.String("path", path),
	)

	return nil
}

// FinishDelete records a completed file deletion: the artifact path and the
// pending-request stamp are cleared. Called by the worker when the external
// deletion job finishes.
func (l *LifecycleService) FinishDelete(ctx context.Context, videoID int64) error {
	if err := l.videos.ClearDownload(ctx, videoID); err != nil {
		return fmt.Errorf("finish delete: %w", err)
	}

	logger.Log.Info("file deletion completed", zap.Int64("video_id", videoID))

	return nil
}

// GetFiles lists every file belonging to a downloaded video. DownloadedPath
// is interpreted as a base-name prefix within its directory, which covers
// multi-file artifacts like video plus subtitles sharing a stem. The
// listing is recomputed from the directory on each call.
func (l *LifecycleService) GetFiles(video *models.Video) ([]string, error) {
	if !video.IsDownloaded() {
		return nil, nil
	}

	dir, base := filepath.Split(*video.DownloadedPath)
	// Match on the stem so sidecar files (subtitles, thumbnails) sharing it
	// are included.
	prefix := strings.TrimSuffix(base, filepath.Ext(base))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list video files: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// effectivePolicy resolves the policy governing a video through its parent
// subscription.
func (l *LifecycleService) effectivePolicy(ctx context.Context, video *models.Video) (Policy, error) {
	sub, err := l.subs.GetByID(ctx, video.SubscriptionID)
	if err != nil {
		return Policy{}, fmt.Errorf("load subscription: %w", err)
	}

	settings, err := l.settings.GetByUserID(ctx, sub.UserID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return Policy{}, fmt.Errorf("load user settings: %w", err)
	}

	return ResolvePolicy(settings, sub), nil
}
