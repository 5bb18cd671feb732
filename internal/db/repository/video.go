package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

// VideoRepository defines operations for managing videos.
type VideoRepository interface {
	// Create creates a new video row. Creation is all-or-nothing per item;
	// inserting an already-present (subscription_id, video_id) pair fails
	// with a duplicate key error.
	Create(ctx context.Context, video *models.Video) error

	// GetByID retrieves a video by row id.
	GetByID(ctx context.Context, id int64) (*models.Video, error)

	// ListBySubscription retrieves all videos of a subscription ordered by
	// playlist index ascending.
	ListBySubscription(ctx context.Context, subscriptionID int64) ([]*models.Video, error)

	// SetWatched writes the watched flag.
	SetWatched(ctx context.Context, id int64, watched bool) error

	// MarkDownloadRequested stamps the time a download job was handed off.
	MarkDownloadRequested(ctx context.Context, id int64, at time.Time) error

	// SetDownloadedPath records the completed download artifact path.
	SetDownloadedPath(ctx context.Context, id int64, path string) error

	// ClearDownload clears the artifact path and the pending-request stamp
	// after the external deletion job confirms completion.
	ClearDownload(ctx context.Context, id int64) error

	// CountDownloadedBySubscription counts downloaded videos of one
	// subscription.
	CountDownloadedBySubscription(ctx context.Context, subscriptionID int64) (int, error)

	// CountDownloadedByUser counts downloaded videos across all
	// subscriptions of a user.
	CountDownloadedByUser(ctx context.Context, userID int64) (int, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

const videoColumns = `
	id, subscription_id, video_id, name, description, watched,
	downloaded_path, download_requested_at, playlist_index, publish_date,
	icon_default, icon_best, uploader_name, views, rating,
	created_at, updated_at
`

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (subscription_id, video_id, name, description, watched,
			downloaded_path, download_requested_at, playlist_index, publish_date,
			icon_default, icon_best, uploader_name, views, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		video.SubscriptionID,
		video.VideoID,
		video.Name,
		video.Description,
		video.Watched,
		video.DownloadedPath,
		video.DownloadRequestedAt,
		video.PlaylistIndex,
		video.PublishDate,
		video.IconDefault,
		video.IconBest,
		video.UploaderName,
		video.Views,
		video.Rating,
		video.CreatedAt,
		video.UpdatedAt,
	).Scan(&video.ID)

	if err != nil {
		return db.WrapError(err, "create video")
	}

	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video := &models.Video{}
	err := r.pool.QueryRow(ctx, query, id).Scan(scanVideoDest(video)...)
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) ListBySubscription(ctx context.Context, subscriptionID int64) ([]*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE subscription_id = $1
		ORDER BY playlist_index ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, db.WrapError(err, "list videos by subscription")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) SetWatched(ctx context.Context, id int64, watched bool) error {
	return r.exec(ctx, "set video watched",
		`UPDATE videos SET watched = $1, updated_at = NOW() WHERE id = $2`, watched, id)
}

func (r *videoRepository) MarkDownloadRequested(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, "mark download requested",
		`UPDATE videos SET download_requested_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
}

func (r *videoRepository) SetDownloadedPath(ctx context.Context, id int64, path string) error {
	return r.exec(ctx, "set downloaded path",
		`UPDATE videos SET downloaded_path = $1, updated_at = NOW() WHERE id = $2`, path, id)
}

func (r *videoRepository) ClearDownload(ctx context.Context, id int64) error {
	return r.exec(ctx, "clear download",
		`UPDATE videos SET downloaded_path = NULL, download_requested_at = NULL, updated_at = NOW() WHERE id = $1`, id)
}

func (r *videoRepository) CountDownloadedBySubscription(ctx context.Context, subscriptionID int64) (int, error) {
	query := `SELECT COUNT(*) FROM videos WHERE subscription_id = $1 AND downloaded_path IS NOT NULL`

	var count int
	if err := r.pool.QueryRow(ctx, query, subscriptionID).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count downloaded by subscription")
	}

	return count, nil
}

func (r *videoRepository) CountDownloadedByUser(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM videos v
		JOIN subscriptions s ON s.id = v.subscription_id
		WHERE s.user_id = $1 AND v.downloaded_path IS NOT NULL
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count downloaded by user")
	}

	return count, nil
}

func (r *videoRepository) exec(ctx context.Context, operation, query string, args ...interface{}) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return db.WrapError(err, operation)
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, operation)
	}

	return nil
}

func scanVideoDest(video *models.Video) []interface{} {
	return []interface{}{
		&video.ID,
		&video.SubscriptionID,
		&video.VideoID,
		&video.Name,
		&video.Description,
		&video.Watched,
		&video.DownloadedPath,
		&video.DownloadRequestedAt,
		&video.PlaylistIndex,
		&video.PublishDate,
		&video.IconDefault,
		&video.IconBest,
		&video.UploaderName,
		&video.Views,
		&video.Rating,
		&video.CreatedAt,
		&video.UpdatedAt,
	}
}

// Helper function to scan multiple videos from query results
func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video := &models.Video{}
		if err := rows.Scan(scanVideoDest(video)...); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}
