package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

// UserSettingsRepository defines operations for managing per-user settings.
type UserSettingsRepository interface {
	// GetByUserID retrieves the settings row for a user.
	GetByUserID(ctx context.Context, userID int64) (*models.UserSettings, error)

	// GetOrCreate retrieves the settings row for a user, creating an empty
	// one on first access.
	GetOrCreate(ctx context.Context, userID int64) (*models.UserSettings, error)

	// Update writes all override columns of an existing settings row.
	Update(ctx context.Context, settings *models.UserSettings) error
}

type userSettingsRepository struct {
	pool *pgxpool.Pool
}

// NewUserSettingsRepository creates a new UserSettingsRepository.
func NewUserSettingsRepository(pool *pgxpool.Pool) UserSettingsRepository {
	return &userSettingsRepository{pool: pool}
}

const userSettingsColumns = `
	id, user_id, mark_deleted_as_watched, delete_watched, auto_download,
	download_global_limit, download_subscription_limit, download_order,
	download_path, download_file_pattern, download_format,
	download_subtitles, download_autogenerated_subtitles,
	download_subtitles_all, download_subtitles_langs,
	download_subtitles_format, created_at, updated_at
`

func (r *userSettingsRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserSettings, error) {
	query := `SELECT ` + userSettingsColumns + ` FROM user_settings WHERE user_id = $1`

	settings := &models.UserSettings{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&settings.ID,
		&settings.UserID,
		&settings.MarkDeletedAsWatched,
		&settings.DeleteWatched,
		&settings.AutoDownload,
		&settings.DownloadGlobalLimit,
		&settings.DownloadSubscriptionLimit,
		&settings.DownloadOrder,
		&settings.DownloadPath,
		&settings.DownloadFilePattern,
		&settings.DownloadFormat,
		&settings.DownloadSubtitles,
		&settings.DownloadAutogenSubtitles,
		&settings.DownloadSubtitlesAll,
		&settings.DownloadSubtitlesLangs,
		&settings.DownloadSubtitlesFormat,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get user settings")
	}

	return settings, nil
}

func (r *userSettingsRepository) GetOrCreate(ctx context.Context, userID int64) (*models.UserSettings, error) {
	settings, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	settings = models.NewUserSettings(userID)
	query := `
		INSERT INTO user_settings (user_id, created_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = user_settings.updated_at
		RETURNING id
	`

	if err := r.pool.QueryRow(ctx, query, userID, settings.CreatedAt, settings.UpdatedAt).Scan(&settings.ID); err != nil {
		return nil, db.WrapError(err, "create user settings")
	}

	return settings, nil
}

func (r *userSettingsRepository) Update(ctx context.Context, settings *models.UserSettings) error {
	now := time.Now()
	query := `
		UPDATE user_settings
		SET mark_deleted_as_watched = $1,
		    delete_watched = $2,
		    auto_download = $3,
		    download_global_limit = $4,
		    download_subscription_limit = $5,
		    download_order = $6,
		    download_path = $7,
		    download_file_pattern = $8,
		    download_format = $9,
		    download_subtitles = $10,
		    download_autogenerated_subtitles = $11,
		    download_subtitles_all = $12,
		    download_subtitles_langs = $13,
		    download_subtitles_format = $14,
		    updated_at = $15
		WHERE user_id = $16
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		settings.MarkDeletedAsWatched,
		settings.DeleteWatched,
		settings.AutoDownload,
		settings.DownloadGlobalLimit,
		settings.DownloadSubscriptionLimit,
		settings.DownloadOrder,
		settings.DownloadPath,
		settings.DownloadFilePattern,
		settings.DownloadFormat,
		settings.DownloadSubtitles,
		settings.DownloadAutogenSubtitles,
		settings.DownloadSubtitlesAll,
		settings.DownloadSubtitlesLangs,
		settings.DownloadSubtitlesFormat,
		now,
		settings.UserID,
	).Scan(&settings.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "update user settings")
	}

	return nil
}
