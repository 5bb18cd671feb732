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

// SubscriptionRepository defines operations for managing subscriptions.
type SubscriptionRepository interface {
	// Create creates a new subscription.
	Create(ctx context.Context, sub *models.Subscription) error

	// Update writes the metadata and policy overrides of an existing
	// subscription.
	Update(ctx context.Context, sub *models.Subscription) error

	// Delete deletes a subscription; its videos are removed by cascade.
	Delete(ctx context.Context, id int64) error

	// GetByID retrieves a subscription by id.
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)

	// GetByPlaylistID retrieves a user's subscription to the given playlist.
	GetByPlaylistID(ctx context.Context, userID int64, playlistID string) (*models.Subscription, error)

	// ListByFolder retrieves the subscriptions directly contained in a
	// folder (nil for the forest root), ordered by case-insensitive name.
	ListByFolder(ctx context.Context, userID int64, folderID *int64) ([]*models.Subscription, error)

	// ListByUser retrieves every subscription of a user.
	ListByUser(ctx context.Context, userID int64) ([]*models.Subscription, error)

	// ListAll retrieves every subscription across all users.
	ListAll(ctx context.Context) ([]*models.Subscription, error)

	// DetachFromFolder clears the folder reference of a subscription,
	// moving it to the forest root.
	DetachFromFolder(ctx context.Context, id int64) error
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

const subscriptionColumns = `
	id, user_id, folder_id, channel_id, playlist_id, name, description,
	icon_default, icon_best, auto_download, download_limit, download_order,
	delete_after_watched, created_at, updated_at
`

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, folder_id, channel_id, playlist_id,
			name, description, icon_default, icon_best, auto_download,
			download_limit, download_order, delete_after_watched, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		sub.UserID,
		sub.FolderID,
		sub.ChannelID,
		sub.PlaylistID,
		sub.Name,
		sub.Description,
		sub.IconDefault,
		sub.IconBest,
		sub.AutoDownload,
		sub.DownloadLimit,
		sub.DownloadOrder,
		sub.DeleteAfterWatched,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Scan(&sub.ID)

	if err != nil {
		return db.WrapError(err, "create subscription")
	}

	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	query := `
		UPDATE subscriptions
		SET folder_id = $1,
		    name = $2,
		    description = $3,
		    icon_default = $4,
		    icon_best = $5,
		    auto_download = $6,
		    download_limit = $7,
		    download_order = $8,
		    delete_after_watched = $9,
		    updated_at = $10
		WHERE id = $11
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		sub.FolderID,
		sub.Name,
		sub.Description,
		sub.IconDefault,
		sub.IconBest,
		sub.AutoDownload,
		sub.DownloadLimit,
		sub.DownloadOrder,
		sub.DeleteAfterWatched,
		now,
		sub.ID,
	).Scan(&sub.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "update subscription")
	}

	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM subscriptions WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.WrapError(err, "delete subscription")
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "delete subscription")
	}

	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	sub := &models.Subscription{}
	err := r.pool.QueryRow(ctx, query, id).Scan(scanSubscriptionDest(sub)...)
	if err != nil {
		return nil, db.WrapError(err, "get subscription by id")
	}

	return sub, nil
}

func (r *subscriptionRepository) GetByPlaylistID(ctx context.Context, userID int64, playlistID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND playlist_id = $2`

	sub := &models.Subscription{}
	err := r.pool.QueryRow(ctx, query, userID, playlistID).Scan(scanSubscriptionDest(sub)...)
	if err != nil {
		return nil, db.WrapError(err, "get subscription by playlist id")
	}

	return sub, nil
}

func (r *subscriptionRepository) ListByFolder(ctx context.Context, userID int64, folderID *int64) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2
		ORDER BY LOWER(name) ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, folderID)
	if err != nil {
		return nil, db.WrapError(err, "list subscriptions by folder")
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY LOWER(name) ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "list subscriptions by user")
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func (r *subscriptionRepository) ListAll(ctx context.Context) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list all subscriptions")
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func (r *subscriptionRepository) DetachFromFolder(ctx context.Context, id int64) error {
	query := `UPDATE subscriptions SET folder_id = NULL, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.WrapError(err, "detach subscription from folder")
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "detach subscription from folder")
	}

	return nil
}

func scanSubscriptionDest(sub *models.Subscription) []interface{} {
	return []interface{}{
		&sub.ID,
		&sub.UserID,
		&sub.FolderID,
		&sub.ChannelID,
		&sub.PlaylistID,
		&sub.Name,
		&sub.Description,
		&sub.IconDefault,
		&sub.IconBest,
		&sub.AutoDownload,
		&sub.DownloadLimit,
		&sub.DownloadOrder,
		&sub.DeleteAfterWatched,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	}
}

// Helper function to scan multiple subscriptions from query results
func scanSubscriptions(rows pgx.Rows) ([]*models.Subscription, error) {
	var subs []*models.Subscription

	for rows.Next() {
		sub := &models.Subscription{}
		if err := rows.Scan(scanSubscriptionDest(sub)...); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}
