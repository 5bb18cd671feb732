package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

// ChannelRepository defines operations for managing channels.
type ChannelRepository interface {
	// Create creates a new channel.
	Create(ctx context.Context, channel *models.Channel) error

	// Update writes the metadata of an existing channel.
	Update(ctx context.Context, channel *models.Channel) error

	// GetByID retrieves a channel by its row id.
	GetByID(ctx context.Context, id int64) (*models.Channel, error)

	// GetByChannelID retrieves a channel by its external channel id.
	GetByChannelID(ctx context.Context, channelID string) (*models.Channel, error)

	// GetByUsername retrieves a channel by its legacy username.
	GetByUsername(ctx context.Context, username string) (*models.Channel, error)

	// GetByCustomURL retrieves a channel by its custom URL/handle.
	GetByCustomURL(ctx context.Context, customURL string) (*models.Channel, error)
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

const channelColumns = `
	id, channel_id, username, custom_url, name, description,
	icon_default, icon_best, upload_playlist_id, created_at, updated_at
`

func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) error {
	query := `
		INSERT INTO channels (channel_id, username, custom_url, name, description,
			icon_default, icon_best, upload_playlist_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		channel.ChannelID,
		channel.Username,
		channel.CustomURL,
		channel.Name,
		channel.Description,
		channel.IconDefault,
		channel.IconBest,
		channel.UploadPlaylistID,
		channel.CreatedAt,
		channel.UpdatedAt,
	).Scan(&channel.ID)

	if err != nil {
		return db.WrapError(err, "create channel")
	}

	return nil
}

func (r *channelRepository) Update(ctx context.Context, channel *models.Channel) error {
	now := time.Now()
	query := `
		UPDATE channels
		SET username = $1,
		    custom_url = $2,
		    name = $3,
		    description = $4,
		    icon_default = $5,
		    icon_best = $6,
		    upload_playlist_id = $7,
		    updated_at = $8
		WHERE id = $9
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		channel.Username,
		channel.CustomURL,
		channel.Name,
		channel.Description,
		channel.IconDefault,
		channel.IconBest,
		channel.UploadPlaylistID,
		now,
		channel.ID,
	).Scan(&channel.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "update channel")
	}

	return nil
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	return r.getByKey(ctx, "id = $1", id, "get channel by id")
}

func (r *channelRepository) GetByChannelID(ctx context.Context, channelID string) (*models.Channel, error) {
	return r.getByKey(ctx, "channel_id = $1", channelID, "get channel by channel id")
}

func (r *channelRepository) GetByUsername(ctx context.Context, username string) (*models.Channel, error) {
	return r.getByKey(ctx, "username = $1", username, "get channel by username")
}

func (r *channelRepository) GetByCustomURL(ctx context.Context, customURL string) (*models.Channel, error) {
	return r.getByKey(ctx, "custom_url = $1", customURL, "get channel by custom url")
}

func (r *channelRepository) getByKey(ctx context.Context, where string, key interface{}, operation string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE ` + where

	channel := &models.Channel{}
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&channel.ID,
		&channel.ChannelID,
		&channel.Username,
		&channel.CustomURL,
		&channel.Name,
		&channel.Description,
		&channel.IconDefault,
		&channel.IconBest,
		&channel.UploadPlaylistID,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, operation)
	}

	return channel, nil
}
