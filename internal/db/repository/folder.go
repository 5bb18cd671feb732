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

// FolderRepository defines operations for managing subscription folders.
type FolderRepository interface {
	// Create creates a new folder.
	Create(ctx context.Context, folder *models.SubscriptionFolder) error

	// GetByID retrieves a folder by id.
	GetByID(ctx context.Context, id int64) (*models.SubscriptionFolder, error)

	// Update writes the name and parent of an existing folder.
	Update(ctx context.Context, folder *models.SubscriptionFolder) error

	// Delete deletes a folder. Descendant folders and contained
	// subscriptions are removed by cascade.
	Delete(ctx context.Context, id int64) error

	// ListByParent retrieves the child folders of the given parent (nil for
	// the forest root), ordered by case-insensitive name ascending.
	ListByParent(ctx context.Context, userID int64, parentID *int64) ([]*models.SubscriptionFolder, error)
}

type folderRepository struct {
	pool *pgxpool.Pool
}

// NewFolderRepository creates a new FolderRepository.
func NewFolderRepository(pool *pgxpool.Pool) FolderRepository {
	return &folderRepository{pool: pool}
}

func (r *folderRepository) Create(ctx context.Context, folder *models.SubscriptionFolder) error {
	query := `
		INSERT INTO subscription_folders (user_id, parent_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		folder.UserID,
		folder.ParentID,
		folder.Name,
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.ID)

	if err != nil {
		return db.WrapError(err, "create folder")
	}

	return nil
}

func (r *folderRepository) GetByID(ctx context.Context, id int64) (*models.SubscriptionFolder, error) {
	query := `
		SELECT id, user_id, parent_id, name, created_at, updated_at
		FROM subscription_folders
		WHERE id = $1
	`

	folder := &models.SubscriptionFolder{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&folder.ID,
		&folder.UserID,
		&folder.ParentID,
		&folder.Name,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get folder by id")
	}

	return folder, nil
}

func (r *folderRepository) Update(ctx context.Context, folder *models.SubscriptionFolder) error {
	now := time.Now()
	query := `
		UPDATE subscription_folders
		SET name = $1,
		    parent_id = $2,
		    updated_at = $3
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		folder.Name,
		folder.ParentID,
		now,
		folder.ID,
	).Scan(&folder.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "update folder")
	}

	return nil
}

func (r *folderRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM subscription_folders WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.WrapError(err, "delete folder")
	}

	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "delete folder")
	}

	return nil
}

func (r *folderRepository) ListByParent(ctx context.Context, userID int64, parentID *int64) ([]*models.SubscriptionFolder, error) {
	query := `
		SELECT id, user_id, parent_id, name, created_at, updated_at
		FROM subscription_folders
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY LOWER(name) ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, parentID)
	if err != nil {
		return nil, db.WrapError(err, "list folders by parent")
	}
	defer rows.Close()

	var folders []*models.SubscriptionFolder
	for rows.Next() {
		folder := &models.SubscriptionFolder{}
		err := rows.Scan(
			&folder.ID,
			&folder.UserID,
			&folder.ParentID,
			&folder.Name,
			&folder.CreatedAt,
			&folder.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}
