package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

// UserRepository defines operations for managing users.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByAPIKey retrieves a user by API key.
	GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, api_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.APIKey,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		return db.WrapError(err, "create user")
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, api_key, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.APIKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get user by id")
	}

	return user, nil
}

func (r *userRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	query := `
		SELECT id, username, api_key, created_at, updated_at
		FROM users
		WHERE api_key = $1
	`

	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&user.ID,
		&user.Username,
		&user.APIKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get user by api key")
	}

	return user, nil
}
