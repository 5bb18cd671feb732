package models

import "time"

// User is the owner of folders, subscriptions and settings. Authentication
// lives in the shell; the engine only needs the id for ownership filtering.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	APIKey    string    `db:"api_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
