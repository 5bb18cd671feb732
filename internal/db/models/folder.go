package models

import "time"

// SubscriptionFolder is a node in a user's folder tree. ParentID is nil for
// folders at the root of the forest. The tree is strict: no folder may be
// its own ancestor, though traversal still guards against cycles in case of
// data corruption.
type SubscriptionFolder struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ParentID  *int64    `db:"parent_id" json:"parent_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewSubscriptionFolder creates a folder under the given parent (nil = root).
func NewSubscriptionFolder(userID int64, parentID *int64, name string) *SubscriptionFolder {
	now := time.Now()
	return &SubscriptionFolder{
		UserID:    userID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
