package models

import "time"

// Channel holds the canonical metadata for a remote channel. Rows are shared
// between subscriptions: the same external channel must never produce two
// rows, so uniqueness is enforced on channel_id, username and custom_url.
type Channel struct {
	ID               int64     `db:"id" json:"id"`
	ChannelID        string    `db:"channel_id" json:"channel_id"`
	Username         *string   `db:"username" json:"username,omitempty"`
	CustomURL        *string   `db:"custom_url" json:"custom_url,omitempty"`
	Name             string    `db:"name" json:"name"`
	Description      string    `db:"description" json:"description"`
	IconDefault      string    `db:"icon_default" json:"icon_default"`
	IconBest         string    `db:"icon_best" json:"icon_best"`
	UploadPlaylistID string    `db:"upload_playlist_id" json:"upload_playlist_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// NewChannel creates a Channel from remote metadata.
func NewChannel(channelID, name, description, iconDefault, iconBest, uploadPlaylistID string) *Channel {
	now := time.Now()
	return &Channel{
		ChannelID:        channelID,
		Name:             name,
		Description:      description,
		IconDefault:      iconDefault,
		IconBest:         iconBest,
		UploadPlaylistID: uploadPlaylistID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Update refreshes the channel metadata from a remote lookup.
func (c *Channel) Update(name, description, iconDefault, iconBest, uploadPlaylistID string) {
	c.Name = name
	c.Description = description
	c.IconDefault = iconDefault
	c.IconBest = iconBest
	c.UploadPlaylistID = uploadPlaylistID
	c.UpdatedAt = time.Now()
}
