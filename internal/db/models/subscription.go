package models

import "time"

// Subscription is a followed playlist: either a channel's uploads playlist or
// an explicit playlist. It belongs to one user, optionally sits in one
// folder, and carries nullable policy overrides on top of the user settings.
// PlaylistID identifies what is synchronized; (user_id, playlist_id) is
// unique so re-subscribing reuses the existing row.
type Subscription struct {
	ID          int64   `db:"id" json:"id"`
	UserID      int64   `db:"user_id" json:"user_id"`
	FolderID    *int64  `db:"folder_id" json:"folder_id,omitempty"`
	ChannelID   int64   `db:"channel_id" json:"channel_id"`
	PlaylistID  string  `db:"playlist_id" json:"playlist_id"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	IconDefault string  `db:"icon_default" json:"icon_default"`
	IconBest    string  `db:"icon_best" json:"icon_best"`

	// Policy overrides. nil falls through to the user settings.
	AutoDownload       *bool   `db:"auto_download" json:"auto_download,omitempty"`
	DownloadLimit      *int    `db:"download_limit" json:"download_limit,omitempty"`
	DownloadOrder      *string `db:"download_order" json:"download_order,omitempty"`
	DeleteAfterWatched *bool   `db:"delete_after_watched" json:"delete_after_watched,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewSubscription creates a subscription owned by the given user.
func NewSubscription(userID int64, channelID int64, playlistID string) *Subscription {
	now := time.Now()
	return &Subscription{
		UserID:     userID,
		ChannelID:  channelID,
		PlaylistID: playlistID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// FillFromPlaylist populates the display metadata from playlist metadata.
// A playlist subscription keeps the playlist's own naming; it must not
// collapse to "this channel's uploads".
func (s *Subscription) FillFromPlaylist(name, description, iconDefault, iconBest string) {
	s.Name = name
	s.Description = description
	s.IconDefault = iconDefault
	s.IconBest = iconBest
	s.UpdatedAt = time.Now()
}

// CopyFromChannel populates the display metadata from the channel itself and
// targets the channel's uploads playlist. There is no point in storing info
// about the synthetic "uploads from X" playlist.
func (s *Subscription) CopyFromChannel(c *Channel) {
	s.Name = c.Name
	s.PlaylistID = c.UploadPlaylistID
	s.Description = c.Description
	s.IconDefault = c.IconDefault
	s.IconBest = c.IconBest
	s.UpdatedAt = time.Now()
}
