package service

import (
	"context"
	"time"

	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

// PlaylistItem is one entry of a remote playlist, in playlist order.
type PlaylistItem struct {
	VideoID     string
	Title       string
	Description string
	Position    int
	PublishDate time.Time
	IconDefault string
	IconBest    string
	Uploader    string
	Views       int64
	Rating      float64
}

// ChannelInfo is the remote metadata of a channel.
type ChannelInfo struct {
	ChannelID        string
	Username         string
	CustomURL        string
	Title            string
	Description      string
	IconDefault      string
	IconBest         string
	UploadPlaylistID string
}

// PlaylistInfo is the remote metadata of a playlist.
type PlaylistInfo struct {
	PlaylistID  string
	Title       string
	Description string
	ChannelID   string
	IconDefault string
	IconBest    string
}

// VideoSource fetches remote channel/playlist state. Implementations map
// their transport errors onto ErrNotFound, ErrRateLimited and
// ErrTransientNetwork.
type VideoSource interface {
	// GetPlaylist returns the current items of a playlist ordered by
	// playlist position.
	GetPlaylist(ctx context.Context, playlistID string) ([]PlaylistItem, error)

	// ResolveChannelByID looks up a channel by its external id.
	ResolveChannelByID(ctx context.Context, channelID string) (*ChannelInfo, error)

	// ResolveChannelByUsername looks up a channel by its legacy username.
	ResolveChannelByUsername(ctx context.Context, username string) (*ChannelInfo, error)

	// SearchChannelByCustomURL resolves a custom URL or handle to a
	// channel id.
	SearchChannelByCustomURL(ctx context.Context, customURL string) (string, error)

	// ResolvePlaylist looks up playlist metadata by id.
	ResolvePlaylist(ctx context.Context, playlistID string) (*PlaylistInfo, error)
}

// JobScheduler hands work off to an external scheduler. All calls are
// fire-and-forget with at-least-once delivery; the engine tolerates
// duplicate job execution and never waits on completion.
type JobScheduler interface {
	ScheduleDownload(ctx context.Context, video *models.Video) error
	ScheduleDelete(ctx context.Context, video *models.Video) error
	ScheduleResync(ctx context.Context, subscriptionID int64) error
}

// SyncEvent describes the outcome of one sync pass for external consumers.
type SyncEvent struct {
	EventID        string    `json:"event_id"`
	SubscriptionID int64     `json:"subscription_id"`
	NewVideos      int       `json:"new_videos"`
	Scheduled      int       `json:"scheduled_downloads"`
	CompletedAt    time.Time `json:"completed_at"`
}

// EventPublisher fans sync outcomes out to an external bus. Optional; a nil
// publisher disables publishing.
type EventPublisher interface {
	PublishSyncEvent(ctx context.Context, event *SyncEvent) error
}
