package models

import "time"

// Video is one remote playlist item ever seen for a subscription. Rows are
// created by the synchronization engine and only deleted when the owning
// subscription goes away. (subscription_id, video_id) is unique.
type Video struct {
	ID             int64     `db:"id" json:"id"`
	SubscriptionID int64     `db:"subscription_id" json:"subscription_id"`
	VideoID        string    `db:"video_id" json:"video_id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Watched        bool      `db:"watched" json:"watched"`

	// DownloadedPath is set by the external download job on completion and
	// cleared by the delete job; the engine never writes it synchronously.
	DownloadedPath *string `db:"downloaded_path" json:"downloaded_path,omitempty"`

	// DownloadRequestedAt records that a download job was handed off, so a
	// re-run of the engine does not schedule the same download twice while
	// the job is still in flight.
	DownloadRequestedAt *time.Time `db:"download_requested_at" json:"download_requested_at,omitempty"`

	PlaylistIndex int       `db:"playlist_index" json:"playlist_index"`
	PublishDate   time.Time `db:"publish_date" json:"publish_date"`
	IconDefault   string    `db:"icon_default" json:"icon_default"`
	IconBest      string    `db:"icon_best" json:"icon_best"`
	UploaderName  string    `db:"uploader_name" json:"uploader_name"`
	Views         int64     `db:"views" json:"views"`
	Rating        float64   `db:"rating" json:"rating"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// IsDownloaded reports whether the on-disk artifact exists.
func (v *Video) IsDownloaded() bool {
	return v.DownloadedPath != nil
}

// DownloadPending reports whether a download job was handed off but has not
// completed yet.
func (v *Video) DownloadPending() bool {
	return v.DownloadedPath == nil && v.DownloadRequestedAt != nil
}
