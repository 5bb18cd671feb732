package models

import "time"

// UserSettings holds the per-user global defaults for download policy.
// Every field is nullable: nil means "no override, fall back to the
// compiled-in default", which is distinct from an explicit false/zero.
type UserSettings struct {
	ID                       int64      `db:"id" json:"id"`
	UserID                   int64      `db:"user_id" json:"user_id"`
	MarkDeletedAsWatched     *bool      `db:"mark_deleted_as_watched" json:"mark_deleted_as_watched,omitempty"`
	DeleteWatched            *bool      `db:"delete_watched" json:"delete_watched,omitempty"`
	AutoDownload             *bool      `db:"auto_download" json:"auto_download,omitempty"`
	DownloadGlobalLimit      *int       `db:"download_global_limit" json:"download_global_limit,omitempty"`
	DownloadSubscriptionLimit *int      `db:"download_subscription_limit" json:"download_subscription_limit,omitempty"`
	DownloadOrder            *string    `db:"download_order" json:"download_order,omitempty"`
	DownloadPath             *string    `db:"download_path" json:"download_path,omitempty"`
	DownloadFilePattern      *string    `db:"download_file_pattern" json:"download_file_pattern,omitempty"`
	DownloadFormat           *string    `db:"download_format" json:"download_format,omitempty"`
	DownloadSubtitles        *bool      `db:"download_subtitles" json:"download_subtitles,omitempty"`
	DownloadAutogenSubtitles *bool      `db:"download_autogenerated_subtitles" json:"download_autogenerated_subtitles,omitempty"`
	DownloadSubtitlesAll     *bool      `db:"download_subtitles_all" json:"download_subtitles_all,omitempty"`
	DownloadSubtitlesLangs   *string    `db:"download_subtitles_langs" json:"download_subtitles_langs,omitempty"`
	DownloadSubtitlesFormat  *string    `db:"download_subtitles_format" json:"download_subtitles_format,omitempty"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

// NewUserSettings creates an empty settings row for a user. All overrides
// start unset so the compiled-in defaults apply.
func NewUserSettings(userID int64) *UserSettings {
	now := time.Now()
	return &UserSettings{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
