package service

import "github.com/ytsm/subscription-manager-go/internal/db/models"

// Download order values. Exactly one total order each; ties are broken by
// row id for determinism.
const (
	OrderNewest          = "newest"
	OrderOldest          = "oldest"
	OrderPlaylist        = "playlist"
	OrderPlaylistReverse = "playlist_reverse"
	OrderPopularity      = "popularity"
	OrderRating          = "rating"
)

// Unlimited disables a download limit.
const Unlimited = -1

// Compiled-in defaults, applied when neither the subscription nor the user
// settings carry an override.
const (
	defaultMarkDeletedAsWatched = true
	defaultDeleteWatched        = false
	defaultAutoDownload         = true
	defaultGlobalLimit          = Unlimited
	defaultSubscriptionLimit    = 5
	defaultDownloadOrder        = OrderPlaylist
	defaultDownloadPath         = "downloads"
	defaultFilePattern          = "${channel}/${playlist}/${playlist_index} - ${title} [${id}]"
	defaultDownloadFormat       = "bestvideo+bestaudio/best"
	defaultSubtitles            = true
	defaultAutogenSubtitles     = false
	defaultSubtitlesAll         = false
	defaultSubtitlesLangs       = "en"
	defaultSubtitlesFormat      = "srt/ass/best"
)

// Policy is the effective download policy after three-tier resolution:
// subscription override, then user setting, then compiled-in default.
type Policy struct {
	MarkDeletedAsWatched bool
	DeleteWatched        bool
	AutoDownload         bool
	GlobalLimit          int
	SubscriptionLimit    int
	DownloadOrder        string
	DownloadPath         string
	FilePattern          string
	DownloadFormat       string
	Subtitles            bool
	AutogenSubtitles     bool
	SubtitlesAll         bool
	SubtitlesLangs       string
	SubtitlesFormat      string
}

// ResolvePolicy computes the effective policy for a subscription. Pure: it
// reads its inputs and touches nothing else. Either argument may be nil,
// which means "no overrides at that tier". Keys without a subscription-level
// equivalent (path, pattern, format, subtitles) resolve user setting then
// default.
func ResolvePolicy(us *models.UserSettings, sub *models.Subscription) Policy {
	p := Policy{
		MarkDeletedAsWatched: defaultMarkDeletedAsWatched,
		DeleteWatched:        defaultDeleteWatched,
		AutoDownload:         defaultAutoDownload,
		GlobalLimit:          defaultGlobalLimit,
		SubscriptionLimit:    defaultSubscriptionLimit,
		DownloadOrder:        defaultDownloadOrder,
		DownloadPath:         defaultDownloadPath,
		FilePattern:          defaultFilePattern,
		DownloadFormat:       defaultDownloadFormat,
		Subtitles:            defaultSubtitles,
		AutogenSubtitles:     defaultAutogenSubtitles,
		SubtitlesAll:         defaultSubtitlesAll,
		SubtitlesLangs:       defaultSubtitlesLangs,
		SubtitlesFormat:      defaultSubtitlesFormat,
	}

	if us != nil {
		applyBool(&p.MarkDeletedAsWatched, us.MarkDeletedAsWatched)
		applyBool(&p.DeleteWatched, us.DeleteWatched)
		applyBool(&p.AutoDownload, us.AutoDownload)
		applyInt(&p.GlobalLimit, us.DownloadGlobalLimit)
		applyInt(&p.SubscriptionLimit, us.DownloadSubscriptionLimit)
		applyString(&p.DownloadOrder, us.DownloadOrder)
		applyString(&p.DownloadPath, us.DownloadPath)
		applyString(&p.FilePattern, us.DownloadFilePattern)
		applyString(&p.DownloadFormat, us.DownloadFormat)
		applyBool(&p.Subtitles, us.DownloadSubtitles)
		applyBool(&p.AutogenSubtitles, us.DownloadAutogenSubtitles)
		applyBool(&p.SubtitlesAll, us.DownloadSubtitlesAll)
		applyString(&p.SubtitlesLangs, us.DownloadSubtitlesLangs)
		applyString(&p.SubtitlesFormat, us.DownloadSubtitlesFormat)
	}

	if sub != nil {
		applyBool(&p.AutoDownload, sub.AutoDownload)
		applyInt(&p.SubscriptionLimit, sub.DownloadLimit)
		applyString(&p.DownloadOrder, sub.DownloadOrder)
		applyBool(&p.DeleteWatched, sub.DeleteAfterWatched)
	}

	return p
}

// ValidDownloadOrder reports whether order is one of the supported values.
func ValidDownloadOrder(order string) bool {
	switch order {
	case OrderNewest, OrderOldest, OrderPlaylist, OrderPlaylistReverse, OrderPopularity, OrderRating:
		return true
	}
	return false
}

func applyBool(dst *bool, override *bool) {
	if override != nil {
		*dst = *override
	}
}

func applyInt(dst *int, override *int) {
	if override != nil {
		*dst = *override
	}
}

func applyString(dst *string, override *string) {
	if override != nil {
		*dst = *override
	}
}
