// Package validation provides format checks for YouTube identifiers.
package validation

import "regexp"

var (
	videoIDRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	channelIDRegex  = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	playlistIDRegex = regexp.MustCompile(`^(PL|UU|LL|FL|OL|RD)[a-zA-Z0-9_-]{10,}$`)
)

// IsValidVideoID reports whether s looks like a YouTube video id.
func IsValidVideoID(s string) bool {
	return videoIDRegex.MatchString(s)
}

// IsValidChannelID reports whether s looks like a YouTube channel id.
func IsValidChannelID(s string) bool {
	return channelIDRegex.MatchString(s)
}

// IsValidPlaylistID reports whether s looks like a YouTube playlist id.
func IsValidPlaylistID(s string) bool {
	return playlistIDRegex.MatchString(s)
}
