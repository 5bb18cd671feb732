package downloader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/service"
)

func TestExpandPattern(t *testing.T) {
	video := &models.Video{
		VideoID:       "dQw4w9WgXcQ",
		Name:          "Never Gonna Give You Up",
		PlaylistIndex: 4,
		PublishDate:   time.Date(2009, 10, 25, 0, 0, 0, 0, time.UTC),
		UploaderName:  "Rick Astley",
	}
	sub := &models.Subscription{Name: "Official Videos", PlaylistID: "PL0123456789"}
	channel := &models.Channel{ChannelID: "UCabcdefghijklmnopqrstuv", Name: "Rick Astley"}

	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{
			"default pattern",
			"${channel}/${playlist}/${playlist_index} - ${title} [${id}]",
			"Rick Astley/Official Videos/004 - Never Gonna Give You Up [dQw4w9WgXcQ]",
		},
		{"ids", "${channel_id}/${playlist_id}/${id}", "UCabcdefghijklmnopqrstuv/PL0123456789/dQw4w9WgXcQ"},
		{"year", "${year}/${title}", "2009/Never Gonna Give You Up"},
		{"no variables", "plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandPattern(tt.pattern, video, sub, channel))
		})
	}
}

func TestExpandPattern_SanitizesValues(t *testing.T) {
	video := &models.Video{VideoID: "abc_def-123", Name: `Parts: 1/2 <final?>`}
	sub := &models.Subscription{Name: "A|B"}
	channel := &models.Channel{Name: `C:\D`}

	got := expandPattern("${channel}/${playlist}/${title}", video, sub, channel)
	assert.Equal(t, "C__D/A_B/Parts_ 1_2 _final__", got)
}

func TestExpandPattern_ChannelFallsBackToUploader(t *testing.T) {
	video := &models.Video{UploaderName: "Uploader"}
	sub := &models.Subscription{}
	channel := &models.Channel{}

	assert.Equal(t, "Uploader", expandPattern("${channel}", video, sub, channel))
}

func TestSubtitleArgs(t *testing.T) {
	tests := []struct {
		name   string
		policy service.Policy
		want   []string
	}{
		{
			"disabled",
			service.Policy{Subtitles: false},
			nil,
		},
		{
			"default languages",
			service.Policy{Subtitles: true, SubtitlesLangs: "en", SubtitlesFormat: "srt/ass/best"},
			[]string{"--write-subs", "--sub-langs", "en", "--sub-format", "srt/ass/best"},
		},
		{
			"all languages win over list",
			service.Policy{Subtitles: true, SubtitlesAll: true, SubtitlesLangs: "en,de"},
			[]string{"--write-subs", "--sub-langs", "all"},
		},
		{
			"autogenerated",
			service.Policy{Subtitles: true, AutogenSubtitles: true, SubtitlesLangs: "en"},
			[]string{"--write-subs", "--write-auto-subs", "--sub-langs", "en"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subtitleArgs(tt.policy))
		})
	}
}
