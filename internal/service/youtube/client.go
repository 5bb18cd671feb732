// Package youtube implements the video source on the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/ytsm/subscription-manager-go/internal/service"
)

const pageSize = 50

// Client wraps the YouTube Data API v3 client and implements
// service.VideoSource.
type Client struct {
	service *yt.Service
}

// NewClient creates a new YouTube API client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{service: svc}, nil
}

// GetPlaylist returns the playlist items in playlist order, enriched with a
// per-video view/rating snapshot.
func (c *Client) GetPlaylist(ctx context.Context, playlistID string) ([]service.PlaylistItem, error) {
	var items []service.PlaylistItem
	pageToken := ""

	for {
		call := c.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, mapError(err)
		}

		for _, entry := range response.Items {
			if entry.Snippet == nil {
				continue
			}

			item := service.PlaylistItem{
				VideoID:     entry.Snippet.ResourceId.VideoId,
				Title:       entry.Snippet.Title,
				Description: entry.Snippet.Description,
				Position:    int(entry.Snippet.Position),
				Uploader:    entry.Snippet.VideoOwnerChannelTitle,
				Rating:      0.5,
			}
			item.IconDefault, item.IconBest = pickThumbnails(entry.Snippet.Thumbnails)
			if t, err := time.Parse(time.RFC3339, entry.Snippet.PublishedAt); err == nil {
				item.PublishDate = t
			}

			items = append(items, item)
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if err := c.attachStatistics(ctx, items); err != nil {
		return nil, err
	}

	return items, nil
}

// ResolveChannelByID looks up a channel by its external id.
func (c *Client) ResolveChannelByID(ctx context.Context, channelID string) (*service.ChannelInfo, error) {
	call := c.service.Channels.List([]string{"snippet", "contentDetails"}).
		Id(channelID).
		Context(ctx)

	return c.resolveChannel(call)
}

// ResolveChannelByUsername looks up a channel by its legacy username.
func (c *Client) ResolveChannelByUsername(ctx context.Context, username string) (*service.ChannelInfo, error) {
	call := c.service.Channels.List([]string{"snippet", "contentDetails"}).
		ForUsername(username).
		Context(ctx)

	info, err := c.resolveChannel(call)
	if err != nil {
		return nil, err
	}

	info.Username = username
	return info, nil
}

// SearchChannelByCustomURL resolves a custom URL or handle to a channel id
// via a channel search.
func (c *Client) SearchChannelByCustomURL(ctx context.Context, customURL string) (string, error) {
	response, err := c.service.Search.List([]string{"snippet"}).
		Q(customURL).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", mapError(err)
	}

	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return "", service.ErrNotFound
	}

	return response.Items[0].Snippet.ChannelId, nil
}

// ResolvePlaylist looks up playlist metadata by id.
func (c *Client) ResolvePlaylist(ctx context.Context, playlistID string) (*service.PlaylistInfo, error) {
	response, err := c.service.Playlists.List([]string{"snippet"}).
		Id(playlistID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(err)
	}

	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return nil, service.ErrNotFound
	}

	item := response.Items[0]
	info := &service.PlaylistInfo{
		PlaylistID:  item.Id,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		ChannelID:   item.Snippet.ChannelId,
	}
	info.IconDefault, info.IconBest = pickThumbnails(item.Snippet.Thumbnails)

	return info, nil
}

func (c *Client) resolveChannel(call *yt.ChannelsListCall) (*service.ChannelInfo, error) {
	response, err := call.Do()
	if err != nil {
		return nil, mapError(err)
	}

	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return nil, service.ErrNotFound
	}

	channel := response.Items[0]
	info := &service.ChannelInfo{
		ChannelID:   channel.Id,
		CustomURL:   channel.Snippet.CustomUrl,
		Title:       channel.Snippet.Title,
		Description: channel.Snippet.Description,
	}
	info.IconDefault, info.IconBest = pickThumbnails(channel.Snippet.Thumbnails)

	if channel.ContentDetails != nil && channel.ContentDetails.RelatedPlaylists != nil {
		info.UploadPlaylistID = channel.ContentDetails.RelatedPlaylists.Uploads
	}

	return info, nil
}

// attachStatistics fills the view/rating snapshot, batching videos.list
// calls at the API's 50-id maximum.
func (c *Client) attachStatistics(ctx context.Context, items []service.PlaylistItem) error {
	byID := make(map[string]int, len(items))
	ids := make([]string, 0, len(items))
	for i, item := range items {
		byID[item.VideoID] = i
		ids = append(ids, item.VideoID)
	}

	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))

		response, err := c.service.Videos.List([]string{"statistics"}).
			Id(ids[start:end]...).
			Context(ctx).
			Do()
		if err != nil {
			return mapError(err)
		}

		for _, video := range response.Items {
			if video.Statistics == nil {
				continue
			}
			idx, ok := byID[video.Id]
			if !ok {
				continue
			}

			items[idx].Views = int64(video.Statistics.ViewCount)
			likes := video.Statistics.LikeCount
			dislikes := video.Statistics.DislikeCount
			if likes+dislikes > 0 {
				items[idx].Rating = float64(likes) / float64(likes+dislikes)
			}
		}
	}

	return nil
}

// pickThumbnails returns the default and the best available thumbnail URLs.
func pickThumbnails(t *yt.ThumbnailDetails) (string, string) {
	if t == nil {
		return "", ""
	}

	def := ""
	if t.Default != nil {
		def = t.Default.Url
	}

	best := def
	for _, candidate := range []*yt.Thumbnail{t.Medium, t.High, t.Standard, t.Maxres} {
		if candidate != nil {
			best = candidate.Url
		}
	}

	return def, best
}

// mapError maps YouTube API failures onto the engine's error taxonomy.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 404:
			return fmt.Errorf("%w: %s", service.ErrNotFound, apiErr.Message)
		case apiErr.Code == 403 && isQuotaError(apiErr):
			return fmt.Errorf("%w: %s", service.ErrRateLimited, apiErr.Message)
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %s", service.ErrRateLimited, apiErr.Message)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %s", service.ErrTransientNetwork, apiErr.Message)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", service.ErrTransientNetwork, err)
	}

	return err
}

func isQuotaError(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		if strings.Contains(item.Reason, "quota") || strings.Contains(item.Reason, "rateLimit") {
			return true
		}
	}
	return false
}
