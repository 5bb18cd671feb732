package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/internal/validation"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
)

// referenceKind classifies what a user-supplied URL points at.
type referenceKind int

const (
	refPlaylist referenceKind = iota
	refChannelID
	refUsername
	refCustomURL
)

// SubscriptionResolver turns user-supplied URLs into canonical subscription
// records, deduplicating channels against existing rows.
type SubscriptionResolver struct {
	channels repository.ChannelRepository
	subs     repository.SubscriptionRepository
	source   VideoSource
}

// NewSubscriptionResolver creates a new SubscriptionResolver.
func NewSubscriptionResolver(
	channels repository.ChannelRepository,
	subs repository.SubscriptionRepository,
	source VideoSource,
) *SubscriptionResolver {
	return &SubscriptionResolver{
		channels: channels,
		subs:     subs,
		source:   source,
	}
}

// ResolveFromURL resolves a channel or playlist URL into a subscription for
// the given user. Re-subscribing to a playlist the user already follows
// updates and returns the existing row instead of duplicating it.
//
// Fails with ErrInvalidReference if the URL cannot be parsed and ErrNotFound
// if the referenced channel/playlist does not exist upstream.
func (r *SubscriptionResolver) ResolveFromURL(ctx context.Context, userID int64, rawURL string) (*models.Subscription, error) {
	kind, id, err := parseSubscriptionURL(rawURL)
	if err != nil {
		return nil, err
	}

	sub := models.NewSubscription(userID, 0, "")

	if kind == refPlaylist {
		info, err := r.source.ResolvePlaylist(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve playlist %q: %w", id, err)
		}

		channel, err := r.getOrCreateChannel(ctx, refChannelID, info.ChannelID)
		if err != nil {
			return nil, err
		}

		sub.ChannelID = channel.ID
		// Keep the playlist's own naming; never collapse a playlist
		// subscription to the channel's uploads metadata.
		sub.PlaylistID = info.PlaylistID
		sub.FillFromPlaylist(info.Title, info.Description, info.IconDefault, info.IconBest)
	} else {
		channel, err := r.getOrCreateChannel(ctx, kind, id)
		if err != nil {
			return nil, err
		}

		sub.ChannelID = channel.ID
		sub.CopyFromChannel(channel)
	}

	existing, err := r.subs.GetByPlaylistID(ctx, userID, sub.PlaylistID)
	switch {
	case err == nil:
		existing.FillFromPlaylist(sub.Name, sub.Description, sub.IconDefault, sub.IconBest)
		if err := r.subs.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("refresh existing subscription: %w", err)
		}
		logger.Log.Info("re-subscribe reused existing subscription",
			zap.Int64("subscription_id", existing.ID),
			zap.String("playlist_id", existing.PlaylistID),
		)
		return existing, nil
	case errors.Is(err, db.ErrNotFound):
		// First subscription to this playlist.
	default:
		return nil, fmt.Errorf("look up existing subscription: %w", err)
	}

	if err := r.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	logger.Log.Info("subscription created",
		zap.Int64("subscription_id", sub.ID),
		zap.String("playlist_id", sub.PlaylistID),
		zap.String("name", sub.Name),
	)

	return sub, nil
}

// getOrCreateChannel finds the channel row matching the given reference,
// creating it from a remote lookup when no local row matches. Every known
// alternate key is tried before a new row is created, so the same external
// channel never produces two rows. The upstream lookup only happens when
// local storage has no match.
func (r *SubscriptionResolver) getOrCreateChannel(ctx context.Context, kind referenceKind, id string) (*models.Channel, error) {
	var (
		channel *models.Channel
		info    *ChannelInfo
		err     error
	)

	switch kind {
	case refChannelID:
		channel, err = r.lookupLocal(ctx, r.channels.GetByChannelID, id)
		if err != nil {
			return nil, err
		}
		if channel == nil {
			info, err = r.source.ResolveChannelByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve channel %q: %w", id, err)
			}
		}

	case refUsername:
		channel, err = r.lookupLocal(ctx, r.channels.GetByUsername, id)
		if err != nil {
			return nil, err
		}
		if channel == nil {
			info, err = r.source.ResolveChannelByUsername(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve username %q: %w", id, err)
			}
			// The channel may already be known under its id even though
			// the username was never recorded.
			channel, err = r.lookupLocal(ctx, r.channels.GetByChannelID, info.ChannelID)
			if err != nil {
				return nil, err
			}
		}

	case refCustomURL:
		channel, err = r.lookupLocal(ctx, r.channels.GetByCustomURL, id)
		if err != nil {
			return nil, err
		}
		if channel == nil {
			channelID, err := r.source.SearchChannelByCustomURL(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve custom url %q: %w", id, err)
			}
			channel, err = r.lookupLocal(ctx, r.channels.GetByChannelID, channelID)
			if err != nil {
				return nil, err
			}
			if channel == nil {
				info, err = r.source.ResolveChannelByID(ctx, channelID)
				if err != nil {
					return nil, fmt.Errorf("resolve channel %q: %w", channelID, err)
				}
			}
		}

	default:
		return nil, ErrInvalidReference
	}

	if info == nil {
		return channel, nil
	}

	if channel == nil {
		channel = models.NewChannel(info.ChannelID, info.Title, info.Description, info.IconDefault, info.IconBest, info.UploadPlaylistID)
	} else {
		channel.Update(info.Title, info.Description, info.IconDefault, info.IconBest, info.UploadPlaylistID)
	}

	if kind == refUsername {
		username := id
		channel.Username = &username
	}
	if info.CustomURL != "" {
		customURL := info.CustomURL
		channel.CustomURL = &customURL
	}

	if channel.ID == 0 {
		if err := r.channels.Create(ctx, channel); err != nil {
			return nil, fmt.Errorf("create channel: %w", err)
		}
	} else {
		if err := r.channels.Update(ctx, channel); err != nil {
			return nil, fmt.Errorf("update channel: %w", err)
		}
	}

	return channel, nil
}

// lookupLocal maps the repository's not-found error to a nil channel so
// callers can distinguish "unknown locally" from real failures.
func (r *SubscriptionResolver) lookupLocal(ctx context.Context, get func(context.Context, string) (*models.Channel, error), key string) (*models.Channel, error) {
	channel, err := get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("look up channel: %w", err)
	}
	return channel, nil
}

// parseSubscriptionURL classifies a user-supplied URL as a playlist or
// channel reference. Supported shapes:
//
//	.../playlist?list=<id>   .../watch?v=...&list=<id>   (playlist)
//	.../channel/<id>                                     (channel by id)
//	.../user/<name>                                      (channel by legacy username)
//	.../c/<name>  or  .../@handle                        (channel by custom URL)
func parseSubscriptionURL(rawURL string) (referenceKind, string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return 0, "", fmt.Errorf("empty URL: %w", ErrInvalidReference)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return 0, "", fmt.Errorf("parse %q: %w", rawURL, ErrInvalidReference)
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != "youtube.com" && host != "m.youtube.com" && host != "music.youtube.com" {
		return 0, "", fmt.Errorf("unsupported host %q: %w", u.Hostname(), ErrInvalidReference)
	}

	if list := u.Query().Get("list"); list != "" {
		if !validation.IsValidPlaylistID(list) {
			return 0, "", fmt.Errorf("malformed playlist id %q: %w", list, ErrInvalidReference)
		}
		return refPlaylist, list, nil
	}

	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return 0, "", fmt.Errorf("no channel or playlist in %q: %w", rawURL, ErrInvalidReference)
	}

	if strings.HasPrefix(segments[0], "@") {
		handle := strings.TrimPrefix(segments[0], "@")
		if handle == "" {
			return 0, "", fmt.Errorf("empty handle in %q: %w", rawURL, ErrInvalidReference)
		}
		return refCustomURL, handle, nil
	}

	if len(segments) < 2 || segments[1] == "" {
		return 0, "", fmt.Errorf("no channel or playlist in %q: %w", rawURL, ErrInvalidReference)
	}

	switch segments[0] {
	case "channel":
		if !validation.IsValidChannelID(segments[1]) {
			return 0, "", fmt.Errorf("malformed channel id %q: %w", segments[1], ErrInvalidReference)
		}
		return refChannelID, segments[1], nil
	case "user":
		return refUsername, segments[1], nil
	case "c":
		return refCustomURL, segments[1], nil
	}

	return 0, "", fmt.Errorf("unrecognized URL %q: %w", rawURL, ErrInvalidReference)
}
