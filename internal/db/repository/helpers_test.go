package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

var userSeq int

// createTestUser inserts a user row and returns it. Usernames are made
// unique per call so multiple users can coexist in one subtest.
func createTestUser(t *testing.T, pool *pgxpool.Pool) *models.User {
	t.Helper()
	userSeq++

	user := &models.User{
		Username: fmt.Sprintf("user%d", userSeq),
		APIKey:   fmt.Sprintf("key-%d", userSeq),
	}

	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (username, api_key) VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, user.Username, user.APIKey).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	require.NoError(t, err)

	return user
}

func createTestChannel(t *testing.T, repo ChannelRepository, externalID string) *models.Channel {
	t.Helper()

	channel := models.NewChannel(externalID, "Channel "+externalID, "", "", "", "UU"+externalID[2:])
	require.NoError(t, repo.Create(context.Background(), channel))
	return channel
}

func createTestSubscription(t *testing.T, repo SubscriptionRepository, userID, channelID int64, playlistID string) *models.Subscription {
	t.Helper()

	sub := models.NewSubscription(userID, channelID, playlistID)
	sub.Name = "Subscription " + playlistID
	require.NoError(t, repo.Create(context.Background(), sub))
	return sub
}

func createTestVideo(t *testing.T, repo VideoRepository, subscriptionID int64, videoID string, index int) *models.Video {
	t.Helper()

	now := time.Now()
	video := &models.Video{
		SubscriptionID: subscriptionID,
		VideoID:        videoID,
		Name:           "Video " + videoID,
		PlaylistIndex:  index,
		PublishDate:    now,
		Rating:         0.5,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, repo.Create(context.Background(), video))
	return video
}
