package queue

import (
	"encoding/json"
	"fmt"
)

// Task types
const (
	TypeDownloadVideo      = "video:download"
	TypeDeleteVideo        = "video:delete"
	TypeResyncSubscription = "subscription:resync"
	TypeResyncAll          = "subscription:resync_all"
)

// DownloadVideoPayload is the payload for video download tasks
type DownloadVideoPayload struct {
	VideoID        int64  `json:"video_id"`
	SubscriptionID int64  `json:"subscription_id"`
	ExternalID     string `json:"external_id"`
}

// NewDownloadVideoTask creates a new video download task payload
func NewDownloadVideoTask(videoID, subscriptionID int64, externalID string) (*DownloadVideoPayload, error) {
	if videoID == 0 {
		return nil, fmt.Errorf("video ID is required")
	}

	return &DownloadVideoPayload{
		VideoID:        videoID,
		SubscriptionID: subscriptionID,
		ExternalID:     externalID,
	}, nil
}

// Marshal serializes the payload to JSON
func (p *DownloadVideoPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalDownloadVideoPayload deserializes JSON to payload
func UnmarshalDownloadVideoPayload(data []byte) (*DownloadVideoPayload, error) {
	var payload DownloadVideoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}

// DeleteVideoPayload is the payload for video file deletion tasks
type DeleteVideoPayload struct {
	VideoID int64 `json:"video_id"`
}

// NewDeleteVideoTask creates a new video deletion task payload
func NewDeleteVideoTask(videoID int64) (*DeleteVideoPayload, error) {
	if videoID == 0 {
		return nil, fmt.Errorf("video ID is required")
	}

	return &DeleteVideoPayload{VideoID: videoID}, nil
}

// Marshal serializes the payload to JSON
func (p *DeleteVideoPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalDeleteVideoPayload deserializes JSON to payload
func UnmarshalDeleteVideoPayload(data []byte) (*DeleteVideoPayload, error) {
	var payload DeleteVideoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}

// ResyncSubscriptionPayload is the payload for subscription resync tasks
type ResyncSubscriptionPayload struct {
	SubscriptionID int64 `json:"subscription_id"`
}

// NewResyncSubscriptionTask creates a new subscription resync task payload
func NewResyncSubscriptionTask(subscriptionID int64) (*ResyncSubscriptionPayload, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}

	return &ResyncSubscriptionPayload{SubscriptionID: subscriptionID}, nil
}

// Marshal serializes the payload to JSON
func (p *ResyncSubscriptionPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalResyncSubscriptionPayload deserializes JSON to payload
func UnmarshalResyncSubscriptionPayload(data []byte) (*ResyncSubscriptionPayload, error) {
	var payload ResyncSubscriptionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
