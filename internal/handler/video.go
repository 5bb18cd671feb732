package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/internal/middleware"
	"github.com/ytsm/subscription-manager-go/internal/service"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
)

// VideoHandler handles per-video state transitions and file queries.
type VideoHandler struct {
	videos    repository.VideoRepository
	subs      repository.SubscriptionRepository
	lifecycle *service.LifecycleService
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(
	videos repository.VideoRepository,
	subs repository.SubscriptionRepository,
	lifecycle *service.LifecycleService,
) *VideoHandler {
	return &VideoHandler{
		videos:    videos,
		subs:      subs,
		lifecycle: lifecycle,
	}
}

// ListBySubscription returns the videos of one subscription in playlist
// order.
func (h *VideoHandler) ListBySubscription(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	subID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	sub, err := h.subs.GetByID(c.Request.Context(), subID)
	if err != nil || sub.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	videos, err := h.videos.ListBySubscription(c.Request.Context(), sub.ID)
	if err != nil {
		logger.Log.Error("failed to list videos", zap.Int64("subscription_id", sub.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list videos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// Watch marks a video as watched.
func (h *VideoHandler) Watch(c *gin.Context) {
	video, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.lifecycle.MarkWatched(c.Request.Context(), video); err != nil {
		logger.Log.Error("failed to mark video watched", zap.Int64("video_id", video.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark video watched"})
		return
	}

	c.JSON(http.StatusOK, video)
}

// Unwatch marks a video as not watched.
func (h *VideoHandler) Unwatch(c *gin.Context) {
	video, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.lifecycle.MarkUnwatched(c.Request.Context(), video); err != nil {
		logger.Log.Error("failed to mark video unwatched", zap.Int64("video_id", video.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark video unwatched"})
		return
	}

	c.JSON(http.StatusOK, video)
}

// Download schedules an out-of-band download of the video's files.
func (h *VideoHandler) Download(c *gin.Context) {
	video, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.lifecycle.Download(c.Request.Context(), video); err != nil {
		logger.Log.Error("failed to schedule download", zap.Int64("video_id", video.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule download"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// DeleteFiles schedules removal of the video's downloaded files.
func (h *VideoHandler) DeleteFiles(c *gin.Context) {
	video, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteFiles(c.Request.Context(), video); err != nil {
		logger.Log.Error("failed to schedule file deletion", zap.Int64("video_id", video.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule file deletion"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// Files returns the on-disk files currently belonging to the video.
func (h *VideoHandler) Files(c *gin.Context) {
	video, ok := h.loadOwned(c)
	if !ok {
		return
	}

	files, err := h.lifecycle.GetFiles(video)
	if err != nil {
		logger.Log.Error("failed to list video files", zap.Int64("video_id", video.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list video files"})
		return
	}

	if files == nil {
		files = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// loadOwned loads the video from the :id parameter and verifies its
// subscription belongs to the authenticated user.
func (h *VideoHandler) loadOwned(c *gin.Context) (*models.Video, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return nil, false
	}

	video, err := h.videos.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return nil, false
		}
		logger.Log.Error("failed to load video", zap.Int64("video_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load video"})
		return nil, false
	}

	sub, err := h.subs.GetByID(c.Request.Context(), video.SubscriptionID)
	if err != nil || sub.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return nil, false
	}

	return video, true
}
