// Package handler provides HTTP request handlers for the API server.
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

// SubscriptionHandler handles subscription CRUD and sync triggering.
type SubscriptionHandler struct {
	subs      repository.SubscriptionRepository
	resolver  *service.SubscriptionResolver
	sync      *service.Synchronizer
	scheduler service.JobScheduler
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(
	subs repository.SubscriptionRepository,
	resolver *service.SubscriptionResolver,
	sync *service.Synchronizer,
	scheduler service.JobScheduler,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subs:      subs,
		resolver:  resolver,
		sync:      sync,
		scheduler: scheduler,
	}
}

// CreateSubscriptionRequest is the payload for subscribing to a URL.
type CreateSubscriptionRequest struct {
	URL      string `json:"url" binding:"required"`
	FolderID *int64 `json:"folder_id,omitempty"`
}

// UpdateSubscriptionRequest is the payload for updating a subscription's
// metadata and policy overrides. Absent fields are left untouched; explicit
// nulls clear an override.
type UpdateSubscriptionRequest struct {
	Name               *string `json:"name,omitempty"`
	FolderID           *int64  `json:"folder_id"`
	AutoDownload       *bool   `json:"auto_download"`
	DownloadLimit      *int    `json:"download_limit"`
	DownloadOrder      *string `json:"download_order"`
	DeleteAfterWatched *bool   `json:"delete_after_watched"`
}

// Create subscribes the authenticated user to a channel or playlist URL.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	sub, err := h.resolver.ResolveFromURL(c.Request.Context(), user.ID, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		default:
			logger.Log.Error("failed to resolve subscription", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve subscription"})
		}
		return
	}

	if req.FolderID != nil {
		sub.FolderID = req.FolderID
		if err := h.subs.Update(c.Request.Context(), sub); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign folder"})
			return
		}
	}

	// First sync happens out of band
	if err := h.scheduler.ScheduleResync(c.Request.Context(), sub.ID); err != nil {
		logger.Log.Warn("failed to schedule initial sync", zap.Int64("subscription_id", sub.ID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, sub)
}

// List returns every subscription of the authenticated user.
func (h *SubscriptionHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	subs, err := h.subs.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		logger.Log.Error("failed to list subscriptions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// Get returns one subscription by id.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Update writes the metadata and policy overrides of a subscription.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.DownloadOrder != nil && *req.DownloadOrder != "" && !service.ValidDownloadOrder(*req.DownloadOrder) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid download order: " + *req.DownloadOrder})
		return
	}

	applyDownloadOverrides(sub, &req)

	if err := h.subs.Update(c.Request.Context(), sub); err != nil {
		logger.Log.Error("failed to update subscription", zap.Int64("subscription_id", sub.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Delete removes a subscription, its videos going with it.
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.subs.Delete(c.Request.Context(), sub.ID); err != nil {
		logger.Log.Error("failed to delete subscription", zap.Int64("subscription_id", sub.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscription"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Sync triggers an immediate out-of-band synchronization of one
// subscription.
func (h *SubscriptionHandler) Sync(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.scheduler.ScheduleResync(c.Request.Context(), sub.ID); err != nil {
		logger.Log.Error("failed to schedule sync", zap.Int64("subscription_id", sub.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// SyncAll triggers an out-of-band synchronization of every subscription of
// the authenticated user.
func (h *SubscriptionHandler) SyncAll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.sync.RequestResyncAll(c.Request.Context(), user.ID); err != nil {
		logger.Log.Error("failed to schedule sync for all subscriptions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// loadOwned loads the subscription from the :id parameter and verifies it
// belongs to the authenticated user.
func (h *SubscriptionHandler) loadOwned(c *gin.Context) (*models.Subscription, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return nil, false
	}

	sub, err := h.subs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return nil, false
		}
		logger.Log.Error("failed to load subscription", zap.Int64("subscription_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return nil, false
	}

	if sub.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return nil, false
	}

	return sub, true
}

func applyDownloadOverrides(sub *models.Subscription, req *UpdateSubscriptionRequest) {
	if req.Name != nil {
		sub.Name = *req.Name
	}
	sub.FolderID = req.FolderID
	sub.AutoDownload = req.AutoDownload
	sub.DownloadLimit = req.DownloadLimit
	sub.DownloadOrder = req.DownloadOrder
	sub.DeleteAfterWatched = req.DeleteAfterWatched
}
