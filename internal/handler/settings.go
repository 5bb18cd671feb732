package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/internal/middleware"
	"github.com/ytsm/subscription-manager-go/internal/service"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
)

// SettingsHandler handles the per-user download policy defaults.
type SettingsHandler struct {
	settings repository.UserSettingsRepository
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings repository.UserSettingsRepository) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// UpdateSettingsRequest is the payload for replacing the user's policy
// overrides. Null or absent fields clear the override so the compiled-in
// default applies again.
type UpdateSettingsRequest struct {
	MarkDeletedAsWatched      *bool   `json:"mark_deleted_as_watched"`
	DeleteWatched             *bool   `json:"delete_watched"`
	AutoDownload              *bool   `json:"auto_download"`
	DownloadGlobalLimit       *int    `json:"download_global_limit"`
	DownloadSubscriptionLimit *int    `json:"download_subscription_limit"`
	DownloadOrder             *string `json:"download_order"`
	DownloadPath              *string `json:"download_path"`
	DownloadFilePattern       *string `json:"download_file_pattern"`
	DownloadFormat            *string `json:"download_format"`
	DownloadSubtitles         *bool   `json:"download_subtitles"`
	DownloadAutogenSubtitles  *bool   `json:"download_autogenerated_subtitles"`
	DownloadSubtitlesAll      *bool   `json:"download_subtitles_all"`
	DownloadSubtitlesLangs    *string `json:"download_subtitles_langs"`
	DownloadSubtitlesFormat   *string `json:"download_subtitles_format"`
}

// Get returns the authenticated user's settings, creating an empty row on
// first access.
func (h *SettingsHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	settings, err := h.settings.GetOrCreate(c.Request.Context(), user.ID)
	if err != nil {
		logger.Log.Error("failed to load user settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// Update replaces the authenticated user's policy overrides.
func (h *SettingsHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.DownloadOrder != nil && *req.DownloadOrder != "" && !service.ValidDownloadOrder(*req.DownloadOrder) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid download order: " + *req.DownloadOrder})
		return
	}

	settings, err := h.settings.GetOrCreate(c.Request.Context(), user.ID)
	if err != nil {
		logger.Log.Error("failed to load user settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	settings.MarkDeletedAsWatched = req.MarkDeletedAsWatched
	settings.DeleteWatched = req.DeleteWatched
	settings.AutoDownload = req.AutoDownload
	settings.DownloadGlobalLimit = req.DownloadGlobalLimit
	settings.DownloadSubscriptionLimit = req.DownloadSubscriptionLimit
	settings.DownloadOrder = req.DownloadOrder
	settings.DownloadPath = req.DownloadPath
	settings.DownloadFilePattern = req.DownloadFilePattern
	settings.DownloadFormat = req.DownloadFormat
	settings.DownloadSubtitles = req.DownloadSubtitles
	settings.DownloadAutogenSubtitles = req.DownloadAutogenSubtitles
	settings.DownloadSubtitlesAll = req.DownloadSubtitlesAll
	settings.DownloadSubtitlesLangs = req.DownloadSubtitlesLangs
	settings.DownloadSubtitlesFormat = req.DownloadSubtitlesFormat

	if err := h.settings.Update(c.Request.Context(), settings); err != nil {
		logger.Log.Error("failed to update user settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}
