package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ytsm/subscription-manager-go/internal/middleware"
)

// Handlers bundles the resource handlers mounted by the router.
type Handlers struct {
	Health        *HealthHandler
	Subscriptions *SubscriptionHandler
	Folders       *FolderHandler
	Videos        *VideoHandler
	Settings      *SettingsHandler
}

// NewRouter builds the gin engine with all routes mounted. Everything under
// /api/v1 requires an API key.
func NewRouter(auth *middleware.APIKeyAuth, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	router.GET("/health", h.Health.LivenessProbe)
	router.GET("/ready", h.Health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(auth.Middleware())
	{
		api.POST("/subscriptions", h.Subscriptions.Create)
		api.GET("/subscriptions", h.Subscriptions.List)
		api.POST("/subscriptions/sync", h.Subscriptions.SyncAll)
		api.GET("/subscriptions/:id", h.Subscriptions.Get)
		api.PUT("/subscriptions/:id", h.Subscriptions.Update)
		api.DELETE("/subscriptions/:id", h.Subscriptions.Delete)
		api.POST("/subscriptions/:id/sync", h.Subscriptions.Sync)
		api.GET("/subscriptions/:id/videos", h.Videos.ListBySubscription)

		api.POST("/folders", h.Folders.Create)
		api.GET("/folders/tree", h.Folders.Tree)
		api.PUT("/folders/:id", h.Folders.Update)
		api.DELETE("/folders/:id", h.Folders.Delete)

		api.POST("/videos/:id/watch", h.Videos.Watch)
		api.DELETE("/videos/:id/watch", h.Videos.Unwatch)
		api.POST("/videos/:id/download", h.Videos.Download)
		api.DELETE("/videos/:id/files", h.Videos.DeleteFiles)
		api.GET("/videos/:id/files", h.Videos.Files)

		api.GET("/settings", h.Settings.Get)
		api.PUT("/settings", h.Settings.Update)
	}

	return router
}
