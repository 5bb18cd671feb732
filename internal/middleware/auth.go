// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
)

const (
	headerAPIKey = "X-API-Key"
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "

	// userContextKey is where the authenticated user is stored in the
	// request context.
	userContextKey = "user"
)

// APIKeyAuth authenticates requests by API key and resolves the owning
// user.
type APIKeyAuth struct {
	users repository.UserRepository
}

// NewAPIKeyAuth creates a new API key authentication middleware.
func NewAPIKeyAuth(users repository.UserRepository) *APIKeyAuth {
	return &APIKeyAuth{users: users}
}

// Middleware returns a gin middleware that validates the API key and puts
// the authenticated user into the request context. Keys are read from the
// X-API-Key header or an Authorization: Bearer header.
func (a *APIKeyAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		user, err := a.users.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				logger.Log.Warn("unauthorized request",
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
				return
			}

			logger.Log.Error("failed to resolve API key", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}

	user, ok := value.(*models.User)
	return user, ok
}

func extractAPIKey(c *gin.Context) string {
	if apiKey := c.GetHeader(headerAPIKey); apiKey != "" {
		return apiKey
	}

	authHeader := c.GetHeader(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}
