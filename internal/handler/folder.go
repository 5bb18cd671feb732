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

// FolderHandler handles folder CRUD and the tree view.
type FolderHandler struct {
	folders   repository.FolderRepository
	hierarchy *service.HierarchyService
}

// NewFolderHandler creates a new FolderHandler.
func NewFolderHandler(folders repository.FolderRepository, hierarchy *service.HierarchyService) *FolderHandler {
	return &FolderHandler{
		folders:   folders,
		hierarchy: hierarchy,
	}
}

// CreateFolderRequest is the payload for creating a folder.
type CreateFolderRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// UpdateFolderRequest is the payload for renaming or moving a folder.
type UpdateFolderRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID *int64 `json:"parent_id"`
}

// TreeFolder is one folder node of the tree response, children nested.
type TreeFolder struct {
	ID            int64                  `json:"id"`
	Name          string                 `json:"name"`
	Folders       []*TreeFolder          `json:"folders"`
	Subscriptions []*models.Subscription `json:"subscriptions"`
}

// Create creates a folder for the authenticated user.
func (h *FolderHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	folder := models.NewSubscriptionFolder(user.ID, req.ParentID, req.Name)

	if err := h.hierarchy.ValidateParent(c.Request.Context(), folder, req.ParentID); err != nil {
		respondFolderError(c, err, "invalid parent folder")
		return
	}

	if err := h.folders.Create(c.Request.Context(), folder); err != nil {
		logger.Log.Error("failed to create folder", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create folder"})
		return
	}

	c.JSON(http.StatusCreated, folder)
}

// Tree returns the whole folder forest of the authenticated user, folders
// nested and subscriptions attached to their containing folder.
func (h *FolderHandler) Tree(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	root := &TreeFolder{Folders: []*TreeFolder{}, Subscriptions: []*models.Subscription{}}
	nodes := map[int64]*TreeFolder{}

	attach := func(parentID *int64) *TreeFolder {
		if parentID == nil {
			return root
		}
		if node, ok := nodes[*parentID]; ok {
			return node
		}
		return root
	}

	// Breadth-first order guarantees a parent node exists before its
	// children are visited.
	_, err := h.hierarchy.Traverse(c.Request.Context(), user.ID, nil, service.TreeVisitorFuncs{
		Folder: func(folder *models.SubscriptionFolder) interface{} {
			node := &TreeFolder{
				ID:            folder.ID,
				Name:          folder.Name,
				Folders:       []*TreeFolder{},
				Subscriptions: []*models.Subscription{},
			}
			nodes[folder.ID] = node
			parent := attach(folder.ParentID)
			parent.Folders = append(parent.Folders, node)
			return nil
		},
		Subscription: func(sub *models.Subscription) interface{} {
			parent := attach(sub.FolderID)
			parent.Subscriptions = append(parent.Subscriptions, sub)
			return nil
		},
	})
	if err != nil {
		logger.Log.Error("failed to build folder tree", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build folder tree"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"folders":       root.Folders,
		"subscriptions": root.Subscriptions,
	})
}

// Update renames or moves a folder.
func (h *FolderHandler) Update(c *gin.Context) {
	folder, ok := h.loadOwned(c)
	if !ok {
		return
	}

	var req UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.hierarchy.ValidateParent(c.Request.Context(), folder, req.ParentID); err != nil {
		respondFolderError(c, err, "invalid parent folder")
		return
	}

	folder.Name = req.Name
	folder.ParentID = req.ParentID

	if err := h.folders.Update(c.Request.Context(), folder); err != nil {
		logger.Log.Error("failed to update folder", zap.Int64("folder_id", folder.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update folder"})
		return
	}

	c.JSON(http.StatusOK, folder)
}

// Delete removes a folder. With ?keep_subscriptions=true the subscriptions
// under it are moved to the root instead of deleted.
func (h *FolderHandler) Delete(c *gin.Context) {
	folder, ok := h.loadOwned(c)
	if !ok {
		return
	}

	keep, _ := strconv.ParseBool(c.DefaultQuery("keep_subscriptions", "false"))

	if err := h.hierarchy.DeleteFolder(c.Request.Context(), folder, keep); err != nil {
		logger.Log.Error("failed to delete folder", zap.Int64("folder_id", folder.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete folder"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *FolderHandler) loadOwned(c *gin.Context) (*models.SubscriptionFolder, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return nil, false
	}

	folder, err := h.folders.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
			return nil, false
		}
		logger.Log.Error("failed to load folder", zap.Int64("folder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load folder"})
		return nil, false
	}

	if folder.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
		return nil, false
	}

	return folder, true
}

func respondFolderError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "parent folder not found"})
	default:
		logger.Log.Error("folder operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
