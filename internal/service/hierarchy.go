package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/db/repository"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
)

// TreeVisitor receives the nodes of a folder tree during traversal. Folder
// and subscription nodes go to distinct callbacks. A non-nil return value is
// collected into the traversal result, in visitation order.
type TreeVisitor interface {
	VisitFolder(folder *models.SubscriptionFolder) interface{}
	VisitSubscription(sub *models.Subscription) interface{}
}

// TreeVisitorFuncs adapts plain functions to TreeVisitor. Nil functions
// visit nothing and collect nothing.
type TreeVisitorFuncs struct {
	Folder       func(folder *models.SubscriptionFolder) interface{}
	Subscription func(sub *models.Subscription) interface{}
}

func (v TreeVisitorFuncs) VisitFolder(folder *models.SubscriptionFolder) interface{} {
	if v.Folder == nil {
		return nil
	}
	return v.Folder(folder)
}

func (v TreeVisitorFuncs) VisitSubscription(sub *models.Subscription) interface{} {
	if v.Subscription == nil {
		return nil
	}
	return v.Subscription(sub)
}

// HierarchyService manages the folder/subscription tree of a user.
// Traversal is read-only and safe for unrestricted concurrent use.
type HierarchyService struct {
	folders repository.FolderRepository
	subs    repository.SubscriptionRepository
}

// NewHierarchyService creates a new HierarchyService.
func NewHierarchyService(folders repository.FolderRepository, subs repository.SubscriptionRepository) *HierarchyService {
	return &HierarchyService{
		folders: folders,
		subs:    subs,
	}
}

// Traverse walks the subtree rooted at rootID (nil for the whole forest)
// breadth-first: the root folder itself first, then per frontier folder its
// child folders ordered by case-insensitive name, then its directly
// contained subscriptions in the same order. Subscriptions are leaves.
//
// A visited set keyed by folder id guards against cycles: a frontier id
// seen twice is logged and skipped. The data model should make this
// impossible; the guard keeps corrupted data from hanging the traversal.
func (h *HierarchyService) Traverse(ctx context.Context, userID int64, rootID *int64, visitor TreeVisitor) ([]interface{}, error) {
	var collected []interface{}
	collect := func(v interface{}) {
		if v != nil {
			collected = append(collected, v)
		}
	}

	if rootID != nil {
		root, err := h.folders.GetByID(ctx, *rootID)
		if err != nil {
			return nil, fmt.Errorf("traverse root folder: %w", err)
		}
		if root.UserID != userID {
			return nil, fmt.Errorf("traverse root folder: %w", ErrNotFound)
		}
		collect(visitor.VisitFolder(root))
	}

	frontier := []*int64{rootID}
	visited := make(map[int64]bool)

	for len(frontier) > 0 {
		folderID := frontier[0]
		frontier = frontier[1:]

		if folderID != nil {
			if visited[*folderID] {
				logger.Log.Error("folder tree cycle detected, skipping folder",
					zap.Int64("folder_id", *folderID),
					zap.Int64("user_id", userID),
				)
				continue
			}
			visited[*folderID] = true
		}

		children, err := h.folders.ListByParent(ctx, userID, folderID)
		if err != nil {
			return nil, fmt.Errorf("traverse child folders: %w", err)
		}
		for _, child := range children {
			collect(visitor.VisitFolder(child))
			id := child.ID
			frontier = append(frontier, &id)
		}

		subs, err := h.subs.ListByFolder(ctx, userID, folderID)
		if err != nil {
			return nil, fmt.Errorf("traverse subscriptions: %w", err)
		}
		for _, sub := range subs {
			collect(visitor.VisitSubscription(sub))
		}
	}

	return collected, nil
}

// DeleteFolder removes a folder. With keepSubscriptions, every subscription
// transitively under the folder is detached to the forest root before the
// folder row is deleted; descendant folders are still destroyed by cascade,
// only the subscriptions are rescued and flattened. Without it the whole
// subtree, subscriptions included, goes away.
func (h *HierarchyService) DeleteFolder(ctx context.Context, folder *models.SubscriptionFolder, keepSubscriptions bool) error {
	if keepSubscriptions {
		rootID := folder.ID
		collected, err := h.Traverse(ctx, folder.UserID, &rootID, TreeVisitorFuncs{
			Subscription: func(sub *models.Subscription) interface{} {
				return sub.ID
			},
		})
		if err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}

		for _, v := range collected {
			subID := v.(int64)
			if err := h.subs.DetachFromFolder(ctx, subID); err != nil {
				return fmt.Errorf("delete folder: detach subscription %d: %w", subID, err)
			}
		}
	}

	if err := h.folders.Delete(ctx, folder.ID); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	logger.Log.Info("folder deleted",
		zap.Int64("folder_id", folder.ID),
		zap.Bool("kept_subscriptions", keepSubscriptions),
	)

	return nil
}

// ValidateParent checks that parentID is a legal parent for the folder: it
// must exist, belong to the same user, and not be the folder itself or one
// of its descendants. A nil parentID (forest root) is always legal.
func (h *HierarchyService) ValidateParent(ctx context.Context, folder *models.SubscriptionFolder, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if *parentID == folder.ID {
		return fmt.Errorf("%w: folder cannot be its own parent", ErrInvalidReference)
	}

	parent, err := h.folders.GetByID(ctx, *parentID)
	if err != nil {
		return fmt.Errorf("validate parent: %w", err)
	}
	if parent.UserID != folder.UserID {
		return fmt.Errorf("validate parent: %w", ErrNotFound)
	}

	// Walk up from the candidate parent; hitting the folder means the
	// candidate is inside the folder's own subtree.
	seen := map[int64]bool{parent.ID: true}
	current := parent
	for current.ParentID != nil {
		if *current.ParentID == folder.ID {
			return fmt.Errorf("%w: folder cannot be moved under its own descendant", ErrInvalidReference)
		}
		if seen[*current.ParentID] {
			break
		}
		seen[*current.ParentID] = true

		current, err = h.folders.GetByID(ctx, *current.ParentID)
		if err != nil {
			return fmt.Errorf("validate parent: %w", err)
		}
	}

	return nil
}

// FolderPath returns the display name of a folder: the ancestor chain
// joined root-most first with " > ". A cycle in the parent chain is logged
// and breaks the walk instead of spinning.
func (h *HierarchyService) FolderPath(ctx context.Context, folder *models.SubscriptionFolder) (string, error) {
	parts := []string{folder.Name}
	seen := map[int64]bool{folder.ID: true}

	current := folder
	for current.ParentID != nil {
		if seen[*current.ParentID] {
			logger.Log.Error("folder parent chain cycle detected",
				zap.Int64("folder_id", *current.ParentID),
			)
			break
		}

		parent, err := h.folders.GetByID(ctx, *current.ParentID)
		if err != nil {
			return "", fmt.Errorf("folder path: %w", err)
		}
		seen[parent.ID] = true
		parts = append([]string{parent.Name}, parts...)
		current = parent
	}

	return strings.Join(parts, " > "), nil
}
