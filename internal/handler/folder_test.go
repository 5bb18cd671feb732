package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/service"
)

type folderFixture struct {
	folders *stubFolderRepo
	subs    *stubSubscriptionRepo
	router  *gin.Engine
	user    *models.User
}

func newFolderFixture() *folderFixture {
	folders := newStubFolderRepo()
	subs := newStubSubscriptionRepo()
	hierarchy := service.NewHierarchyService(folders, subs)
	h := NewFolderHandler(folders, hierarchy)

	user := &models.User{ID: 1, Username: "alice"}

	router := gin.New()
	router.Use(withUser(user))
	router.POST("/folders", h.Create)
	router.GET("/folders/tree", h.Tree)
	router.PUT("/folders/:id", h.Update)
	router.DELETE("/folders/:id", h.Delete)

	return &folderFixture{folders: folders, subs: subs, router: router, user: user}
}

func (f *folderFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *folderFixture) addFolder(t *testing.T, parentID *int64, name string) *models.SubscriptionFolder {
	t.Helper()
	folder := models.NewSubscriptionFolder(f.user.ID, parentID, name)
	require.NoError(t, f.folders.Create(context.Background(), folder))
	return folder
}

func TestFolderHandler_Create(t *testing.T) {
	t.Run("creates root folder", func(t *testing.T) {
		f := newFolderFixture()

		w := f.do("POST", "/folders", gin.H{"name": "tech"})

		require.Equal(t, http.StatusCreated, w.Code)
		var folder models.SubscriptionFolder
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &folder))
		assert.Equal(t, "tech", folder.Name)
		assert.Nil(t, folder.ParentID)
	})

	t.Run("creates nested folder", func(t *testing.T) {
		f := newFolderFixture()
		parent := f.addFolder(t, nil, "tech")

		w := f.do("POST", "/folders", gin.H{"name": "linux", "parent_id": parent.ID})

		require.Equal(t, http.StatusCreated, w.Code)
		var folder models.SubscriptionFolder
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &folder))
		require.NotNil(t, folder.ParentID)
		assert.Equal(t, parent.ID, *folder.ParentID)
	})

	t.Run("missing name", func(t *testing.T) {
		f := newFolderFixture()
		w := f.do("POST", "/folders", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown parent", func(t *testing.T) {
		f := newFolderFixture()
		w := f.do("POST", "/folders", gin.H{"name": "x", "parent_id": 999})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFolderHandler_Tree(t *testing.T) {
	f := newFolderFixture()
	ctx := context.Background()

	tech := f.addFolder(t, nil, "tech")
	linux := f.addFolder(t, int64Ref(tech.ID), "linux")

	rootSub := models.NewSubscription(f.user.ID, 1, "PL-root")
	rootSub.Name = "at root"
	require.NoError(t, f.subs.Create(ctx, rootSub))

	nestedSub := models.NewSubscription(f.user.ID, 1, "PL-nested")
	nestedSub.Name = "in linux"
	nestedSub.FolderID = &linux.ID
	require.NoError(t, f.subs.Create(ctx, nestedSub))

	w := f.do("GET", "/folders/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Folders       []*TreeFolder          `json:"folders"`
		Subscriptions []*models.Subscription `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Subscriptions, 1)
	assert.Equal(t, "at root", resp.Subscriptions[0].Name)

	require.Len(t, resp.Folders, 1)
	assert.Equal(t, "tech", resp.Folders[0].Name)
	require.Len(t, resp.Folders[0].Folders, 1)

	nested := resp.Folders[0].Folders[0]
	assert.Equal(t, "linux", nested.Name)
	require.Len(t, nested.Subscriptions, 1)
	assert.Equal(t, "in linux", nested.Subscriptions[0].Name)
}

func TestFolderHandler_Update(t *testing.T) {
	t.Run("renames and moves", func(t *testing.T) {
		f := newFolderFixture()
		a := f.addFolder(t, nil, "a")
		b := f.addFolder(t, nil, "b")

		w := f.do("PUT", "/folders/2", gin.H{"name": "renamed", "parent_id": a.ID})
		require.Equal(t, http.StatusOK, w.Code)

		stored, err := f.folders.GetByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", stored.Name)
		require.NotNil(t, stored.ParentID)
		assert.Equal(t, a.ID, *stored.ParentID)
	})

	t.Run("rejects move under own descendant", func(t *testing.T) {
		f := newFolderFixture()
		top := f.addFolder(t, nil, "top")
		f.addFolder(t, int64Ref(top.ID), "inner")

		w := f.do("PUT", "/folders/1", gin.H{"name": "top", "parent_id": 2})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects being own parent", func(t *testing.T) {
		f := newFolderFixture()
		f.addFolder(t, nil, "top")

		w := f.do("PUT", "/folders/1", gin.H{"name": "top", "parent_id": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other user's folder looks missing", func(t *testing.T) {
		f := newFolderFixture()
		foreign := models.NewSubscriptionFolder(2, nil, "foreign")
		require.NoError(t, f.folders.Create(context.Background(), foreign))

		w := f.do("PUT", "/folders/1", gin.H{"name": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFolderHandler_Delete(t *testing.T) {
	t.Run("cascade", func(t *testing.T) {
		f := newFolderFixture()
		ctx := context.Background()
		top := f.addFolder(t, nil, "top")

		sub := models.NewSubscription(f.user.ID, 1, "PL-1")
		sub.FolderID = &top.ID
		require.NoError(t, f.subs.Create(ctx, sub))

		w := f.do("DELETE", "/folders/1", nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		_, err := f.folders.GetByID(ctx, top.ID)
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("keep subscriptions", func(t *testing.T) {
		f := newFolderFixture()
		ctx := context.Background()
		top := f.addFolder(t, nil, "top")

		sub := models.NewSubscription(f.user.ID, 1, "PL-1")
		sub.FolderID = &top.ID
		require.NoError(t, f.subs.Create(ctx, sub))

		w := f.do("DELETE", "/folders/1?keep_subscriptions=true", nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		stored, err := f.subs.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.FolderID)
	})

	t.Run("missing folder", func(t *testing.T) {
		f := newFolderFixture()
		w := f.do("DELETE", "/folders/42", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func int64Ref(v int64) *int64 { return &v }
