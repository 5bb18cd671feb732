package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytsm/subscription-manager-go/internal/db/models"
)

type subscriptionFixture struct {
	subs      *stubSubscriptionRepo
	scheduler *stubScheduler
	router    *gin.Engine
	user      *models.User
}

// Resolver and synchronizer stay nil: the endpoints under test only touch
// the repository and the scheduler.
func newSubscriptionFixture() *subscriptionFixture {
	subs := newStubSubscriptionRepo()
	scheduler := &stubScheduler{}
	h := NewSubscriptionHandler(subs, nil, nil, scheduler)

	user := &models.User{ID: 1, Username: "alice"}

	router := gin.New()
	router.Use(withUser(user))
	router.GET("/subscriptions", h.List)
	router.GET("/subscriptions/:id", h.Get)
	router.PUT("/subscriptions/:id", h.Update)
	router.DELETE("/subscriptions/:id", h.Delete)
	router.POST("/subscriptions/:id/sync", h.Sync)

	return &subscriptionFixture{subs: subs, scheduler: scheduler, router: router, user: user}
}

func (f *subscriptionFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
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

func (f *subscriptionFixture) addSubscription(t *testing.T, userID int64, name string) *models.Subscription {
	t.Helper()
	sub := models.NewSubscription(userID, 1, "PL"+name)
	sub.Name = name
	require.NoError(t, f.subs.Create(context.Background(), sub))
	return sub
}

func TestSubscriptionHandler_List(t *testing.T) {
	f := newSubscriptionFixture()
	f.addSubscription(t, f.user.ID, "linux talks")
	f.addSubscription(t, f.user.ID, "cooking")
	f.addSubscription(t, 2, "someone else's")

	w := f.do("GET", "/subscriptions", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Subscriptions []*models.Subscription `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Subscriptions, 2)
	assert.Equal(t, "cooking", resp.Subscriptions[0].Name)
	assert.Equal(t, "linux talks", resp.Subscriptions[1].Name)
}

func TestSubscriptionHandler_Get(t *testing.T) {
	t.Run("returns owned subscription", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, f.user.ID, "linux talks")

		w := f.do("GET", fmt.Sprintf("/subscriptions/%d", sub.ID), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got models.Subscription
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, sub.ID, got.ID)
		assert.Equal(t, "linux talks", got.Name)
	})

	t.Run("another user's subscription reads as missing", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, 2, "not yours")

		w := f.do("GET", fmt.Sprintf("/subscriptions/%d", sub.ID), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newSubscriptionFixture()

		w := f.do("GET", "/subscriptions/99", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newSubscriptionFixture()

		w := f.do("GET", "/subscriptions/abc", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubscriptionHandler_Update(t *testing.T) {
	t.Run("writes name and overrides", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, f.user.ID, "old name")

		w := f.do("PUT", fmt.Sprintf("/subscriptions/%d", sub.ID), gin.H{
			"name":                 "new name",
			"auto_download":        false,
			"download_limit":       10,
			"download_order":       "oldest",
			"delete_after_watched": true,
		})

		require.Equal(t, http.StatusOK, w.Code)
		stored, err := f.subs.GetByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, "new name", stored.Name)
		require.NotNil(t, stored.AutoDownload)
		assert.False(t, *stored.AutoDownload)
		require.NotNil(t, stored.DownloadLimit)
		assert.Equal(t, 10, *stored.DownloadLimit)
		require.NotNil(t, stored.DownloadOrder)
		assert.Equal(t, "oldest", *stored.DownloadOrder)
		require.NotNil(t, stored.DeleteAfterWatched)
		assert.True(t, *stored.DeleteAfterWatched)
	})

	t.Run("absent override fields clear back to inherit", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, f.user.ID, "tuned")
		order := "newest"
		sub.DownloadOrder = &order
		require.NoError(t, f.subs.Update(context.Background(), sub))

		w := f.do("PUT", fmt.Sprintf("/subscriptions/%d", sub.ID), gin.H{"name": "tuned"})

		require.Equal(t, http.StatusOK, w.Code)
		stored, err := f.subs.GetByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.DownloadOrder)
	})

	t.Run("rejects unknown download order", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, f.user.ID, "tuned")

		w := f.do("PUT", fmt.Sprintf("/subscriptions/%d", sub.ID), gin.H{"download_order": "alphabetical"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("another user's subscription reads as missing", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, 2, "not yours")

		w := f.do("PUT", fmt.Sprintf("/subscriptions/%d", sub.ID), gin.H{"name": "hijack"})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSubscriptionHandler_Delete(t *testing.T) {
	t.Run("removes the row", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, f.user.ID, "done with this")

		w := f.do("DELETE", fmt.Sprintf("/subscriptions/%d", sub.ID), nil)

		require.Equal(t, http.StatusNoContent, w.Code)
		_, err := f.subs.GetByID(context.Background(), sub.ID)
		assert.Error(t, err)
	})

	t.Run("another user's subscription reads as missing", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, 2, "not yours")

		w := f.do("DELETE", fmt.Sprintf("/subscriptions/%d", sub.ID), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		_, err := f.subs.GetByID(context.Background(), sub.ID)
		assert.NoError(t, err)
	})
}

func TestSubscriptionHandler_Sync(t *testing.T) {
	t.Run("schedules an out of band pass", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, f.user.ID, "linux talks")

		w := f.do("POST", fmt.Sprintf("/subscriptions/%d/sync", sub.ID), nil)

		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, []int64{sub.ID}, f.scheduler.resyncs)
	})

	t.Run("scheduler failure surfaces as server error", func(t *testing.T) {
		f := newSubscriptionFixture()
		sub := f.addSubscription(t, f.user.ID, "linux talks")
		f.scheduler.err = assert.AnError

		w := f.do("POST", fmt.Sprintf("/subscriptions/%d/sync", sub.ID), nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
