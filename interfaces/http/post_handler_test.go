package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postRouter(owner string, uc *MockPostUsecase) *gin.Engine {
	h := NewPostHandler(uc)
	r := newTestRouter(owner)
	r.POST("/api/posts", h.Create)
	r.GET("/api/posts", h.List)
	r.GET("/api/posts/:id", h.Get)
	r.PUT("/api/posts/:id", h.Update)
	r.POST("/api/posts/:id/schedule", h.Schedule)
	return r
}

func TestPostHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		uc := new(MockPostUsecase)
		req := dto.CreatePostRequest{Provider: "twitter", Content: "hello"}
		uc.On("Create", mock.Anything, "owner-1", req).Return(&model.ScheduledPost{
			ID: "p-1", OwnerID: "owner-1", ProviderID: model.ProviderTwitter, Content: "hello", Status: model.PostStatusDraft,
		}, nil)

		w := serve(postRouter("owner-1", uc), http.MethodPost, "/api/posts", `{"provider":"twitter","content":"hello"}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var post model.ScheduledPost
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
		assert.Equal(t, "p-1", post.ID)
		assert.Equal(t, model.PostStatusDraft, post.Status)
	})

	t.Run("binding_error", func(t *testing.T) {
		uc := new(MockPostUsecase)
		w := serve(postRouter("owner-1", uc), http.MethodPost, "/api/posts", `{"provider":"twitter"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_request")
		uc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("subscription_inactive", func(t *testing.T) {
		uc := new(MockPostUsecase)
		uc.On("Create", mock.Anything, "owner-1", mock.Anything).Return(nil, model.ErrSubscriptionInactive)
		w := serve(postRouter("owner-1", uc), http.MethodPost, "/api/posts",
			`{"provider":"linkedin","content":"hi","scheduled_at":"2030-01-01T00:00:00Z"}`)
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.Contains(t, w.Body.String(), "subscription_inactive")
	})

	t.Run("content_too_long", func(t *testing.T) {
		uc := new(MockPostUsecase)
		uc.On("Create", mock.Anything, "owner-1", mock.Anything).
			Return(nil, fmt.Errorf("%w: content exceeds 280 characters", model.ErrInvalidPost))
		w := serve(postRouter("owner-1", uc), http.MethodPost, "/api/posts", `{"provider":"twitter","content":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "280 characters")
	})

	t.Run("requires_owner", func(t *testing.T) {
		w := serve(postRouter("", new(MockPostUsecase)), http.MethodPost, "/api/posts", `{"provider":"twitter","content":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPostHandler_ListAndGet(t *testing.T) {
	uc := new(MockPostUsecase)
	uc.On("List", mock.Anything, "owner-1").Return([]*model.ScheduledPost{{ID: "p-1"}, {ID: "p-2"}}, nil)
	uc.On("Get", mock.Anything, "owner-1", "p-2").Return(&model.ScheduledPost{ID: "p-2"}, nil)
	uc.On("Get", mock.Anything, "owner-1", "missing").Return(nil, model.ErrPostNotFound)
	r := postRouter("owner-1", uc)

	w := serve(r, http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Posts []model.ScheduledPost `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Posts, 2)

	w = serve(r, http.MethodGet, "/api/posts/p-2", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/posts/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "post_not_found")
}

func TestPostHandler_Update(t *testing.T) {
	uc := new(MockPostUsecase)
	uc.On("Update", mock.Anything, "owner-1", "p-1", dto.UpdatePostRequest{Content: "edited"}).
		Return(nil, model.ErrPostNotEditable)

	w := serve(postRouter("owner-1", uc), http.MethodPut, "/api/posts/p-1", `{"content":"edited"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "post_not_editable")
}

func TestPostHandler_Schedule(t *testing.T) {
	at := time.Date(2030, 5, 1, 9, 30, 0, 0, time.UTC)
	uc := new(MockPostUsecase)
	uc.On("Schedule", mock.Anything, "owner-1", "p-1", mock.MatchedBy(func(got time.Time) bool {
		return got.Equal(at)
	})).Return(&model.ScheduledPost{ID: "p-1", Status: model.PostStatusScheduled, ScheduledAt: at}, nil)

	w := serve(postRouter("owner-1", uc), http.MethodPost, "/api/posts/p-1/schedule", `{"scheduled_at":"2030-05-01T09:30:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var post model.ScheduledPost
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.Equal(t, model.PostStatusScheduled, post.Status)
	uc.AssertExpectations(t)
}
