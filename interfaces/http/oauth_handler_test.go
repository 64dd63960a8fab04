package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func oauthRouter(owner string, uc *MockCredentialUsecase) *gin.Engine {
	h := NewOAuthHandler(uc)
	r := newTestRouter(owner)
	r.GET("/api/oauth/:provider/authorize", h.Authorize)
	r.GET("/api/oauth/connections", h.Connections)
	r.DELETE("/api/oauth/:provider", h.Unlink)
	r.GET("/auth/:provider/callback", h.Callback)
	return r
}

func decodeCallback(t *testing.T, body []byte) dto.CallbackResponse {
	t.Helper()
	var res dto.CallbackResponse
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func TestOAuthHandler_Authorize(t *testing.T) {
	t.Run("returns_auth_url", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("AuthorizationURL", mock.Anything, model.ProviderTwitter, "owner-1").
			Return("https://twitter.com/i/oauth2/authorize?state=x", nil)

		w := serve(oauthRouter("owner-1", uc), http.MethodGet, "/api/oauth/twitter/authorize", "")
		require.Equal(t, http.StatusOK, w.Code)

		var res dto.AuthURLResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "https://twitter.com/i/oauth2/authorize?state=x", res.AuthURL)
		uc.AssertExpectations(t)
	})

	t.Run("unsupported_provider", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		w := serve(oauthRouter("owner-1", uc), http.MethodGet, "/api/oauth/myspace/authorize", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unsupported_provider")
		uc.AssertNotCalled(t, "AuthorizationURL", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires_owner", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		w := serve(oauthRouter("", uc), http.MethodGet, "/api/oauth/twitter/authorize", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("state_collision", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("AuthorizationURL", mock.Anything, model.ProviderLinkedIn, "owner-1").
			Return("", fmt.Errorf("%w: duplicate", model.ErrStateCollision))
		w := serve(oauthRouter("owner-1", uc), http.MethodGet, "/api/oauth/linkedin/authorize", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "state_collision")
	})
}

func TestOAuthHandler_Callback(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("CompleteLink", mock.Anything, model.ProviderTwitter, "code-1", "twitter_owner-1_1_ab").
			Return(&model.ProviderCredential{OwnerID: "owner-1", ProviderID: model.ProviderTwitter, AccountName: "@jane"}, nil)

		w := serve(oauthRouter("", uc), http.MethodGet, "/auth/twitter/callback?code=code-1&state=twitter_owner-1_1_ab", "")
		require.Equal(t, http.StatusOK, w.Code)
		res := decodeCallback(t, w.Body.Bytes())
		assert.True(t, res.Success)
		assert.Equal(t, "twitter", res.Provider)
		assert.Equal(t, "@jane", res.AccountName)
	})

	t.Run("provider_error_surfaced", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		w := serve(oauthRouter("", uc), http.MethodGet, "/auth/linkedin/callback?error=access_denied&error_description=user+cancelled", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		res := decodeCallback(t, w.Body.Bytes())
		assert.False(t, res.Success)
		assert.Equal(t, "access_denied", res.Error)
		assert.Equal(t, "user cancelled", res.Message)
		uc.AssertNotCalled(t, "CompleteLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing_code", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		w := serve(oauthRouter("", uc), http.MethodGet, "/auth/twitter/callback?state=s", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing_code", decodeCallback(t, w.Body.Bytes()).Error)
	})

	t.Run("missing_state", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		w := serve(oauthRouter("", uc), http.MethodGet, "/auth/twitter/callback?code=c", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_state", decodeCallback(t, w.Body.Bytes()).Error)
	})

	t.Run("invalid_state", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("CompleteLink", mock.Anything, model.ProviderTwitter, "c", "stale").
			Return(nil, fmt.Errorf("%w: verifier expired", model.ErrInvalidState))
		w := serve(oauthRouter("", uc), http.MethodGet, "/auth/twitter/callback?code=c&state=stale", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		res := decodeCallback(t, w.Body.Bytes())
		assert.False(t, res.Success)
		assert.Equal(t, "invalid_state", res.Error)
	})

	t.Run("token_exchange_failed", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("CompleteLink", mock.Anything, model.ProviderLinkedIn, "c", "s").
			Return(nil, fmt.Errorf("%w: invalid_grant", model.ErrTokenExchange))
		w := serve(oauthRouter("", uc), http.MethodGet, "/auth/linkedin/callback?code=c&state=s", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		res := decodeCallback(t, w.Body.Bytes())
		assert.Equal(t, "token_exchange_failed", res.Error)
		assert.Contains(t, res.Message, "invalid_grant")
	})

	t.Run("internal_error_hides_detail", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("CompleteLink", mock.Anything, model.ProviderLinkedIn, "c", "s").
			Return(nil, fmt.Errorf("pq: connection refused at 10.0.0.3"))
		w := serve(oauthRouter("", uc), http.MethodGet, "/auth/linkedin/callback?code=c&state=s", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	})

	t.Run("panic_recovered", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("CompleteLink", mock.Anything, model.ProviderTwitter, "c", "s").Panic("nil map write")

		var w *httptest.ResponseRecorder
		require.NotPanics(t, func() {
			w = serve(oauthRouter("", uc), http.MethodGet, "/auth/twitter/callback?code=c&state=s", "")
		})
		resp := w.Result()
		defer resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var res dto.CallbackResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.False(t, res.Success)
		assert.Equal(t, "internal_error", res.Error)
	})
}

func TestOAuthHandler_Connections(t *testing.T) {
	uc := new(MockCredentialUsecase)
	uc.On("Connections", mock.Anything, "owner-1").Return([]model.ConnectionStatus{
		{ProviderID: model.ProviderTwitter, Connected: true, AccountName: "@jane"},
		{ProviderID: model.ProviderLinkedIn},
	}, nil)

	w := serve(oauthRouter("owner-1", uc), http.MethodGet, "/api/oauth/connections", "")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Connections []model.ConnectionStatus `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Connections, 2)
	assert.True(t, res.Connections[0].Connected)
	assert.NotContains(t, w.Body.String(), "token")
}

func TestOAuthHandler_Unlink(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("Unlink", mock.Anything, "owner-1", model.ProviderLinkedIn).Return(nil)
		w := serve(oauthRouter("owner-1", uc), http.MethodDelete, "/api/oauth/linkedin", "")
		assert.Equal(t, http.StatusOK, w.Code)
		uc.AssertExpectations(t)
	})

	t.Run("not_linked", func(t *testing.T) {
		uc := new(MockCredentialUsecase)
		uc.On("Unlink", mock.Anything, "owner-1", model.ProviderTwitter).Return(model.ErrCredentialNotFound)
		w := serve(oauthRouter("owner-1", uc), http.MethodDelete, "/api/oauth/twitter", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "credential_not_found")
	})
}
