package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"time"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockCredentialUsecase struct {
	mock.Mock
}

func (m *MockCredentialUsecase) Providers() []repository.IProviderClient {
	args := m.Called()
	return args.Get(0).([]repository.IProviderClient)
}

func (m *MockCredentialUsecase) AuthorizationURL(ctx context.Context, provider model.ProviderID, ownerID string) (string, error) {
	args := m.Called(ctx, provider, ownerID)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialUsecase) CompleteLink(ctx context.Context, provider model.ProviderID, code, state string) (*model.ProviderCredential, error) {
	args := m.Called(ctx, provider, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderCredential), args.Error(1)
}

func (m *MockCredentialUsecase) Unlink(ctx context.Context, ownerID string, provider model.ProviderID) error {
	return m.Called(ctx, ownerID, provider).Error(0)
}

func (m *MockCredentialUsecase) Connections(ctx context.Context, ownerID string) ([]model.ConnectionStatus, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConnectionStatus), args.Error(1)
}

type MockPostUsecase struct {
	mock.Mock
}

func (m *MockPostUsecase) post(args mock.Arguments) (*model.ScheduledPost, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduledPost), args.Error(1)
}

func (m *MockPostUsecase) Create(ctx context.Context, ownerID string, req dto.CreatePostRequest) (*model.ScheduledPost, error) {
	return m.post(m.Called(ctx, ownerID, req))
}

func (m *MockPostUsecase) List(ctx context.Context, ownerID string) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockPostUsecase) Get(ctx context.Context, ownerID, id string) (*model.ScheduledPost, error) {
	return m.post(m.Called(ctx, ownerID, id))
}

func (m *MockPostUsecase) Update(ctx context.Context, ownerID, id string, req dto.UpdatePostRequest) (*model.ScheduledPost, error) {
	return m.post(m.Called(ctx, ownerID, id, req))
}

func (m *MockPostUsecase) Schedule(ctx context.Context, ownerID, id string, at time.Time) (*model.ScheduledPost, error) {
	return m.post(m.Called(ctx, ownerID, id, at))
}

type MockController struct {
	mock.Mock
}

func (m *MockController) Start() bool     { return m.Called().Bool(0) }
func (m *MockController) Stop() bool      { return m.Called().Bool(0) }
func (m *MockController) IsRunning() bool { return m.Called().Bool(0) }

func (m *MockController) Subscribe(listener usecase.BatchListener) func() {
	m.Called(listener)
	return func() {}
}

func (m *MockController) RunOnce(ctx context.Context) model.BatchResult {
	return m.Called(ctx).Get(0).(model.BatchResult)
}

func (m *MockController) LastBatch() (model.BatchResult, bool) {
	args := m.Called()
	return args.Get(0).(model.BatchResult), args.Bool(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Provider() model.ProviderID {
	return m.Called().Get(0).(model.ProviderID)
}

func (m *MockProvider) Capabilities() model.ProviderCapabilities {
	return m.Called().Get(0).(model.ProviderCapabilities)
}

func (m *MockProvider) BuildAuthorizationURL(ctx context.Context, ownerID string) (*model.AuthorizationRequest, error) {
	panic("not used")
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code, state string) (*model.ProviderGrant, error) {
	panic("not used")
}

func (m *MockProvider) RefreshToken(ctx context.Context, refreshToken string) (*model.ProviderGrant, error) {
	panic("not used")
}

func (m *MockProvider) ValidateToken(ctx context.Context, accessToken string) model.TokenValidation {
	panic("not used")
}

func (m *MockProvider) Publish(ctx context.Context, accessToken, content string) model.PublishOutcome {
	panic("not used")
}

// newTestRouter returns a gin engine that authenticates every request as owner.
func newTestRouter(owner string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if owner != "" {
		r.Use(func(c *gin.Context) {
			c.Set("user_id", owner)
			c.Next()
		})
	}
	return r
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
