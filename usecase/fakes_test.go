package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/infrastructure/secret"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *secret.Codec {
	t.Helper()
	c, err := secret.NewCodec(testEncryptionKey)
	require.NoError(t, err)
	return c
}

// memPosts mirrors the SQL repositories, including the conditional status writes.
type memPosts struct {
	mu       sync.Mutex
	posts    map[string]*model.ScheduledPost
	fetchErr error
	// onWrite runs before every status write.
	onWrite func(id string)
}

func newMemPosts(posts ...*model.ScheduledPost) *memPosts {
	m := &memPosts{posts: make(map[string]*model.ScheduledPost)}
	for _, p := range posts {
		cp := *p
		m.posts[p.ID] = &cp
	}
	return m
}

func (m *memPosts) get(id string) model.ScheduledPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.posts[id]
}

func (m *memPosts) Create(_ context.Context, p *model.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memPosts) GetByID(_ context.Context, id string) (*model.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) ListByOwner(_ context.Context, ownerID string) ([]*model.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.ScheduledPost
	for _, p := range m.posts {
		if p.OwnerID == ownerID {
			cp := *p
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memPosts) FetchDue(_ context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var due []*model.ScheduledPost
	for _, p := range m.posts {
		if p.Due(now) {
			cp := *p
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *memPosts) update(id string, allowed []model.PostStatus, fn func(p *model.ScheduledPost)) error {
	if m.onWrite != nil {
		m.onWrite(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return model.ErrPostNotEditable
	}
	for _, s := range allowed {
		if p.Status == s {
			fn(p)
			return nil
		}
	}
	return model.ErrPostNotEditable
}

var onlyScheduled = []model.PostStatus{model.PostStatusScheduled}

func (m *memPosts) UpdateContent(_ context.Context, post *model.ScheduledPost) error {
	return m.update(post.ID, []model.PostStatus{model.PostStatusDraft, model.PostStatusScheduled}, func(p *model.ScheduledPost) {
		p.Content = post.Content
		p.ScheduledAt = post.ScheduledAt
	})
}

func (m *memPosts) Schedule(_ context.Context, id string, scheduledAt, at time.Time) error {
	return m.update(id, []model.PostStatus{model.PostStatusDraft, model.PostStatusScheduled, model.PostStatusFailed}, func(p *model.ScheduledPost) {
		p.Status = model.PostStatusScheduled
		p.ScheduledAt = scheduledAt
		p.RetryCount = 0
		p.LastError = nil
		p.UpdatedAt = at
	})
}

func (m *memPosts) MarkPublished(_ context.Context, id, platformPostID string, publishedAt time.Time) error {
	return m.update(id, onlyScheduled, func(p *model.ScheduledPost) {
		p.Status = model.PostStatusPublished
		p.PlatformPostID = &platformPostID
		p.PublishedAt = &publishedAt
		p.LastError = nil
	})
}

func (m *memPosts) MarkFailed(_ context.Context, id, lastError string, at time.Time) error {
	return m.update(id, onlyScheduled, func(p *model.ScheduledPost) {
		p.Status = model.PostStatusFailed
		p.LastError = &lastError
		p.UpdatedAt = at
	})
}

func (m *memPosts) MarkRetry(_ context.Context, id string, retryCount int, lastError string, at time.Time) error {
	return m.update(id, onlyScheduled, func(p *model.ScheduledPost) {
		p.RetryCount = retryCount
		p.LastError = &lastError
		p.UpdatedAt = at
	})
}

type memCredentials struct {
	mu      sync.Mutex
	creds   map[string]*model.ProviderCredential
	updates int
}

func newMemCredentials(creds ...*model.ProviderCredential) *memCredentials {
	m := &memCredentials{creds: make(map[string]*model.ProviderCredential)}
	for _, c := range creds {
		cp := *c
		m.creds[credKey(c.OwnerID, c.ProviderID)] = &cp
	}
	return m
}

func credKey(owner string, provider model.ProviderID) string { return owner + "|" + string(provider) }

func (m *memCredentials) get(owner string, provider model.ProviderID) (model.ProviderCredential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(owner, provider)]
	if !ok {
		return model.ProviderCredential{}, false
	}
	return *c, true
}

func (m *memCredentials) Upsert(_ context.Context, c *model.ProviderCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.NeedsRelink = false
	m.creds[credKey(c.OwnerID, c.ProviderID)] = &cp
	return nil
}

func (m *memCredentials) Get(_ context.Context, owner string, provider model.ProviderID) (*model.ProviderCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(owner, provider)]
	if !ok {
		return nil, model.ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCredentials) ListByOwner(_ context.Context, owner string) ([]*model.ProviderCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.ProviderCredential
	for _, c := range m.creds {
		if c.OwnerID == owner {
			cp := *c
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (m *memCredentials) UpdateTokens(_ context.Context, owner string, provider model.ProviderID, accessEnc, refreshEnc string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(owner, provider)]
	if !ok {
		return model.ErrCredentialNotFound
	}
	c.AccessTokenEncrypted = accessEnc
	c.RefreshTokenEncrypted = refreshEnc
	c.ExpiresAt = expiresAt
	m.updates++
	return nil
}

func (m *memCredentials) FlagRelink(_ context.Context, owner string, provider model.ProviderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey(owner, provider)]
	if !ok {
		return model.ErrCredentialNotFound
	}
	c.NeedsRelink = true
	return nil
}

func (m *memCredentials) Delete(_ context.Context, owner string, provider model.ProviderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[credKey(owner, provider)]; !ok {
		return model.ErrCredentialNotFound
	}
	delete(m.creds, credKey(owner, provider))
	return nil
}

type MockProvider struct {
	mock.Mock
	id   model.ProviderID
	caps model.ProviderCapabilities
}

func newMockProvider(id model.ProviderID, maxLen int) *MockProvider {
	return &MockProvider{id: id, caps: model.ProviderCapabilities{PKCE: id == model.ProviderTwitter, Refresh: true, MaxContentLength: maxLen}}
}

func (m *MockProvider) Provider() model.ProviderID               { return m.id }
func (m *MockProvider) Capabilities() model.ProviderCapabilities { return m.caps }

func (m *MockProvider) BuildAuthorizationURL(ctx context.Context, ownerID string) (*model.AuthorizationRequest, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthorizationRequest), args.Error(1)
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code, state string) (*model.ProviderGrant, error) {
	args := m.Called(ctx, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderGrant), args.Error(1)
}

func (m *MockProvider) RefreshToken(ctx context.Context, refreshToken string) (*model.ProviderGrant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderGrant), args.Error(1)
}

func (m *MockProvider) ValidateToken(ctx context.Context, accessToken string) model.TokenValidation {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(model.TokenValidation)
}

func (m *MockProvider) Publish(ctx context.Context, accessToken, content string) model.PublishOutcome {
	args := m.Called(ctx, accessToken, content)
	return args.Get(0).(model.PublishOutcome)
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type tickerRecorder struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (r *tickerRecorder) factory(time.Duration) Ticker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	r.tickers = append(r.tickers, t)
	return t
}

func (r *tickerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickers)
}

func (r *tickerRecorder) last() *fakeTicker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickers[len(r.tickers)-1]
}
