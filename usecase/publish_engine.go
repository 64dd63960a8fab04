package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/infrastructure/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Ticker is the subset of time.Ticker the engine needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

type EngineConfig struct {
	Interval       time.Duration
	MaxConcurrency int
	MaxRetries     int
	BatchSize      int
	PublishTimeout time.Duration
	RefreshWindow  time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Interval:       60 * time.Second,
		MaxConcurrency: 4,
		MaxRetries:     3,
		BatchSize:      50,
		PublishTimeout: 15 * time.Second,
		RefreshWindow:  5 * time.Minute,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = d.PublishTimeout
	}
	if c.RefreshWindow <= 0 {
		c.RefreshWindow = d.RefreshWindow
	}
	return c
}

// IScheduler is the engine surface the service controller drives.
type IScheduler interface {
	Start() bool
	Stop() bool
	Running() bool
	Tick(ctx context.Context) model.BatchResult
	SetBatchHandler(fn func(model.BatchResult))
}

type EngineOption func(*PublishEngine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *PublishEngine) { e.now = now }
}

func WithTickerFactory(f TickerFactory) EngineOption {
	return func(e *PublishEngine) { e.newTicker = f }
}

func WithPostLocks(l *KeyLock) EngineOption {
	return func(e *PublishEngine) { e.locks = l }
}

// WithBaseContext sets the context every tick runs under. Stop does not cancel it.
func WithBaseContext(ctx context.Context) EngineOption {
	return func(e *PublishEngine) { e.baseCtx = ctx }
}

// PublishEngine publishes due posts on every tick of its ticker.
type PublishEngine struct {
	posts       repository.IScheduledPost
	credentials repository.ICredential
	codec       repository.ISecretCodec
	providers   map[model.ProviderID]repository.IProviderClient

	cfg       EngineConfig
	locks     *KeyLock
	now       func() time.Time
	newTicker TickerFactory
	baseCtx   context.Context

	handlerMu sync.RWMutex
	onBatch   func(model.BatchResult)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	tickMu sync.Mutex
}

func NewPublishEngine(
	posts repository.IScheduledPost,
	credentials repository.ICredential,
	codec repository.ISecretCodec,
	providers []repository.IProviderClient,
	cfg EngineConfig,
	opts ...EngineOption,
) *PublishEngine {
	e := &PublishEngine{
		posts:       posts,
		credentials: credentials,
		codec:       codec,
		providers:   make(map[model.ProviderID]repository.IProviderClient, len(providers)),
		cfg:         cfg.withDefaults(),
		locks:       NewKeyLock(),
		now:         utils.GetCurrentTime,
		newTicker:   newTimeTicker,
		baseCtx:     context.Background(),
	}
	for _, p := range providers {
		e.providers[p.Provider()] = p
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *PublishEngine) Config() EngineConfig { return e.cfg }

func (e *PublishEngine) SetBatchHandler(fn func(model.BatchResult)) {
	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()
	e.onBatch = fn
}

// Start installs the ticker. It returns false when the engine is already running.
func (e *PublishEngine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	ticker := e.newTicker(e.cfg.Interval)
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	e.running = true
	go e.loop(ticker, e.stopCh, e.done)
	logger.GetLogger().WithField("interval", e.cfg.Interval.String()).Info("Publish engine started")
	return true
}

// Stop cancels the ticker and waits for an in-flight tick to finish. It returns
// false when the engine was not running.
func (e *PublishEngine) Stop() bool {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return false
	}
	close(e.stopCh)
	done := e.done
	e.running = false
	e.mu.Unlock()

	<-done
	// A tick started through Tick directly is not tracked by done.
	e.tickMu.Lock()
	e.tickMu.Unlock()
	logger.GetLogger().Info("Publish engine stopped")
	return true
}

func (e *PublishEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *PublishEngine) loop(t Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			select {
			case <-stop:
				return
			default:
			}
			e.Tick(e.baseCtx)
		}
	}
}

// Tick processes every due post once and emits exactly one batch result.
func (e *PublishEngine) Tick(ctx context.Context) model.BatchResult {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	lg := logger.GetLogger()
	now := e.now()
	result := model.BatchResult{ID: uuid.NewString(), Timestamp: now}

	due, err := e.posts.FetchDue(ctx, now, e.cfg.BatchSize)
	if err != nil {
		lg.WithField("error", err).Error("Failed to fetch due posts")
		e.emit(result)
		return result
	}

	outcomes := make([]*model.PublishOutcome, len(due))
	creds := newTickCredentials()
	g := new(errgroup.Group)
	g.SetLimit(e.cfg.MaxConcurrency)
	for i, post := range due {
		g.Go(func() error {
			outcomes[i] = e.processSafely(ctx, creds, post, now)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o != nil {
			result.Add(*o)
		}
	}
	lg.WithFields(map[string]interface{}{
		"batchId":   result.ID,
		"processed": result.ProcessedCount,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"retrying":  result.Retrying,
	}).Info("Batch processed")
	e.emit(result)
	return result
}

func (e *PublishEngine) emit(result model.BatchResult) {
	e.handlerMu.RLock()
	fn := e.onBatch
	e.handlerMu.RUnlock()
	if fn != nil {
		fn(result)
	}
}

// processSafely holds the post lock until the outcome, including one for a
// recovered panic, has been recorded.
func (e *PublishEngine) processSafely(ctx context.Context, creds *tickCredentials, post *model.ScheduledPost, now time.Time) (out *model.PublishOutcome) {
	unlock := e.locks.Lock(post.ID)
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("postId", post.ID).WithField("panic", r).Error("Recovered panic while publishing")
			o := model.FailedOutcome(post.ID, fmt.Errorf("%w: internal error: %v", model.ErrTransientPublish, r))
			o.OwnerID = post.OwnerID
			o = e.record(ctx, post, o, now)
			out = &o
		}
	}()
	return e.process(ctx, creds, post, now)
}

// process expects the post lock to be held and returns nil when the post is no
// longer due.
func (e *PublishEngine) process(ctx context.Context, creds *tickCredentials, due *model.ScheduledPost, now time.Time) *model.PublishOutcome {
	post, err := e.posts.GetByID(ctx, due.ID)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			return nil
		}
		post = due
	}
	if !post.Due(now) {
		return nil
	}

	lg := logger.GetLogger().WithField("postId", post.ID).WithField("provider", post.ProviderID)
	client, ok := e.providers[post.ProviderID]
	if !ok {
		o := e.record(ctx, post, e.failure(post, fmt.Errorf("%w: %s", model.ErrUnsupportedProvider, post.ProviderID)), now)
		return &o
	}

	key := post.OwnerID + "|" + string(post.ProviderID)
	accessToken, err := creds.get(key, func() (string, error) {
		return e.accessToken(ctx, post.OwnerID, client, now)
	})
	if err != nil {
		lg.WithField("error", err).Warn("Credential unavailable, skipping publish")
		o := e.record(ctx, post, e.failure(post, err), now)
		return &o
	}

	pctx, cancel := context.WithTimeout(ctx, e.cfg.PublishTimeout)
	o := client.Publish(pctx, accessToken, post.Content)
	cancel()
	o.PostID = post.ID
	o.OwnerID = post.OwnerID
	o = e.record(ctx, post, o, now)
	return &o
}

func (e *PublishEngine) failure(post *model.ScheduledPost, err error) model.PublishOutcome {
	o := model.FailedOutcome(post.ID, err)
	o.OwnerID = post.OwnerID
	return o
}

// record persists the outcome and returns it, converted to terminal once the retry cap is hit.
func (e *PublishEngine) record(ctx context.Context, post *model.ScheduledPost, o model.PublishOutcome, now time.Time) model.PublishOutcome {
	lg := logger.GetLogger().WithField("postId", post.ID)
	var err error
	switch {
	case o.Success:
		err = e.posts.MarkPublished(ctx, post.ID, o.PlatformPostID, now)
	case o.Retryable():
		attempts := post.RetryCount + 1
		if attempts >= e.cfg.MaxRetries {
			o.Err = fmt.Errorf("%w: retry limit reached: %v", model.ErrTerminalPublish, o.Err)
			o.Error = fmt.Sprintf("retry limit reached after %d attempts: %s", attempts, o.Error)
			err = e.posts.MarkFailed(ctx, post.ID, o.Error, now)
		} else {
			err = e.posts.MarkRetry(ctx, post.ID, attempts, o.Error, now)
		}
	default:
		err = e.posts.MarkFailed(ctx, post.ID, o.Error, now)
	}
	if err != nil {
		lg.WithField("error", err).Error("Failed to record publish outcome")
	}
	return o
}

// accessToken decrypts the stored credential and refreshes it when it expires
// within the refresh window. Refresh failure never falls back to the stale token.
func (e *PublishEngine) accessToken(ctx context.Context, ownerID string, client repository.IProviderClient, now time.Time) (string, error) {
	provider := client.Provider()
	cred, err := e.credentials.Get(ctx, ownerID, provider)
	if err != nil {
		if errors.Is(err, model.ErrCredentialNotFound) {
			return "", fmt.Errorf("%w: no %s account linked", model.ErrCredentialNotFound, provider)
		}
		return "", fmt.Errorf("%w: credential lookup: %v", model.ErrTransientPublish, err)
	}
	if cred.NeedsRelink {
		return "", fmt.Errorf("%w: %s account must be re-linked", model.ErrCredentialExpired, provider)
	}

	access, err := e.codec.Decrypt(cred.AccessTokenEncrypted)
	if err != nil {
		e.flagRelink(ctx, ownerID, provider)
		return "", err
	}
	if !cred.ExpiresWithin(now, e.cfg.RefreshWindow) {
		return access, nil
	}

	if cred.RefreshTokenEncrypted == "" || !client.Capabilities().Refresh {
		return "", fmt.Errorf("%w: access token expired and no refresh token is stored", model.ErrCredentialExpired)
	}
	refresh, err := e.codec.Decrypt(cred.RefreshTokenEncrypted)
	if err != nil {
		e.flagRelink(ctx, ownerID, provider)
		return "", err
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.PublishTimeout)
	grant, err := client.RefreshToken(rctx, refresh)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: refresh failed: %v", model.ErrCredentialExpired, err)
	}

	if err := e.storeRefreshed(ctx, cred, grant); err != nil {
		logger.GetLogger().WithField("error", err).WithField("provider", provider).Error("Failed to persist refreshed credential")
	}
	return grant.AccessToken, nil
}

func (e *PublishEngine) storeRefreshed(ctx context.Context, cred *model.ProviderCredential, grant *model.ProviderGrant) error {
	accessEnc, err := e.codec.Encrypt(grant.AccessToken)
	if err != nil {
		return err
	}
	refreshEnc := cred.RefreshTokenEncrypted
	if grant.RefreshToken != "" {
		if refreshEnc, err = e.codec.Encrypt(grant.RefreshToken); err != nil {
			return err
		}
	}
	return e.credentials.UpdateTokens(ctx, cred.OwnerID, cred.ProviderID, accessEnc, refreshEnc, grant.ExpiresAt)
}

func (e *PublishEngine) flagRelink(ctx context.Context, ownerID string, provider model.ProviderID) {
	if err := e.credentials.FlagRelink(ctx, ownerID, provider); err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to flag credential for re-link")
	}
}

// tickCredentials resolves each owner/provider credential at most once per tick.
type tickCredentials struct {
	group    singleflight.Group
	mu       sync.Mutex
	resolved map[string]credentialResult
}

type credentialResult struct {
	token string
	err   error
}

func newTickCredentials() *tickCredentials {
	return &tickCredentials{resolved: make(map[string]credentialResult)}
}

func (t *tickCredentials) get(key string, load func() (string, error)) (string, error) {
	t.mu.Lock()
	if r, ok := t.resolved[key]; ok {
		t.mu.Unlock()
		return r.token, r.err
	}
	t.mu.Unlock()

	v, err, _ := t.group.Do(key, func() (interface{}, error) {
		token, err := load()
		t.mu.Lock()
		t.resolved[key] = credentialResult{token: token, err: err}
		t.mu.Unlock()
		return token, err
	})
	token, _ := v.(string)
	return token, err
}

var _ IScheduler = (*PublishEngine)(nil)
