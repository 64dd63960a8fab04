package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 15 * time.Second

// Options configures one provider client. Empty endpoint fields fall back to the
// provider's public endpoints.
type Options struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	Scopes        []string
	AuthURL       string
	TokenURL      string
	APIBaseURL    string
	RatePerMinute int
	HTTPTimeout   time.Duration
}

type idGenerator interface {
	GenerateID() string
}

// oauthFlow holds the authorization-code flow shared by every provider. Providers
// embed it and add their own ValidateToken and Publish.
type oauthFlow struct {
	provider   model.ProviderID
	caps       model.ProviderCapabilities
	conf       *oauth2.Config
	verifiers  repository.IVerifierStore
	ids        idGenerator
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

func newOAuthFlow(provider model.ProviderID, caps model.ProviderCapabilities, opts Options, endpoint oauth2.Endpoint, defaultScopes []string, verifiers repository.IVerifierStore, ids idGenerator) *oauthFlow {
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(float64(opts.RatePerMinute) / 60)
		burst = max(1, opts.RatePerMinute/10)
	}
	return &oauthFlow{
		provider: provider,
		caps:     caps,
		conf: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		verifiers:  verifiers,
		ids:        ids,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		now:        time.Now,
	}
}

func (f *oauthFlow) Provider() model.ProviderID { return f.provider }

func (f *oauthFlow) Capabilities() model.ProviderCapabilities { return f.caps }

// BuildAuthorizationURL registers a new pending flow and returns the provider consent URL.
// The state is <provider>_<ownerId>_<epochMillis>_<128 random bits>.
func (f *oauthFlow) BuildAuthorizationURL(ctx context.Context, ownerID string) (*model.AuthorizationRequest, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", model.ErrInvalidState)
	}
	state := fmt.Sprintf("%s_%s_%d_%s", f.provider, ownerID, f.now().UnixMilli(), f.ids.GenerateID())

	var verifier string
	var opts []oauth2.AuthCodeOption
	if f.caps.PKCE {
		verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	if err := f.verifiers.Put(ctx, state, ownerID, f.provider, verifier); err != nil {
		return nil, err
	}
	return &model.AuthorizationRequest{
		URL:          f.conf.AuthCodeURL(state, opts...),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

// ExchangeCode consumes the pending flow for state and trades code for tokens.
func (f *oauthFlow) ExchangeCode(ctx context.Context, code, state string) (*model.ProviderGrant, error) {
	pending, err := f.verifiers.Take(ctx, state)
	if errors.Is(err, model.ErrVerifierNotFound) {
		return nil, fmt.Errorf("%w: unknown, expired or already used", model.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}
	if pending.ProviderID != f.provider {
		return nil, fmt.Errorf("%w: issued for %s", model.ErrInvalidState, pending.ProviderID)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", model.ErrTokenExchange)
	}

	var opts []oauth2.AuthCodeOption
	if f.caps.PKCE {
		opts = append(opts, oauth2.VerifierOption(pending.CodeVerifier))
	}
	tok, err := f.conf.Exchange(f.clientContext(ctx), code, opts...)
	if err != nil {
		return nil, tokenError(err)
	}
	return f.grant(pending.OwnerID, tok), nil
}

func (f *oauthFlow) RefreshToken(ctx context.Context, refreshToken string) (*model.ProviderGrant, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", model.ErrTokenExchange)
	}
	tok, err := f.conf.TokenSource(f.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, tokenError(err)
	}
	return f.grant("", tok), nil
}

func (f *oauthFlow) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
}

func (f *oauthFlow) grant(ownerID string, tok *oauth2.Token) *model.ProviderGrant {
	g := &model.ProviderGrant{
		OwnerID:      ownerID,
		ProviderID:   f.provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		g.ExpiresAt = &exp
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		g.Scopes = scope
	}
	return g
}

func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		code := re.ErrorCode
		if code == "" && re.Response != nil {
			code = re.Response.Status
		}
		return fmt.Errorf("%w: provider rejected request: %s", model.ErrTokenExchange, code)
	}
	return fmt.Errorf("%w: %v", model.ErrTokenExchange, err)
}

type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

// call performs an authenticated API request. Transport failures come back already
// classified as transient publish errors.
func (f *oauthFlow) call(ctx context.Context, method, endpoint, accessToken string, payload interface{}, extra http.Header) (*apiResponse, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", model.ErrTransientPublish, err)
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", model.ErrTerminalPublish, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrTerminalPublish, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		logger.GetLogger().WithField("provider", f.provider).WithField("error", err).Warn("provider request failed")
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyTransport(err)
	}
	return &apiResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}
