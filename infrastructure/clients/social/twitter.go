package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

const (
	twitterAuthURL   = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL  = "https://api.twitter.com/2/oauth2/token"
	twitterAPIBase   = "https://api.twitter.com"
	twitterMaxLength = 280
)

var twitterScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

// TwitterClient links X/Twitter accounts with PKCE and posts through the v2 API.
type TwitterClient struct {
	*oauthFlow
	apiBase string
}

func NewTwitterClient(opts Options, verifiers repository.IVerifierStore, ids idGenerator) *TwitterClient {
	caps := model.ProviderCapabilities{PKCE: true, Refresh: true, MaxContentLength: twitterMaxLength}
	endpoint := oauth2.Endpoint{AuthURL: twitterAuthURL, TokenURL: twitterTokenURL, AuthStyle: oauth2.AuthStyleInHeader}
	base := opts.APIBaseURL
	if base == "" {
		base = twitterAPIBase
	}
	return &TwitterClient{
		oauthFlow: newOAuthFlow(model.ProviderTwitter, caps, opts, endpoint, twitterScopes, verifiers, ids),
		apiBase:   strings.TrimRight(base, "/"),
	}
}

type twitterUserQuery struct {
	UserFields string `url:"user.fields,omitempty"`
}

type twitterUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

func (c *TwitterClient) ValidateToken(ctx context.Context, accessToken string) model.TokenValidation {
	q, err := query.Values(twitterUserQuery{UserFields: "id,name,username"})
	if err != nil {
		return model.TokenValidation{Err: err}
	}
	resp, err := c.call(ctx, http.MethodGet, c.apiBase+"/2/users/me?"+q.Encode(), accessToken, nil, nil)
	if err != nil {
		return model.TokenValidation{Err: err}
	}
	if resp.status != http.StatusOK {
		return model.TokenValidation{Err: classifyStatus(resp.status, resp.body)}
	}
	var user twitterUserResponse
	if err := json.Unmarshal(resp.body, &user); err != nil {
		return model.TokenValidation{Err: fmt.Errorf("decode profile: %w", err)}
	}
	return model.TokenValidation{
		Valid:   true,
		Profile: &model.ProviderProfile{ID: user.Data.ID, Name: user.Data.Name, Username: user.Data.Username},
	}
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *TwitterClient) Publish(ctx context.Context, accessToken, content string) model.PublishOutcome {
	if err := checkContent(content, twitterMaxLength); err != nil {
		return model.FailedOutcome("", err)
	}
	resp, err := c.call(ctx, http.MethodPost, c.apiBase+"/2/tweets", accessToken, map[string]string{"text": content}, nil)
	if err != nil {
		return model.FailedOutcome("", err)
	}
	if resp.status != http.StatusCreated && resp.status != http.StatusOK {
		return model.FailedOutcome("", classifyStatus(resp.status, resp.body))
	}
	var tweet tweetResponse
	if err := json.Unmarshal(resp.body, &tweet); err != nil || tweet.Data.ID == "" {
		// The tweet exists; failing here would invite a duplicate on reschedule.
		logger.GetLogger().WithField("status", resp.status).Warn("Tweet created but response had no id")
		return model.PublishOutcome{Success: true}
	}
	return model.PublishOutcome{Success: true, PlatformPostID: tweet.Data.ID}
}

var _ repository.IProviderClient = (*TwitterClient)(nil)
