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

	"golang.org/x/oauth2"
)

const (
	linkedinAuthURL   = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL  = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinAPIBase   = "https://api.linkedin.com"
	linkedinMaxLength = 3000
)

var linkedinScopes = []string{"openid", "profile", "w_member_social"}

// LinkedInClient links LinkedIn members with a plain authorization code and posts
// through the UGC API.
type LinkedInClient struct {
	*oauthFlow
	apiBase string
}

func NewLinkedInClient(opts Options, verifiers repository.IVerifierStore, ids idGenerator) *LinkedInClient {
	caps := model.ProviderCapabilities{PKCE: false, Refresh: true, MaxContentLength: linkedinMaxLength}
	endpoint := oauth2.Endpoint{AuthURL: linkedinAuthURL, TokenURL: linkedinTokenURL, AuthStyle: oauth2.AuthStyleInParams}
	base := opts.APIBaseURL
	if base == "" {
		base = linkedinAPIBase
	}
	return &LinkedInClient{
		oauthFlow: newOAuthFlow(model.ProviderLinkedIn, caps, opts, endpoint, linkedinScopes, verifiers, ids),
		apiBase:   strings.TrimRight(base, "/"),
	}
}

type linkedinUserInfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *LinkedInClient) userInfo(ctx context.Context, accessToken string) (*model.ProviderProfile, error) {
	resp, err := c.call(ctx, http.MethodGet, c.apiBase+"/v2/userinfo", accessToken, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, classifyStatus(resp.status, resp.body)
	}
	var info linkedinUserInfo
	if err := json.Unmarshal(resp.body, &info); err != nil || info.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo response had no subject", model.ErrTerminalPublish)
	}
	return &model.ProviderProfile{ID: info.Sub, Name: info.Name, Username: info.Email}, nil
}

func (c *LinkedInClient) ValidateToken(ctx context.Context, accessToken string) model.TokenValidation {
	profile, err := c.userInfo(ctx, accessToken)
	if err != nil {
		return model.TokenValidation{Err: err}
	}
	return model.TokenValidation{Valid: true, Profile: profile}
}

type ugcPost struct {
	Author          string                 `json:"author"`
	LifecycleState  string                 `json:"lifecycleState"`
	SpecificContent map[string]ugcShare    `json:"specificContent"`
	Visibility      map[string]interface{} `json:"visibility"`
}

type ugcShare struct {
	ShareCommentary    ugcText `json:"shareCommentary"`
	ShareMediaCategory string  `json:"shareMediaCategory"`
}

type ugcText struct {
	Text string `json:"text"`
}

func (c *LinkedInClient) Publish(ctx context.Context, accessToken, content string) model.PublishOutcome {
	if err := checkContent(content, linkedinMaxLength); err != nil {
		return model.FailedOutcome("", err)
	}
	profile, err := c.userInfo(ctx, accessToken)
	if err != nil {
		return model.FailedOutcome("", err)
	}
	post := ugcPost{
		Author:         "urn:li:person:" + profile.ID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]ugcShare{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    ugcText{Text: content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]interface{}{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	header := http.Header{}
	header.Set("X-Restli-Protocol-Version", "2.0.0")
	resp, err := c.call(ctx, http.MethodPost, c.apiBase+"/v2/ugcPosts", accessToken, post, header)
	if err != nil {
		return model.FailedOutcome("", err)
	}
	if resp.status != http.StatusCreated && resp.status != http.StatusOK {
		return model.FailedOutcome("", classifyStatus(resp.status, resp.body))
	}
	id := resp.header.Get("X-RestLi-Id")
	if id == "" {
		var created struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(resp.body, &created)
		id = created.ID
	}
	if id == "" {
		// The post exists; failing here would invite a duplicate on reschedule.
		logger.GetLogger().WithField("status", resp.status).Warn("LinkedIn post created but response had no id")
	}
	return model.PublishOutcome{Success: true, PlatformPostID: id}
}

var _ repository.IProviderClient = (*LinkedInClient)(nil)
