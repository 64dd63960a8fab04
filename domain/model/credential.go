package model

import "time"

// ProviderCredential stores a user's linked provider account. Tokens are kept as
// encryption envelopes and never leave the process in plaintext.
type ProviderCredential struct {
	ID                    int64      `json:"id"`
	OwnerID               string     `json:"owner_id"`
	ProviderID            ProviderID `json:"provider_id"`
	AccessTokenEncrypted  string     `json:"-"`
	RefreshTokenEncrypted string     `json:"-"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	Scopes                string     `json:"scopes"`
	AccountName           string     `json:"account_name,omitempty"`
	NeedsRelink           bool       `json:"needs_relink"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires before now+window.
// Credentials without an expiry never expire.
func (c *ProviderCredential) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(window).Before(*c.ExpiresAt)
}

// ProviderGrant carries plaintext tokens straight from a provider token endpoint.
type ProviderGrant struct {
	OwnerID      string
	ProviderID   ProviderID
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       string
}

// ConnectionStatus is the owner-facing view of a linked account.
type ConnectionStatus struct {
	ProviderID  ProviderID `json:"provider"`
	Connected   bool       `json:"connected"`
	AccountName string     `json:"account_name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	NeedsRelink bool       `json:"needs_relink"`
}

// PendingVerifier correlates an OAuth state with the flow that issued it.
type PendingVerifier struct {
	State        string     `json:"state"`
	OwnerID      string     `json:"ownerId"`
	ProviderID   ProviderID `json:"providerId"`
	CodeVerifier string     `json:"codeVerifier"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// AuthorizationRequest is what a provider client hands back when a link flow starts.
type AuthorizationRequest struct {
	URL          string
	State        string
	CodeVerifier string
}

type ProviderCapabilities struct {
	PKCE             bool
	Refresh          bool
	MaxContentLength int
}

type ProviderProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

// TokenValidation is the result of a lightweight authenticated provider call.
type TokenValidation struct {
	Valid   bool
	Profile *ProviderProfile
	Err     error
}
