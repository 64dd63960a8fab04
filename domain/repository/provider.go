package repository

import (
	"context"

	"social-scheduler/domain/model"
)

// IProviderClient talks to one social provider. PKCE support is advertised through
// Capabilities rather than a separate type.
type IProviderClient interface {
	Provider() model.ProviderID
	Capabilities() model.ProviderCapabilities
	BuildAuthorizationURL(ctx context.Context, ownerID string) (*model.AuthorizationRequest, error)
	ExchangeCode(ctx context.Context, code, state string) (*model.ProviderGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (*model.ProviderGrant, error)
	ValidateToken(ctx context.Context, accessToken string) model.TokenValidation
	Publish(ctx context.Context, accessToken, content string) model.PublishOutcome
}
