package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
)

type ICredentialUsecase interface {
	Providers() []repository.IProviderClient
	AuthorizationURL(ctx context.Context, provider model.ProviderID, ownerID string) (string, error)
	CompleteLink(ctx context.Context, provider model.ProviderID, code, state string) (*model.ProviderCredential, error)
	Unlink(ctx context.Context, ownerID string, provider model.ProviderID) error
	Connections(ctx context.Context, ownerID string) ([]model.ConnectionStatus, error)
}

type credentialUsecase struct {
	credentials repository.ICredential
	codec       repository.ISecretCodec
	order       []model.ProviderID
	providers   map[model.ProviderID]repository.IProviderClient
	validateFor time.Duration
}

func NewCredentialUsecase(credentials repository.ICredential, codec repository.ISecretCodec, providers ...repository.IProviderClient) ICredentialUsecase {
	u := &credentialUsecase{
		credentials: credentials,
		codec:       codec,
		providers:   make(map[model.ProviderID]repository.IProviderClient, len(providers)),
		validateFor: 5 * time.Second,
	}
	for _, p := range providers {
		u.order = append(u.order, p.Provider())
		u.providers[p.Provider()] = p
	}
	return u
}

func (u *credentialUsecase) Providers() []repository.IProviderClient {
	list := make([]repository.IProviderClient, 0, len(u.order))
	for _, id := range u.order {
		list = append(list, u.providers[id])
	}
	return list
}

func (u *credentialUsecase) client(provider model.ProviderID) (repository.IProviderClient, error) {
	c, ok := u.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedProvider, provider)
	}
	return c, nil
}

func (u *credentialUsecase) AuthorizationURL(ctx context.Context, provider model.ProviderID, ownerID string) (string, error) {
	c, err := u.client(provider)
	if err != nil {
		return "", err
	}
	req, err := c.BuildAuthorizationURL(ctx, ownerID)
	if err != nil {
		return "", err
	}
	logger.GetLogger().WithField("provider", provider).WithField("ownerId", ownerID).Info("Issued authorization URL")
	return req.URL, nil
}

// CompleteLink finishes a link flow. The owner comes from the pending flow bound to
// state, never from the callback request itself.
func (u *credentialUsecase) CompleteLink(ctx context.Context, provider model.ProviderID, code, state string) (*model.ProviderCredential, error) {
	c, err := u.client(provider)
	if err != nil {
		return nil, err
	}
	grant, err := c.ExchangeCode(ctx, code, state)
	if err != nil {
		return nil, err
	}
	if grant.AccessToken == "" {
		return nil, fmt.Errorf("%w: provider returned no access token", model.ErrTokenExchange)
	}

	cred := &model.ProviderCredential{
		OwnerID:    grant.OwnerID,
		ProviderID: provider,
		ExpiresAt:  grant.ExpiresAt,
		Scopes:     grant.Scopes,
	}

	vctx, cancel := context.WithTimeout(ctx, u.validateFor)
	validation := c.ValidateToken(vctx, grant.AccessToken)
	cancel()
	if validation.Valid && validation.Profile != nil {
		cred.AccountName = accountName(validation.Profile)
	} else if validation.Err != nil {
		logger.GetLogger().WithField("provider", provider).WithField("error", validation.Err).Warn("Token validation after link failed")
	}

	if cred.AccessTokenEncrypted, err = u.codec.Encrypt(grant.AccessToken); err != nil {
		return nil, err
	}
	if grant.RefreshToken != "" {
		if cred.RefreshTokenEncrypted, err = u.codec.Encrypt(grant.RefreshToken); err != nil {
			return nil, err
		}
	}
	if err := u.credentials.Upsert(ctx, cred); err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("provider", provider).WithField("ownerId", cred.OwnerID).Info("Provider account linked")
	return cred, nil
}

func accountName(p *model.ProviderProfile) string {
	switch {
	case p.Username != "":
		return "@" + p.Username
	case p.Name != "":
		return p.Name
	default:
		return p.ID
	}
}

func (u *credentialUsecase) Unlink(ctx context.Context, ownerID string, provider model.ProviderID) error {
	if _, err := u.client(provider); err != nil {
		return err
	}
	return u.credentials.Delete(ctx, ownerID, provider)
}

// Connections reports every configured provider, linked or not.
func (u *credentialUsecase) Connections(ctx context.Context, ownerID string) ([]model.ConnectionStatus, error) {
	creds, err := u.credentials.ListByOwner(ctx, ownerID)
	if err != nil && !errors.Is(err, model.ErrCredentialNotFound) {
		return nil, err
	}
	byProvider := make(map[model.ProviderID]*model.ProviderCredential, len(creds))
	for _, c := range creds {
		byProvider[c.ProviderID] = c
	}
	statuses := make([]model.ConnectionStatus, 0, len(u.order))
	for _, id := range u.order {
		s := model.ConnectionStatus{ProviderID: id}
		if c, ok := byProvider[id]; ok {
			s.Connected = true
			s.AccountName = c.AccountName
			s.ExpiresAt = c.ExpiresAt
			s.NeedsRelink = c.NeedsRelink
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}
