package repository

import (
	"context"
	"time"

	"social-scheduler/domain/model"
)

type ICredential interface {
	Upsert(ctx context.Context, cred *model.ProviderCredential) error
	Get(ctx context.Context, ownerID string, provider model.ProviderID) (*model.ProviderCredential, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.ProviderCredential, error)
	UpdateTokens(ctx context.Context, ownerID string, provider model.ProviderID, accessEnc, refreshEnc string, expiresAt *time.Time) error
	FlagRelink(ctx context.Context, ownerID string, provider model.ProviderID) error
	Delete(ctx context.Context, ownerID string, provider model.ProviderID) error
}

// ISecretCodec protects tokens at rest.
type ISecretCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
	Hash(input string) string
	GenerateID() string
}
