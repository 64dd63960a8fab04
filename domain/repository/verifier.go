package repository

import (
	"context"
	"time"

	"social-scheduler/domain/model"
)

// IVerifierStore holds pending OAuth flows keyed by state. Take is consume-once.
type IVerifierStore interface {
	Put(ctx context.Context, state, ownerID string, provider model.ProviderID, codeVerifier string) error
	Take(ctx context.Context, state string) (*model.PendingVerifier, error)
	SweepExpired(ctx context.Context, now time.Time, maxAge time.Duration) (int, error)
}
