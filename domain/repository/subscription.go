package repository

import (
	"context"

	"social-scheduler/domain/model"
)

type ISubscription interface {
	GetByOwner(ctx context.Context, ownerID string) (*model.Subscription, error)
}
