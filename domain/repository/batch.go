package repository

import (
	"context"

	"social-scheduler/domain/model"
)

// IBatchPublisher forwards batch results to an external message broker.
type IBatchPublisher interface {
	PublishBatch(ctx context.Context, result model.BatchResult) error
}

type IBatchHistory interface {
	Record(ctx context.Context, result model.BatchResult) error
	Latest(ctx context.Context, limit int) ([]model.BatchResult, error)
}
