package repository

import (
	"context"
	"time"

	"social-scheduler/domain/model"
)

// IScheduledPost persists scheduled posts. Status writes issued by the engine are
// conditional on the post still being scheduled, so a published post is never touched.
type IScheduledPost interface {
	Create(ctx context.Context, post *model.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*model.ScheduledPost, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.ScheduledPost, error)
	// FetchDue returns scheduled posts with scheduled_at <= now, oldest first.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error)
	UpdateContent(ctx context.Context, post *model.ScheduledPost) error
	Schedule(ctx context.Context, id string, scheduledAt time.Time, at time.Time) error
	MarkPublished(ctx context.Context, id string, platformPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id string, lastError string, at time.Time) error
	MarkRetry(ctx context.Context, id string, retryCount int, lastError string, at time.Time) error
}
