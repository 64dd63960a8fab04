package model

import (
	"errors"
	"time"
)

// PublishOutcome is the per-post result of a publish attempt. It is not persisted
// beyond the post status it produces.
type PublishOutcome struct {
	PostID         string `json:"postId"`
	OwnerID        string `json:"-"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	PlatformPostID string `json:"platformPostId,omitempty"`
	Err            error  `json:"-"`
}

// Retryable reports whether a failed outcome may be attempted again on a later tick.
func (o PublishOutcome) Retryable() bool {
	return !o.Success && errors.Is(o.Err, ErrTransientPublish)
}

// FailedOutcome builds an unsuccessful outcome from a classified error.
func FailedOutcome(postID string, err error) PublishOutcome {
	return PublishOutcome{PostID: postID, Err: err, Error: err.Error()}
}

// BatchResult aggregates every outcome of one tick.
type BatchResult struct {
	ID             string           `json:"id" bson:"_id"`
	ProcessedCount int              `json:"processedCount" bson:"processedCount"`
	Succeeded      int              `json:"succeeded" bson:"succeeded"`
	Failed         int              `json:"failed" bson:"failed"`
	Retrying       int              `json:"retrying" bson:"retrying"`
	Timestamp      time.Time        `json:"timestamp" bson:"timestamp"`
	Outcomes       []PublishOutcome `json:"-" bson:"-"`
}

// Add folds one outcome into the batch counters.
func (b *BatchResult) Add(o PublishOutcome) {
	b.ProcessedCount++
	b.Outcomes = append(b.Outcomes, o)
	switch {
	case o.Success:
		b.Succeeded++
	case o.Retryable():
		b.Failed++
		b.Retrying++
	default:
		b.Failed++
	}
}
