package model

import (
	"strings"
	"time"
)

type ProviderID string

const (
	ProviderTwitter  ProviderID = "twitter"
	ProviderLinkedIn ProviderID = "linkedin"
)

// ParseProviderID normalizes a provider name taken from a route or request body.
func ParseProviderID(raw string) (ProviderID, error) {
	switch p := ProviderID(strings.ToLower(strings.TrimSpace(raw))); p {
	case ProviderTwitter, ProviderLinkedIn:
		return p, nil
	default:
		return "", ErrUnsupportedProvider
	}
}

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// ScheduledPost is a piece of content queued for publication on one provider.
type ScheduledPost struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	ProviderID     ProviderID `json:"provider_id"`
	Content        string     `json:"content"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Status         PostStatus `json:"status"` // draft | scheduled | published | failed
	LastError      *string    `json:"last_error,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	PlatformPostID *string    `json:"platform_post_id,omitempty"`
	RetryCount     int        `json:"retry_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Editable reports whether the owner may still change the post.
func (p *ScheduledPost) Editable() bool {
	return p.Status == PostStatusDraft || p.Status == PostStatusScheduled
}

// Due reports whether the post should be picked up by a tick at now.
func (p *ScheduledPost) Due(now time.Time) bool {
	return p.Status == PostStatusScheduled && !p.ScheduledAt.After(now)
}
