package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/infrastructure/utils"

	"github.com/google/uuid"
)

type IPostUsecase interface {
	Create(ctx context.Context, ownerID string, req dto.CreatePostRequest) (*model.ScheduledPost, error)
	List(ctx context.Context, ownerID string) ([]*model.ScheduledPost, error)
	Get(ctx context.Context, ownerID, id string) (*model.ScheduledPost, error)
	Update(ctx context.Context, ownerID, id string, req dto.UpdatePostRequest) (*model.ScheduledPost, error)
	Schedule(ctx context.Context, ownerID, id string, at time.Time) (*model.ScheduledPost, error)
}

type postUsecase struct {
	posts         repository.IScheduledPost
	subscriptions repository.ISubscription
	limits        map[model.ProviderID]int
	locks         *KeyLock
	now           func() time.Time
}

// NewPostUsecase builds the post use case. subscriptions may be nil, in which case
// scheduling is not gated on a subscription.
func NewPostUsecase(posts repository.IScheduledPost, subscriptions repository.ISubscription, locks *KeyLock, providers ...repository.IProviderClient) IPostUsecase {
	if locks == nil {
		locks = NewKeyLock()
	}
	limits := make(map[model.ProviderID]int, len(providers))
	for _, p := range providers {
		limits[p.Provider()] = p.Capabilities().MaxContentLength
	}
	return &postUsecase{posts: posts, subscriptions: subscriptions, limits: limits, locks: locks, now: utils.GetCurrentTime}
}

func (u *postUsecase) validateContent(provider model.ProviderID, content string) error {
	limit, ok := u.limits[provider]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnsupportedProvider, provider)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is empty", model.ErrInvalidPost)
	}
	if n := utf8.RuneCountInString(content); limit > 0 && n > limit {
		return fmt.Errorf("%w: content is %d characters, %s allows %d", model.ErrInvalidPost, n, provider, limit)
	}
	return nil
}

func (u *postUsecase) validateSchedule(ctx context.Context, ownerID string, at time.Time) error {
	if !at.After(u.now()) {
		return fmt.Errorf("%w: scheduled time must be in the future", model.ErrInvalidPost)
	}
	if u.subscriptions == nil {
		return nil
	}
	sub, err := u.subscriptions.GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if sub == nil || !sub.Active(u.now()) {
		return model.ErrSubscriptionInactive
	}
	return nil
}

func (u *postUsecase) Create(ctx context.Context, ownerID string, req dto.CreatePostRequest) (*model.ScheduledPost, error) {
	provider, err := model.ParseProviderID(req.Provider)
	if err != nil {
		return nil, err
	}
	if err := u.validateContent(provider, req.Content); err != nil {
		return nil, err
	}
	now := u.now()
	post := &model.ScheduledPost{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		ProviderID:  provider,
		Content:     req.Content,
		ScheduledAt: now,
		Status:      model.PostStatusDraft,
		CreatedAt:   now,
	}
	if req.ScheduledAt != nil {
		if err := u.validateSchedule(ctx, ownerID, *req.ScheduledAt); err != nil {
			return nil, err
		}
		post.ScheduledAt = req.ScheduledAt.UTC()
		post.Status = model.PostStatusScheduled
	}
	if err := u.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("postId", post.ID).WithField("status", post.Status).Info("Post created")
	return post, nil
}

func (u *postUsecase) List(ctx context.Context, ownerID string) ([]*model.ScheduledPost, error) {
	return u.posts.ListByOwner(ctx, ownerID)
}

func (u *postUsecase) Get(ctx context.Context, ownerID, id string) (*model.ScheduledPost, error) {
	post, err := u.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != ownerID {
		return nil, model.ErrPostNotFound
	}
	return post, nil
}

func (u *postUsecase) Update(ctx context.Context, ownerID, id string, req dto.UpdatePostRequest) (*model.ScheduledPost, error) {
	unlock := u.locks.Lock(id)
	defer unlock()

	post, err := u.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !post.Editable() {
		return nil, model.ErrPostNotEditable
	}
	if err := u.validateContent(post.ProviderID, req.Content); err != nil {
		return nil, err
	}
	post.Content = req.Content
	if req.ScheduledAt != nil {
		if post.Status == model.PostStatusScheduled && !req.ScheduledAt.After(u.now()) {
			return nil, fmt.Errorf("%w: scheduled time must be in the future", model.ErrInvalidPost)
		}
		post.ScheduledAt = req.ScheduledAt.UTC()
	}
	if err := u.posts.UpdateContent(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Schedule moves a draft or failed post to scheduled, resetting retries.
func (u *postUsecase) Schedule(ctx context.Context, ownerID, id string, at time.Time) (*model.ScheduledPost, error) {
	unlock := u.locks.Lock(id)
	defer unlock()

	post, err := u.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if post.Status == model.PostStatusPublished {
		return nil, model.ErrPostNotEditable
	}
	if err := u.validateSchedule(ctx, ownerID, at); err != nil {
		return nil, err
	}
	now := u.now()
	if err := u.posts.Schedule(ctx, id, at.UTC(), now); err != nil {
		return nil, err
	}
	post.Status = model.PostStatusScheduled
	post.ScheduledAt = at.UTC()
	post.RetryCount = 0
	post.LastError = nil
	post.UpdatedAt = now
	return post, nil
}
