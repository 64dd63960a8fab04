package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

type ScheduledPostRepositoryMSSQL struct{ db *sql.DB }

func NewScheduledPostRepositoryMSSQL(db *sql.DB) *ScheduledPostRepositoryMSSQL {
	return &ScheduledPostRepositoryMSSQL{db: db}
}

func (r *ScheduledPostRepositoryMSSQL) Create(ctx context.Context, p *model.ScheduledPost) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO dbo.[scheduled_posts] (`+postColumns+`) VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12)`,
		p.ID, p.OwnerID, string(p.ProviderID), p.Content, p.ScheduledAt, string(p.Status),
		nullString(p.LastError), nullTime(p.PublishedAt), nullString(p.PlatformPostID), p.RetryCount, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *ScheduledPostRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.ScheduledPost, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM dbo.[scheduled_posts] WHERE id=@p1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	return p, err
}

func (r *ScheduledPostRepositoryMSSQL) ListByOwner(ctx context.Context, ownerID string) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM dbo.[scheduled_posts] WHERE owner_id=@p1 ORDER BY scheduled_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *ScheduledPostRepositoryMSSQL) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT TOP (@p2) `+postColumns+` FROM dbo.[scheduled_posts] WHERE status='scheduled' AND scheduled_at <= @p1 ORDER BY scheduled_at ASC`, now, limit)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *ScheduledPostRepositoryMSSQL) UpdateContent(ctx context.Context, p *model.ScheduledPost) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET content=@p1, scheduled_at=@p2, updated_at=@p3 WHERE id=@p4 AND status IN ('draft','scheduled')`,
		p.Content, p.ScheduledAt, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepositoryMSSQL) Schedule(ctx context.Context, id string, scheduledAt time.Time, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status='scheduled', scheduled_at=@p1, retry_count=0, last_error=NULL, updated_at=@p2 WHERE id=@p3 AND status IN ('draft','scheduled','failed')`,
		scheduledAt, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepositoryMSSQL) MarkPublished(ctx context.Context, id string, platformPostID string, publishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status='published', published_at=@p1, platform_post_id=@p2, last_error=NULL, updated_at=@p1 WHERE id=@p3 AND status='scheduled'`,
		publishedAt, platformPostID, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepositoryMSSQL) MarkFailed(ctx context.Context, id string, lastError string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status='failed', last_error=@p1, updated_at=@p2 WHERE id=@p3 AND status='scheduled'`,
		lastError, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepositoryMSSQL) MarkRetry(ctx context.Context, id string, retryCount int, lastError string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET retry_count=@p1, last_error=@p2, updated_at=@p3 WHERE id=@p4 AND status='scheduled'`,
		retryCount, lastError, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

var _ repository.IScheduledPost = (*ScheduledPostRepositoryMSSQL)(nil)
