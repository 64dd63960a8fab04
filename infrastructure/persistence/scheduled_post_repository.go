package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

const postColumns = `id, owner_id, provider_id, content, scheduled_at, status, last_error, published_at, platform_post_id, retry_count, created_at, updated_at`

// ScheduledPostRepository implements post persistence on PostgreSQL.
type ScheduledPostRepository struct{ db *sql.DB }

func NewScheduledPostRepository(db *sql.DB) *ScheduledPostRepository {
	return &ScheduledPostRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*model.ScheduledPost, error) {
	p := &model.ScheduledPost{}
	var provider, status string
	var lastErr, platformID sql.NullString
	var publishedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.OwnerID, &provider, &p.Content, &p.ScheduledAt, &status, &lastErr, &publishedAt, &platformID, &p.RetryCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ProviderID = model.ProviderID(provider)
	p.Status = model.PostStatus(status)
	if lastErr.Valid {
		v := lastErr.String
		p.LastError = &v
	}
	if publishedAt.Valid {
		v := publishedAt.Time
		p.PublishedAt = &v
	}
	if platformID.Valid {
		v := platformID.String
		p.PlatformPostID = &v
	}
	return p, nil
}

func scanPosts(rows *sql.Rows) ([]*model.ScheduledPost, error) {
	defer rows.Close()
	var list []*model.ScheduledPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// expectOne turns a zero-row update into notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func (r *ScheduledPostRepository) Create(ctx context.Context, p *model.ScheduledPost) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO scheduled_posts (`+postColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.OwnerID, string(p.ProviderID), p.Content, p.ScheduledAt, string(p.Status),
		nullString(p.LastError), nullTime(p.PublishedAt), nullString(p.PlatformPostID), p.RetryCount, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *ScheduledPostRepository) GetByID(ctx context.Context, id string) (*model.ScheduledPost, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM scheduled_posts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	return p, err
}

func (r *ScheduledPostRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM scheduled_posts WHERE owner_id=$1 ORDER BY scheduled_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *ScheduledPostRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM scheduled_posts WHERE status='scheduled' AND scheduled_at <= $1 ORDER BY scheduled_at ASC LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *ScheduledPostRepository) UpdateContent(ctx context.Context, p *model.ScheduledPost) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET content=$1, scheduled_at=$2, updated_at=$3 WHERE id=$4 AND status IN ('draft','scheduled')`,
		p.Content, p.ScheduledAt, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepository) Schedule(ctx context.Context, id string, scheduledAt time.Time, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status='scheduled', scheduled_at=$1, retry_count=0, last_error=NULL, updated_at=$2 WHERE id=$3 AND status IN ('draft','scheduled','failed')`,
		scheduledAt, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepository) MarkPublished(ctx context.Context, id string, platformPostID string, publishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status='published', published_at=$1, platform_post_id=$2, last_error=NULL, updated_at=$1 WHERE id=$3 AND status='scheduled'`,
		publishedAt, platformPostID, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepository) MarkFailed(ctx context.Context, id string, lastError string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status='failed', last_error=$1, updated_at=$2 WHERE id=$3 AND status='scheduled'`,
		lastError, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

func (r *ScheduledPostRepository) MarkRetry(ctx context.Context, id string, retryCount int, lastError string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET retry_count=$1, last_error=$2, updated_at=$3 WHERE id=$4 AND status='scheduled'`,
		retryCount, lastError, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrPostNotEditable)
}

var _ repository.IScheduledPost = (*ScheduledPostRepository)(nil)
