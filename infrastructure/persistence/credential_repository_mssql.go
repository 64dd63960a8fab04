package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

func (r *CredentialRepositoryMSSQL) Upsert(ctx context.Context, c *model.ProviderCredential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.NeedsRelink = false
	q := `MERGE dbo.[provider_credentials] WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS owner_id, @p2 AS provider_id) AS s
ON t.owner_id = s.owner_id AND t.provider_id = s.provider_id
WHEN MATCHED THEN UPDATE SET access_token_enc=@p3, refresh_token_enc=@p4, expires_at=@p5, scopes=@p6, account_name=@p7, needs_relink=0, updated_at=@p9
WHEN NOT MATCHED THEN INSERT (owner_id, provider_id, access_token_enc, refresh_token_enc, expires_at, scopes, account_name, needs_relink, created_at, updated_at)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, 0, @p8, @p9)
OUTPUT inserted.id;`
	return r.db.QueryRowContext(ctx, q, c.OwnerID, string(c.ProviderID), c.AccessTokenEncrypted, c.RefreshTokenEncrypted,
		nullTime(c.ExpiresAt), c.Scopes, c.AccountName, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
}

func (r *CredentialRepositoryMSSQL) Get(ctx context.Context, ownerID string, provider model.ProviderID) (*model.ProviderCredential, error) {
	c, err := scanCredential(r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM dbo.[provider_credentials] WHERE owner_id=@p1 AND provider_id=@p2`, ownerID, string(provider)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCredentialNotFound
	}
	return c, err
}

func (r *CredentialRepositoryMSSQL) ListByOwner(ctx context.Context, ownerID string) ([]*model.ProviderCredential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+credentialColumns+` FROM dbo.[provider_credentials] WHERE owner_id=@p1 ORDER BY provider_id`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanCredentials(rows)
}

func (r *CredentialRepositoryMSSQL) UpdateTokens(ctx context.Context, ownerID string, provider model.ProviderID, accessEnc, refreshEnc string, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[provider_credentials] SET access_token_enc=@p1, refresh_token_enc=@p2, expires_at=@p3, needs_relink=0, updated_at=@p4 WHERE owner_id=@p5 AND provider_id=@p6`,
		accessEnc, refreshEnc, nullTime(expiresAt), time.Now().UTC(), ownerID, string(provider))
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrCredentialNotFound)
}

func (r *CredentialRepositoryMSSQL) FlagRelink(ctx context.Context, ownerID string, provider model.ProviderID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[provider_credentials] SET needs_relink=1, updated_at=@p1 WHERE owner_id=@p2 AND provider_id=@p3`,
		time.Now().UTC(), ownerID, string(provider))
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrCredentialNotFound)
}

func (r *CredentialRepositoryMSSQL) Delete(ctx context.Context, ownerID string, provider model.ProviderID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[provider_credentials] WHERE owner_id=@p1 AND provider_id=@p2`, ownerID, string(provider))
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrCredentialNotFound)
}

var _ repository.ICredential = (*CredentialRepositoryMSSQL)(nil)
