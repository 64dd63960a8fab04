package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

const credentialColumns = `id, owner_id, provider_id, access_token_enc, refresh_token_enc, expires_at, scopes, account_name, needs_relink, created_at, updated_at`

// CredentialRepository stores provider credentials as encrypted envelopes.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository { return &CredentialRepository{db: db} }

func scanCredential(row rowScanner) (*model.ProviderCredential, error) {
	c := &model.ProviderCredential{}
	var provider string
	var refresh, accountName sql.NullString
	var exp sql.NullTime
	if err := row.Scan(&c.ID, &c.OwnerID, &provider, &c.AccessTokenEncrypted, &refresh, &exp, &c.Scopes, &accountName, &c.NeedsRelink, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ProviderID = model.ProviderID(provider)
	c.RefreshTokenEncrypted = refresh.String
	c.AccountName = accountName.String
	if exp.Valid {
		v := exp.Time
		c.ExpiresAt = &v
	}
	return c, nil
}

func scanCredentials(rows *sql.Rows) ([]*model.ProviderCredential, error) {
	defer rows.Close()
	var list []*model.ProviderCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Upsert replaces the owner's credential for the provider and clears any relink flag.
func (r *CredentialRepository) Upsert(ctx context.Context, c *model.ProviderCredential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.NeedsRelink = false
	q := `INSERT INTO provider_credentials (owner_id, provider_id, access_token_enc, refresh_token_enc, expires_at, scopes, account_name, needs_relink, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8,$9)
		  ON CONFLICT (owner_id, provider_id) DO UPDATE SET
			access_token_enc=EXCLUDED.access_token_enc,
			refresh_token_enc=EXCLUDED.refresh_token_enc,
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			account_name=EXCLUDED.account_name,
			needs_relink=FALSE,
			updated_at=EXCLUDED.updated_at
		  RETURNING id`
	return r.db.QueryRowContext(ctx, q, c.OwnerID, string(c.ProviderID), c.AccessTokenEncrypted, c.RefreshTokenEncrypted,
		nullTime(c.ExpiresAt), c.Scopes, c.AccountName, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
}

func (r *CredentialRepository) Get(ctx context.Context, ownerID string, provider model.ProviderID) (*model.ProviderCredential, error) {
	c, err := scanCredential(r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM provider_credentials WHERE owner_id=$1 AND provider_id=$2`, ownerID, string(provider)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCredentialNotFound
	}
	return c, err
}

func (r *CredentialRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.ProviderCredential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+credentialColumns+` FROM provider_credentials WHERE owner_id=$1 ORDER BY provider_id`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanCredentials(rows)
}

func (r *CredentialRepository) UpdateTokens(ctx context.Context, ownerID string, provider model.ProviderID, accessEnc, refreshEnc string, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE provider_credentials SET access_token_enc=$1, refresh_token_enc=$2, expires_at=$3, needs_relink=FALSE, updated_at=$4 WHERE owner_id=$5 AND provider_id=$6`,
		accessEnc, refreshEnc, nullTime(expiresAt), time.Now().UTC(), ownerID, string(provider))
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrCredentialNotFound)
}

func (r *CredentialRepository) FlagRelink(ctx context.Context, ownerID string, provider model.ProviderID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE provider_credentials SET needs_relink=TRUE, updated_at=$1 WHERE owner_id=$2 AND provider_id=$3`,
		time.Now().UTC(), ownerID, string(provider))
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrCredentialNotFound)
}

func (r *CredentialRepository) Delete(ctx context.Context, ownerID string, provider model.ProviderID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM provider_credentials WHERE owner_id=$1 AND provider_id=$2`, ownerID, string(provider))
	if err != nil {
		return err
	}
	return expectOne(res, model.ErrCredentialNotFound)
}

var _ repository.ICredential = (*CredentialRepository)(nil)
