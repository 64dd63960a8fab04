package persistence

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates the scheduler tables in PostgreSQL when missing.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scheduled_posts (
			id VARCHAR(36) PRIMARY KEY,
			owner_id VARCHAR(128) NOT NULL,
			provider_id VARCHAR(32) NOT NULL,
			content TEXT NOT NULL,
			scheduled_at TIMESTAMPTZ NOT NULL,
			status VARCHAR(16) NOT NULL,
			last_error TEXT NULL,
			published_at TIMESTAMPTZ NULL,
			platform_post_id VARCHAR(255) NULL,
			retry_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_scheduled_posts_due ON scheduled_posts (status, scheduled_at)`,
		`CREATE INDEX IF NOT EXISTS ix_scheduled_posts_owner ON scheduled_posts (owner_id)`,
		`CREATE TABLE IF NOT EXISTS provider_credentials (
			id BIGSERIAL PRIMARY KEY,
			owner_id VARCHAR(128) NOT NULL,
			provider_id VARCHAR(32) NOT NULL,
			access_token_enc TEXT NOT NULL,
			refresh_token_enc TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NULL,
			scopes TEXT NOT NULL DEFAULT '',
			account_name VARCHAR(255) NOT NULL DEFAULT '',
			needs_relink BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (owner_id, provider_id)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
