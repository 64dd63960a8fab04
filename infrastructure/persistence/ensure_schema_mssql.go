package persistence

import (
	"database/sql"
	"fmt"
)

// EnsureSchemaMSSQL creates the scheduler tables for SQL Server if they do not exist.
func EnsureSchemaMSSQL(db *sql.DB) error {
	posts := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.scheduled_posts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[scheduled_posts] (
        id NVARCHAR(36) NOT NULL PRIMARY KEY,
        owner_id NVARCHAR(128) NOT NULL,
        provider_id NVARCHAR(32) NOT NULL,
        content NVARCHAR(MAX) NOT NULL,
        scheduled_at DATETIME2 NOT NULL,
        status NVARCHAR(16) NOT NULL,
        last_error NVARCHAR(MAX) NULL,
        published_at DATETIME2 NULL,
        platform_post_id NVARCHAR(255) NULL,
        retry_count INT NOT NULL DEFAULT 0,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_scheduled_posts_due ON dbo.[scheduled_posts](status, scheduled_at);
    CREATE INDEX IX_scheduled_posts_owner ON dbo.[scheduled_posts](owner_id);
END`
	creds := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.provider_credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[provider_credentials] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        owner_id NVARCHAR(128) NOT NULL,
        provider_id NVARCHAR(32) NOT NULL,
        access_token_enc NVARCHAR(MAX) NOT NULL,
        refresh_token_enc NVARCHAR(MAX) NOT NULL DEFAULT '',
        expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL DEFAULT '',
        account_name NVARCHAR(255) NOT NULL DEFAULT '',
        needs_relink BIT NOT NULL DEFAULT 0,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_provider_credentials_owner_provider ON dbo.[provider_credentials](owner_id, provider_id);
END`
	if _, err := db.Exec(posts); err != nil {
		return fmt.Errorf("create scheduled_posts (mssql): %w", err)
	}
	if _, err := db.Exec(creds); err != nil {
		return fmt.Errorf("create provider_credentials (mssql): %w", err)
	}
	return nil
}
