package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ArticleRelay/internal/config"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		record_id  TEXT PRIMARY KEY,
		url        TEXT NOT NULL,
		title      TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		body       TEXT NOT NULL,
		summary    TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contents (
		record_id         TEXT PRIMARY KEY,
		article_record_id TEXT NOT NULL REFERENCES articles(record_id),
		platform          TEXT NOT NULL,
		text              TEXT NOT NULL,
		image_url         TEXT,
		status            TEXT NOT NULL,
		created_at        BIGINT NOT NULL,
		updated_at        BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS articles_created_at_idx ON articles (created_at)`,
	`CREATE INDEX IF NOT EXISTS contents_created_at_idx ON contents (created_at)`,
	`CREATE INDEX IF NOT EXISTS contents_article_idx ON contents (article_record_id)`,
}

// OpenSQL opens a database for driver ("sqlite" or "postgres") and ensures the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	var driverName string
	switch driver {
	case config.DriverSQLite:
		driverName = "sqlite"
	case config.DriverPostgres:
		driverName = "postgres"
	default:
		return nil, fmt.Errorf("unsupported sql driver %s", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == config.DriverSQLite {
		// Pragmas and :memory: databases are per connection.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates tables and indexes when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
