package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS catalog_batch (
		id            UUID PRIMARY KEY,
		strategy      TEXT NOT NULL,
		urls          JSONB NOT NULL,
		status        TEXT NOT NULL,
		record_count  INT NOT NULL DEFAULT 0,
		warning_count INT NOT NULL DEFAULT 0,
		asset_count   INT NOT NULL DEFAULT 0,
		records       JSONB,
		warnings      JSONB,
		notice        TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		started_at    TIMESTAMPTZ,
		completed_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_batch_pending
		ON catalog_batch (created_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS catalog_batch_asset (
		batch_id   UUID NOT NULL REFERENCES catalog_batch(id) ON DELETE CASCADE,
		position   INT NOT NULL,
		filename   TEXT NOT NULL,
		role       TEXT NOT NULL,
		source_url TEXT NOT NULL,
		data       BYTEA NOT NULL,
		PRIMARY KEY (batch_id, filename)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_event (
		id             UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		payload        JSONB NOT NULL,
		target_stream  TEXT NOT NULL,
		status         TEXT NOT NULL,
		retry_count    INT NOT NULL DEFAULT 0,
		error_message  TEXT,
		created_at     TIMESTAMPTZ NOT NULL,
		processed_at   TIMESTAMPTZ,
		next_retry_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_event_pending
		ON outbox_event (status, next_retry_at)`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
