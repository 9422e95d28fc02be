package store

import (
	"context"
	"database/sql"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS artifacts (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		content     TEXT NOT NULL,
		metadata    TEXT NOT NULL DEFAULT '{}',
		embedding   BLOB,
		usage_count INTEGER NOT NULL DEFAULT 0,
		score       REAL NOT NULL DEFAULT 1.0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts(kind)`,
	`CREATE TABLE IF NOT EXISTS artifact_tags (
		artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
		tag         TEXT NOT NULL,
		PRIMARY KEY (artifact_id, tag)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_artifact_tags_tag ON artifact_tags(tag)`,
}

// migrate applies schema_statements idempotently and records the schema
// version, following the teacher's migrations.go convention of a single
// forward-only statement list rather than a rollback-capable framework —
// the kernel's schema has no release history to migrate between yet.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_meta`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_meta (version) VALUES (?)`, schemaVersion); err != nil {
			return err
		}
	}

	return tx.Commit()
}
