package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 2

type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "drafts and usage",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS drafts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				body TEXT NOT NULL,
				hashtags TEXT NOT NULL DEFAULT '',
				tone TEXT NOT NULL,
				length TEXT NOT NULL,
				score INTEGER NOT NULL,
				created_at TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_drafts_created_at ON drafts(created_at);`,
			`CREATE TABLE IF NOT EXISTS usage_counters (
				key TEXT PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0
			);`,
			`CREATE TABLE IF NOT EXISTS usage_events (
				id TEXT PRIMARY KEY,
				tone TEXT NOT NULL,
				at TEXT NOT NULL
			);`,
		},
	},
	{
		version: 2,
		name:    "post history",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS posts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				generation_id TEXT NOT NULL,
				topic TEXT NOT NULL,
				tone TEXT NOT NULL,
				length TEXT NOT NULL,
				post_type TEXT NOT NULL DEFAULT 'general',
				body TEXT NOT NULL,
				hashtags TEXT NOT NULL DEFAULT '',
				score INTEGER NOT NULL,
				is_favorite INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);`,
			`CREATE INDEX IF NOT EXISTS idx_posts_generation_id ON posts(generation_id);`,
		},
	},
}

// Migrate ensures the schema exists and is upgraded to SchemaVersion. Each
// version is applied in its own transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate v%d: begin transaction: %w", m.version, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate v%d (%s): %w", m.version, m.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES (?);`, m.version); err != nil {
		return fmt.Errorf("migrate v%d: record schema version: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate v%d: commit transaction: %w", m.version, err)
	}
	return nil
}
