package store

import (
	"context"
	"fmt"
)

// migrate runs database migrations up to the current schema version.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := s.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version < 1 {
		if err := s.migrateV1(ctx); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(ctx); err != nil {
			return err
		}
	}
	return nil
}

// migrateV1 creates the descriptions table.
func (s *Store) migrateV1(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS descriptions (
			key TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			description TEXT NOT NULL,
			stored_at INTEGER NOT NULL
		);

		INSERT INTO schema_version (version) VALUES (1);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute v1 migration: %w", err)
	}
	return nil
}

// migrateV2 indexes stored_at for expiry purges.
func (s *Store) migrateV2(ctx context.Context) error {
	schema := `
		CREATE INDEX IF NOT EXISTS idx_descriptions_stored_at ON descriptions(stored_at);

		INSERT INTO schema_version (version) VALUES (2);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute v2 migration: %w", err)
	}
	return nil
}
