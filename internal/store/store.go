// Package store persists game descriptions in SQLite so repairs survive restarts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"

	"github.com/ryanm101/gamefuse/internal/game"
)

// DefaultTTL is how long a stored description stays fresh.
const DefaultTTL = 24 * time.Hour

// Description is one stored description.
type Description struct {
	Key      string
	Provider game.ProviderName
	Text     string
	StoredAt time.Time
}

// Store wraps the SQLite description database.
type Store struct {
	conn *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates the database at path and migrates it.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	conn, err := otelsql.Open("sqlite", path,
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent repairs.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, path: path, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn returns the underlying database connection.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the description stored under key. Expired rows are reported as
// missing but left in place.
func (s *Store) Get(ctx context.Context, key string) (*Description, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT key, provider, description, stored_at FROM descriptions WHERE key = ?", key)

	var (
		d        Description
		provider string
		storedAt int64
	)
	if err := row.Scan(&d.Key, &provider, &d.Text, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get description: %w", err)
	}
	d.Provider = game.ProviderName(provider)
	d.StoredAt = time.Unix(storedAt, 0).UTC()

	if s.now().Sub(d.StoredAt) >= s.ttl {
		return nil, nil
	}
	return &d, nil
}

// Put stores or replaces the description under key.
func (s *Store) Put(ctx context.Context, key string, provider game.ProviderName, text string) error {
	if key == "" || text == "" {
		return nil
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO descriptions (key, provider, description, stored_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			provider = excluded.provider,
			description = excluded.description,
			stored_at = excluded.stored_at
	`, key, string(provider), text, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save description: %w", err)
	}
	return nil
}

// Clear deletes every stored description.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM descriptions"); err != nil {
		return fmt.Errorf("failed to clear descriptions: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows past the TTL and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.conn.ExecContext(ctx, "DELETE FROM descriptions WHERE stored_at <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge descriptions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored rows, expired included.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM descriptions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count descriptions: %w", err)
	}
	return n, nil
}
