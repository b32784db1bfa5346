package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL. Expired rows are swept by
// a background goroutine since Postgres has no native TTL.
type PostgresStore struct {
	db          *sql.DB
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(connectionString string, cleanupInterval time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		// Close() error during initialization cleanup is not actionable;
		// the connection failure is the error the caller needs.
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:          db,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	go store.cleanupExpired(cleanupInterval)

	return store, nil
}

func (s *PostgresStore) createTables() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS checkout_sessions (
			token TEXT PRIMARY KEY,
			csrf_token TEXT NOT NULL,
			cart_token TEXT NOT NULL,
			cart_total BIGINT NOT NULL DEFAULT 0,
			origin TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS processed_events (
			event_id TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkout_sessions_expires ON checkout_sessions(expires_at);
		CREATE INDEX IF NOT EXISTS idx_processed_events_expires ON processed_events(expires_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM checkout_sessions WHERE expires_at < NOW()`)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM processed_events WHERE expires_at < NOW()`)
			cancel()
		}
	}
}

// SaveSession persists a session record, upserting on token.
func (s *PostgresStore) SaveSession(ctx context.Context, session Session) error {
	const query = `
		INSERT INTO checkout_sessions (token, csrf_token, cart_token, cart_total, origin, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token) DO UPDATE SET
			csrf_token = EXCLUDED.csrf_token,
			cart_token = EXCLUDED.cart_token,
			cart_total = EXCLUDED.cart_total,
			origin = EXCLUDED.origin,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.ExecContext(ctx, query,
		session.Token, session.CSRFToken, session.CartToken, session.CartTotal,
		session.Origin, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token.
func (s *PostgresStore) GetSession(ctx context.Context, token string) (Session, error) {
	const query = `
		SELECT token, csrf_token, cart_token, cart_total, origin, created_at, expires_at
		FROM checkout_sessions WHERE token = $1
	`
	var session Session
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&session.Token, &session.CSRFToken, &session.CartToken, &session.CartTotal,
		&session.Origin, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session. Idempotent.
func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkout_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// MarkEventProcessed inserts the event ID with ON CONFLICT DO NOTHING. The
// reported row count tells us whether this call won the insert, so the
// check-and-mark is a single atomic statement.
func (s *PostgresStore) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	const query = `
		INSERT INTO processed_events (event_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, eventID, time.Now().Add(ttl))
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return rows == 1, nil
}

// Close stops the cleanup goroutine and closes the connection pool.
func (s *PostgresStore) Close() error {
	close(s.stopCleanup)
	<-s.cleanupDone
	return s.db.Close()
}
