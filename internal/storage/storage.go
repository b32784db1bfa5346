package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when a requested entity is missing from the store.
var ErrNotFound = errors.New("storage: not found")

// Session is the server-side record for an issued checkout session.
// The token is the map/row key; the CSRF token is stored server-side and
// never derivable from the session token.
type Session struct {
	Token     string    `bson:"_id" json:"token"`
	CSRFToken string    `bson:"csrf_token" json:"csrfToken"`
	CartToken string    `bson:"cart_token" json:"cartToken"`
	CartTotal int64     `bson:"cart_total" json:"cartTotal"`
	Origin    string    `bson:"origin" json:"origin"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
}

// ExpiredAt reports whether the session is expired at the given instant.
// A session whose ExpiresAt equals now exactly is still valid.
func (s Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store captures the persistence requirements for checkout state: session
// records and webhook event dedup markers.
//
// MarkEventProcessed is the replay-protection primitive. It must be atomic
// (check-and-mark in one step) so that two concurrent deliveries of the same
// event ID observe exactly one true result between them. Backends use SETNX
// (Redis), a unique index insert (MongoDB), or ON CONFLICT DO NOTHING
// (PostgreSQL) to guarantee this.
type Store interface {
	// SaveSession persists a session record, overwriting any existing
	// record with the same token.
	SaveSession(ctx context.Context, session Session) error
	// GetSession retrieves a session by token. Returns ErrNotFound for
	// unknown or already-evicted tokens. Expired-but-present records are
	// returned as-is; expiry policy belongs to the session service.
	GetSession(ctx context.Context, token string) (Session, error)
	// DeleteSession removes a session. Deleting an absent token is not
	// an error.
	DeleteSession(ctx context.Context, token string) error

	// MarkEventProcessed atomically records a webhook event ID as seen.
	// Returns true if this call was the first to record it, false if the
	// event was already marked. The marker expires after ttl.
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	Close() error
}

// StoreConfig holds storage backend configuration.
type StoreConfig struct {
	Backend         string // "memory", "redis", "mongodb", or "postgres"
	RedisURL        string
	MongoDBURL      string
	MongoDBDatabase string
	PostgresURL     string
	CleanupInterval time.Duration // How often memory/postgres backends sweep expired records
}

// NewStore creates a Store instance based on the provided configuration.
// When Backend is empty the backend is auto-detected from the provided
// connection strings, preferring redis > postgres > mongodb > memory.
func NewStore(cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		// Memory backend loses session and replay state on restart.
		// Only suitable for development and single-instance deployments.
		return NewMemoryStore(cfg.CleanupInterval), nil
	case "":
		if cfg.RedisURL != "" {
			return NewRedisStore(cfg.RedisURL)
		}
		if cfg.PostgresURL != "" {
			return NewPostgresStore(cfg.PostgresURL, cfg.CleanupInterval)
		}
		if cfg.MongoDBURL != "" {
			db := cfg.MongoDBDatabase
			if db == "" {
				db = "checkout"
			}
			return NewMongoDBStore(cfg.MongoDBURL, db)
		}
		return NewMemoryStore(cfg.CleanupInterval), nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis backend requires redis_url")
		}
		return NewRedisStore(cfg.RedisURL)
	case "mongodb":
		if cfg.MongoDBURL == "" {
			return nil, fmt.Errorf("mongodb backend requires mongodb_url")
		}
		if cfg.MongoDBDatabase == "" {
			return nil, fmt.Errorf("mongodb backend requires mongodb_database")
		}
		return NewMongoDBStore(cfg.MongoDBURL, cfg.MongoDBDatabase)
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend requires postgres_url")
		}
		return NewPostgresStore(cfg.PostgresURL, cfg.CleanupInterval)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// defaultCleanupInterval bounds how long expired records linger in backends
// without native TTL support.
const defaultCleanupInterval = 5 * time.Minute

// MemoryStore is an in-memory Store implementation suitable for tests and
// single-instance deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]Session
	events      map[string]time.Time // eventID -> marker expiry
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewMemoryStore constructs a MemoryStore and starts background cleanup.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	m := &MemoryStore{
		sessions:    make(map[string]Session),
		events:      make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	go m.cleanupExpired(cleanupInterval)
	return m
}

func (m *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(m.cleanupDone)

	for {
		select {
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *MemoryStore) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for token, session := range m.sessions {
		if session.ExpiredAt(now) {
			delete(m.sessions, token)
		}
	}
	for eventID, expiry := range m.events {
		if now.After(expiry) {
			delete(m.events, eventID)
		}
	}
}

// SaveSession persists a session record.
func (m *MemoryStore) SaveSession(_ context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return nil
}

// GetSession retrieves a session by token.
func (m *MemoryStore) GetSession(_ context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// DeleteSession removes a session. Idempotent.
func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// MarkEventProcessed atomically records an event ID. The write lock makes the
// check-and-mark a single step, so only one concurrent caller sees true.
func (m *MemoryStore) MarkEventProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if expiry, ok := m.events[eventID]; ok && now.Before(expiry) {
		return false, nil
	}
	m.events[eventID] = now.Add(ttl)
	return true, nil
}

// Stop gracefully stops the cleanup goroutine.
func (m *MemoryStore) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}

// Close implements the Store interface by calling Stop.
func (m *MemoryStore) Close() error {
	m.Stop()
	return nil
}
