package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "checkout:session:"
	redisEventPrefix   = "checkout:event:"
)

// RedisStore implements Store using Redis. Session records and event markers
// carry native TTLs, so no background cleanup is needed.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store from a redis:// URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// Close() error during initialization cleanup is not actionable;
		// the connection failure is the error the caller needs.
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// SaveSession persists a session record with a TTL matching its expiry.
func (s *RedisStore) SaveSession(ctx context.Context, session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// Already expired; storing it would be indistinguishable from a miss.
		return nil
	}

	if err := s.client.Set(ctx, redisSessionPrefix+session.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token.
func (s *RedisStore) GetSession(ctx context.Context, token string) (Session, error) {
	data, err := s.client.Get(ctx, redisSessionPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session. Idempotent.
func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisSessionPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// MarkEventProcessed records an event ID using SETNX, which is atomic on the
// Redis server: exactly one concurrent caller observes true.
func (s *RedisStore) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	first, err := s.client.SetNX(ctx, redisEventPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return first, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
