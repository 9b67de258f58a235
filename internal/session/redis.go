package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix is the Redis key prefix for sessions.
const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis with a TTL, so they are shared by every
// server instance and survive restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create stores a new session with the store TTL.
func (r *RedisStore) Create(ctx context.Context, data Data) (*Session, error) {
	s, err := newSession(data, r.ttl)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+s.ID, payload, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return s, nil
}

// Get loads a session. Redis expiry handles eviction.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		// Corrupted entry - treat as missing
		return nil, ErrNotFound
	}

	if s.Expired(time.Now()) {
		return nil, ErrNotFound
	}

	return &s, nil
}

// Destroy deletes a session.
func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
