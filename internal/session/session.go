// Package session provides server-side admin sessions behind a swappable
// Store, and the signed cookie that carries the session ID.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Supported store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Data is the state stored for an authenticated admin.
type Data struct {
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
}

// Session is a server-side session.
type Session struct {
	ID        string    `json:"id"`
	Data      Data      `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get returns ErrNotFound for missing or expired
// sessions; Destroy of a missing session is not an error.
type Store interface {
	Create(ctx context.Context, data Data) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Destroy(ctx context.Context, id string) error
}

// newSession builds a session with a fresh ID drawn from crypto/rand.
func newSession(data Data, ttl time.Duration) (*Session, error) {
	now := time.Now().UTC()

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	return &Session{
		ID:        id.String(),
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
