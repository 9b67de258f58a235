package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltStore keeps sessions in a local bbolt file so a single instance can
// restart without logging admins out.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
}

// OpenBoltStore opens (or creates) the session file at path.
func OpenBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}

	return &BoltStore{db: db, ttl: ttl}, nil
}

// Create stores a new session.
func (b *BoltStore) Create(_ context.Context, data Data) (*Session, error) {
	s, err := newSession(data, b.ttl)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(s.ID), payload)
	})
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return s, nil
}

// Get loads a session. Expired sessions are deleted on read.
func (b *BoltStore) Get(ctx context.Context, id string) (*Session, error) {
	var payload []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(sessionsBucket).Get([]byte(id)); v != nil {
			// v is only valid inside the transaction
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if payload == nil {
		return nil, ErrNotFound
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, ErrNotFound
	}

	if s.Expired(time.Now()) {
		_ = b.Destroy(ctx, id)
		return nil, ErrNotFound
	}

	return &s, nil
}

// Destroy deletes a session.
func (b *BoltStore) Destroy(_ context.Context, id string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close closes the session file.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
