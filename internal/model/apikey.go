package model

import "time"

// KeyStatusActive is the status reported for keys with no explicit status.
const KeyStatusActive = "active"

// APIKey is the single access key owned by a user.
// ID always equals the owning user's ID.
type APIKey struct {
	ID        int64     `json:"id"`
	Key       string    `json:"api_key"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// EffectiveStatus returns the key status, defaulting to active.
func (k *APIKey) EffectiveStatus() string {
	if k.Status == "" {
		return KeyStatusActive
	}
	return k.Status
}

// KeyValidation is the outcome of a successful key lookup.
type KeyValidation struct {
	Key       string
	Status    string
	CreatedAt time.Time
}

// GeneratedKey is a freshly generated, not yet persisted key.
type GeneratedKey struct {
	APIKey    string    `json:"apiKey"`
	CreatedAt time.Time `json:"createdAt"`
}
