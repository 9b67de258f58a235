// Package model defines domain entities for the application.
package model

import "time"

// User is an onboarded account holder. Presence fields are mutated by
// heartbeat calls and by key validation.
type User struct {
	ID        int64      `json:"id"`
	Firstname string     `json:"firstname"`
	Lastname  string     `json:"lastname"`
	Email     string     `json:"email"`
	IsOnline  bool       `json:"is_online"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
}

// UserRecord is a user left-joined with its API key.
// APIKey and APIKeyCreatedAt are nil when the key has been revoked.
type UserRecord struct {
	ID              int64      `json:"id"`
	Firstname       string     `json:"firstname"`
	Lastname        string     `json:"lastname"`
	Email           string     `json:"email"`
	IsOnline        bool       `json:"is_online"`
	LastSeen        *time.Time `json:"last_seen"`
	CreatedAt       time.Time  `json:"user_created_at"`
	APIKey          *string    `json:"api_key"`
	APIKeyCreatedAt *time.Time `json:"apikey_created_at"`
}

// NewUserRecord joins a user with its key.
func NewUserRecord(u *User, k *APIKey) UserRecord {
	rec := UserRecord{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		IsOnline:  u.IsOnline,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
	if k != nil {
		key := k.Key
		createdAt := k.CreatedAt
		rec.APIKey = &key
		rec.APIKeyCreatedAt = &createdAt
	}
	return rec
}

// AdminUserRecord is the admin listing view of a user.
type AdminUserRecord struct {
	UserRecord
	OnlineNow bool `json:"online_now"`
}

// SeenWithin reports whether the record was seen within window of now.
func (r *UserRecord) SeenWithin(now time.Time, window time.Duration) bool {
	if r.LastSeen == nil {
		return false
	}
	return now.Sub(*r.LastSeen) <= window
}
