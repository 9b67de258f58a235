package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uwuntu/keyhub/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrAPIKeyExists   = errors.New("API key already exists")
)

// CreateAPIKey inserts the key for the user identified by key.ID.
func (q *Queries) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO apikeys (id, api_key, status, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := q.db.ExecContext(ctx, q.rebind(query),
		key.ID,
		key.Key,
		key.EffectiveStatus(),
		key.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrAPIKeyExists
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyByValue looks up a key by exact string match.
func (q *Queries) GetAPIKeyByValue(ctx context.Context, value string) (*model.APIKey, error) {
	query := `
		SELECT id, api_key, status, created_at
		FROM apikeys
		WHERE api_key = ?
	`

	var key model.APIKey
	var status sql.NullString

	err := q.db.QueryRowContext(ctx, q.rebind(query), value).Scan(
		&key.ID,
		&key.Key,
		&status,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	key.Status = status.String
	return &key, nil
}

// DeleteAPIKey removes the key owned by userID. Missing keys are not an error.
func (q *Queries) DeleteAPIKey(ctx context.Context, userID int64) error {
	if _, err := q.db.ExecContext(ctx, q.rebind(`DELETE FROM apikeys WHERE id = ?`), userID); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	return nil
}

// CountAPIKeys returns the number of key rows.
func (q *Queries) CountAPIKeys(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apikeys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count API keys: %w", err)
	}
	return n, nil
}
