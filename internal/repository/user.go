package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uwuntu/keyhub/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// CreateUser inserts a new user and sets its assigned ID.
func (q *Queries) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (firstname, lastname, email, is_online, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := q.db.QueryRowContext(ctx, q.rebind(query),
		user.Firstname,
		user.Lastname,
		user.Email,
		user.IsOnline,
		user.LastSeen,
		user.CreatedAt,
	).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, firstname, lastname, email, is_online, last_seen, created_at
		FROM users
		WHERE id = ?
	`

	var user model.User
	var lastSeen sql.NullTime

	err := q.db.QueryRowContext(ctx, q.rebind(query), id).Scan(
		&user.ID,
		&user.Firstname,
		&user.Lastname,
		&user.Email,
		&user.IsOnline,
		&lastSeen,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	if lastSeen.Valid {
		user.LastSeen = &lastSeen.Time
	}

	return &user, nil
}

// CountUsers returns the number of user rows.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// SetUserPresence sets the online flag and last_seen of a user.
// A nil lastSeen clears it. Matching no row is not an error.
func (q *Queries) SetUserPresence(ctx context.Context, id int64, online bool, lastSeen *time.Time) error {
	query := `UPDATE users SET is_online = ?, last_seen = ? WHERE id = ?`

	if _, err := q.db.ExecContext(ctx, q.rebind(query), online, lastSeen, id); err != nil {
		return fmt.Errorf("failed to update user presence: %w", err)
	}

	return nil
}

// DeleteUser deletes a user row. Deleting a missing user is not an error.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, q.rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListUserRecords returns every user left-joined with its key, ascending by ID.
func (q *Queries) ListUserRecords(ctx context.Context) ([]model.UserRecord, error) {
	query := `
		SELECT u.id, u.firstname, u.lastname, u.email, u.is_online, u.last_seen, u.created_at,
		       k.api_key, k.created_at
		FROM users u
		LEFT JOIN apikeys k ON k.id = u.id
		ORDER BY u.id ASC
	`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	records := make([]model.UserRecord, 0)
	for rows.Next() {
		var (
			rec          model.UserRecord
			lastSeen     sql.NullTime
			apiKey       sql.NullString
			keyCreatedAt sql.NullTime
		)

		if err := rows.Scan(
			&rec.ID,
			&rec.Firstname,
			&rec.Lastname,
			&rec.Email,
			&rec.IsOnline,
			&lastSeen,
			&rec.CreatedAt,
			&apiKey,
			&keyCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		if lastSeen.Valid {
			rec.LastSeen = &lastSeen.Time
		}
		if apiKey.Valid {
			rec.APIKey = &apiKey.String
		}
		if keyCreatedAt.Valid {
			rec.APIKeyCreatedAt = &keyCreatedAt.Time
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return records, nil
}
