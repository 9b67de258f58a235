package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uwuntu/keyhub/internal/model"
)

// Common errors for admin repository operations.
var (
	ErrAdminNotFound = errors.New("admin not found")
	ErrAdminExists   = errors.New("admin email already exists")
)

// CreateAdmin inserts a new admin and sets its assigned ID.
func (q *Queries) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	query := `
		INSERT INTO admins (email, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`

	err := q.db.QueryRowContext(ctx, q.rebind(query),
		admin.Email,
		admin.PasswordHash,
		admin.CreatedAt,
	).Scan(&admin.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrAdminExists
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	return nil
}

// GetAdminByEmail retrieves an admin by email address.
func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM admins
		WHERE email = ?
	`

	var admin model.Admin
	err := q.db.QueryRowContext(ctx, q.rebind(query), email).Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}

	return &admin, nil
}
