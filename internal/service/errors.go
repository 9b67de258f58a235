// Package service provides business logic for the application.
package service

import (
	"errors"
	"strings"
)

// Service errors.
var (
	ErrValidation         = errors.New("validation failed")
	ErrMissingField       = errors.New("missing required field")
	ErrMissingKey         = errors.New("API key is required")
	ErrInvalidFormat      = errors.New("invalid API key format")
	ErrInvalidID          = errors.New("invalid user ID")
	ErrNotFound           = errors.New("API key not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateKey       = errors.New("API key already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPersistence        = errors.New("persistence failure")
)

// MaxEmailLength is the longest accepted email address.
const MaxEmailLength = 254

// validateEmail checks length and basic address shape.
func validateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return ErrValidation
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrValidation
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return ErrValidation
	}
	return nil
}
