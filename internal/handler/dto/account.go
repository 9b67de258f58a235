// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/uwuntu/keyhub/internal/model"
)

// SaveUserRequest represents the request body for onboarding a user.
type SaveUserRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	APIKey    string `json:"apiKey"`
}

// SaveUserResponse is returned after a user and key are saved.
type SaveUserResponse struct {
	Success bool             `json:"success"`
	User    model.UserRecord `json:"user"`
}

// ValidateKeyResponse is returned for a known key.
type ValidateKeyResponse struct {
	Valid     bool      `json:"valid"`
	Key       string    `json:"key"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Message   string    `json:"message"`
}

// ToValidateKeyResponse converts a validation result.
func ToValidateKeyResponse(v *model.KeyValidation) ValidateKeyResponse {
	return ValidateKeyResponse{
		Valid:     true,
		Key:       v.Key,
		Status:    v.Status,
		CreatedAt: v.CreatedAt,
		Message:   "API key is valid",
	}
}

// SuccessResponse is the body of operations with no other payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// OK is the shared success body.
var OK = SuccessResponse{Success: true}

// TestResponse is returned by the connectivity probe.
type TestResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
