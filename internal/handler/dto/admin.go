package dto

import "github.com/uwuntu/keyhub/internal/model"

// CredentialsRequest is the body of admin register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned after an admin is created.
type RegisterResponse struct {
	Success bool  `json:"success"`
	AdminID int64 `json:"adminId"`
}

// UserListResponse is the admin user listing.
type UserListResponse struct {
	Users []model.AdminUserRecord `json:"users"`
}
