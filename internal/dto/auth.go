package dto

import (
	"time"

	"github.com/noah-isme/library-catalog-api/internal/models"
)

// RegisterRequest is the self-service sign-up payload.
type RegisterRequest struct {
	UserType     models.UserType `json:"userType" validate:"required,oneof=student staff admin"`
	Name         string          `json:"name" validate:"required,max=120"`
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,min=6,max=72"`
	StudentID    string          `json:"studentId" validate:"omitempty,max=64"`
	ParentEmail  string          `json:"parentEmail" validate:"omitempty,email"`
	Department   string          `json:"department" validate:"omitempty,max=120"`
	Role         string          `json:"role" validate:"omitempty,max=64"`
	AdminKeyword string          `json:"adminKeyword"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	User         *models.User `json:"user"`
	SessionToken string       `json:"sessionToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// SessionTokenRequest is the body of validate and logout calls.
type SessionTokenRequest struct {
	SessionToken string `json:"sessionToken"`
}

// CreateAdminRequest provisions a privileged account out of band.
type CreateAdminRequest struct {
	Name       string `validate:"required,max=120"`
	Email      string `validate:"required,email"`
	Password   string `validate:"required,min=6,max=72"`
	Department string `validate:"omitempty,max=120"`
}
