package auth

import (
	"github.com/forkfleet/forkfleet-backend/internal/users"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token and user produced by a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	Role        enums.UserRole `json:"role"`
	User        *users.UserDTO `json:"user"`
}
