package auth

import (
	"github.com/angelmondragon/memorial-backend/internal/users"
)

const (
	minPasswordLength = 6
	maxNameLength     = 100
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest creates an ordinary account. Roles are never client supplied.
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RefreshRequest trades a (possibly expired) access token and its refresh token for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LoginResponse is returned by signup, login and refresh. RefreshToken is
// empty when no session store is configured.
type LoginResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	User         *users.Profile `json:"user"`
}

// AdminRequest seeds an administrator account from the command line.
type AdminRequest struct {
	Name     string
	Email    string
	Password string
}
