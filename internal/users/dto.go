package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

// Profile is the account view returned to clients. It never carries the
// password hash.
type Profile struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	Name        string           `json:"name"`
	Role        enums.SystemRole `json:"role"`
	IsActive    bool             `json:"isActive"`
	LastLoginAt *time.Time       `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.SystemRole,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// NewUser is what registration hands the repository. Unknown roles fall back
// to a plain user.
type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Role         enums.SystemRole
}

func (n NewUser) model() *models.User {
	role := n.Role
	if !role.IsValid() {
		role = enums.SystemRoleUser
	}
	return &models.User{
		Email:        NormalizeEmail(n.Email),
		PasswordHash: n.PasswordHash,
		Name:         n.Name,
		SystemRole:   role,
		IsActive:     true,
	}
}
