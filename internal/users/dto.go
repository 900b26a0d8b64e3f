package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// User is the account as the API shows it. The password hash never leaves
// this package.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        enums.Role `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewUser is an account about to be inserted. Role defaults to customer and
// Inactive must be asked for explicitly.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         enums.Role
	Inactive     bool
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func FromModel(m *models.User) *User {
	if m == nil {
		return nil
	}
	u := User{
		ID:          m.ID,
		Email:       m.Email,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Role:        m.Role,
		IsActive:    m.IsActive,
		LastLoginAt: m.LastLoginAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	return &u
}

func (n NewUser) model() *models.User {
	role := n.Role
	if role == "" {
		role = enums.RoleCustomer
	}
	return &models.User{
		Email:        NormalizeEmail(n.Email),
		PasswordHash: n.PasswordHash,
		FirstName:    strings.TrimSpace(n.FirstName),
		LastName:     strings.TrimSpace(n.LastName),
		Role:         role,
		IsActive:     !n.Inactive,
	}
}
