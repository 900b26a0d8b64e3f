package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// User represents a storefront account and its saved shipping address.
//
// AddressStreet may still hold the denormalized "{street}, {number} - {complement}, {neighborhood}"
// string written by older clients when the other structured columns are empty.
type User struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email               string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	FirstName           string     `gorm:"column:first_name;not null"`
	LastName            string     `gorm:"column:last_name;not null"`
	Role                enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive            bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	AddressStreet       *string    `gorm:"column:address_street"`
	AddressNumber       *string    `gorm:"column:address_number"`
	AddressComplement   *string    `gorm:"column:address_complement"`
	AddressNeighborhood *string    `gorm:"column:address_neighborhood"`
	AddressCity         *string    `gorm:"column:address_city"`
	AddressState        *string    `gorm:"column:address_state"`
	AddressZip          *string    `gorm:"column:address_zip"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = enums.RoleCustomer
	}
	return nil
}
