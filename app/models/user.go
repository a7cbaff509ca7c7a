package models

import (
	"time"

	"github.com/fitforge/fitforge/pkg/auth"
)

// User is an account. Role decides what the HTTP layer lets it do.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Role      auth.Role `gorm:"size:20;not null;default:customer" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Principal is the identity carried in tokens for u.
func (u User) Principal() auth.Principal {
	return auth.Principal{ID: u.ID, Role: u.Role}
}
