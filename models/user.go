package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that may own shared content. Passwords are stored as bcrypt hashes only.
// Users are hard deleted so the database cascade removes their content.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name         string    `gorm:"size:128" json:"name"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Provider     string    `gorm:"size:32" json:"provider"`
	ProviderID   string    `gorm:"size:255;index" json:"provider_id"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	IsApproved   bool      `gorm:"not null;default:false" json:"is_approved"`
	RegisterIP   string    `gorm:"size:45" json:"register_ip"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
