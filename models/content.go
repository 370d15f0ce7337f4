package models

import "time"

// Url is a shortened link. A nil PasswordHash means open access.
type Url struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ShortCode    string     `gorm:"size:64;not null;uniqueIndex" json:"short_code"`
	OriginalURL  string     `gorm:"size:2048;not null" json:"original_url"`
	Title        string     `gorm:"size:255" json:"title"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at"`
	Clicks       int64      `gorm:"not null;default:0" json:"clicks"`
	UserID       *uint      `gorm:"index" json:"user_id"`
	User         *User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Text is a shared paste. Content is stored verbatim.
type Text struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ShortCode    string     `gorm:"size:64;not null;uniqueIndex" json:"short_code"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Title        string     `gorm:"size:255" json:"title"`
	Language     string     `gorm:"size:32;not null;default:plaintext" json:"language"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at"`
	Views        int64      `gorm:"not null;default:0" json:"views"`
	UserID       *uint      `gorm:"index" json:"user_id"`
	User         *User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// File records an uploaded binary kept in the byte store under StoredName.
type File struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ShortCode    string     `gorm:"size:64;not null;uniqueIndex" json:"short_code"`
	StoredName   string     `gorm:"size:255;not null" json:"-"`
	OriginalName string     `gorm:"size:255;not null" json:"original_name"`
	Size         int64      `gorm:"not null" json:"size"`
	MimeType     string     `gorm:"size:255" json:"mime_type"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at"`
	Downloads    int64      `gorm:"not null;default:0" json:"downloads"`
	UserID       *uint      `gorm:"index" json:"user_id"`
	User         *User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
