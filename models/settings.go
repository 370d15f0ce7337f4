package models

import "time"

// SettingsID is the fixed primary key of the single settings row.
const SettingsID uint = 1

// Settings holds deployment-wide limits. Byte limits and daily counts of zero or less are uncapped.
type Settings struct {
	ID               uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AnonURLsPerDay   int       `gorm:"not null" json:"anon_urls_per_day"`
	UserURLsPerDay   int       `gorm:"not null" json:"user_urls_per_day"`
	AnonTextsPerDay  int       `gorm:"not null" json:"anon_texts_per_day"`
	UserTextsPerDay  int       `gorm:"not null" json:"user_texts_per_day"`
	AnonFilesPerDay  int       `gorm:"not null" json:"anon_files_per_day"`
	UserFilesPerDay  int       `gorm:"not null" json:"user_files_per_day"`
	AnonMaxTextBytes int64     `gorm:"not null" json:"anon_max_text_bytes"`
	UserMaxTextBytes int64     `gorm:"not null" json:"user_max_text_bytes"`
	AnonMaxFileBytes int64     `gorm:"not null" json:"anon_max_file_bytes"`
	UserMaxFileBytes int64     `gorm:"not null" json:"user_max_file_bytes"`
	AllowAnonURLs    bool      `gorm:"not null" json:"allow_anon_urls"`
	AllowAnonTexts   bool      `gorm:"not null" json:"allow_anon_texts"`
	AllowAnonFiles   bool      `gorm:"not null" json:"allow_anon_files"`
	RequireApproval  bool      `gorm:"not null" json:"require_approval"`
	Theme            string    `gorm:"size:32;not null" json:"theme"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultSettings returns the row used when none has been stored yet.
func DefaultSettings() Settings {
	return Settings{
		ID:               SettingsID,
		AnonURLsPerDay:   20,
		UserURLsPerDay:   200,
		AnonTextsPerDay:  20,
		UserTextsPerDay:  200,
		AnonFilesPerDay:  5,
		UserFilesPerDay:  50,
		AnonMaxTextBytes: 64 << 10,
		UserMaxTextBytes: 1 << 20,
		AnonMaxFileBytes: 10 << 20,
		UserMaxFileBytes: 100 << 20,
		AllowAnonURLs:    true,
		AllowAnonTexts:   true,
		AllowAnonFiles:   true,
		RequireApproval:  false,
		Theme:            "default",
	}
}

// All lists every model in migration order; users precede the tables referencing them.
func All() []interface{} {
	return []interface{}{&User{}, &Url{}, &Text{}, &File{}, &Settings{}, &QuotaUsage{}}
}
