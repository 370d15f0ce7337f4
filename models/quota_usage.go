package models

import "time"

// QuotaUsage stores how many items a subject created of one kind on one day.
type QuotaUsage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       string    `gorm:"index:idx_quota_day_subject_kind,unique;size:8;not null" json:"day"`
	Subject   string    `gorm:"index:idx_quota_day_subject_kind,unique;size:128;not null" json:"subject"`
	Kind      string    `gorm:"index:idx_quota_day_subject_kind,unique;size:8;not null" json:"kind"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
