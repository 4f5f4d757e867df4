package models

import (
	"time"
)

// Link represents a shortened URL
type Link struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Code        string     `gorm:"size:64;uniqueIndex;not null" json:"code"`
	OriginalURL string     `gorm:"not null" json:"original_url"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
}

// TableName specifies the table name
func (Link) TableName() string {
	return "links"
}

// Expired reports whether the link carries an expiry that is in the
// past. Links without an expiry never expire.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
