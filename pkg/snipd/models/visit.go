package models

import (
	"time"
)

// Visit is one recorded redirect event. Rows are append-only and are
// kept even after their link is deleted.
type Visit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	LinkID    uint      `gorm:"not null;index" json:"link_id"`
	IP        string    `gorm:"size:45" json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
	Country   string    `gorm:"size:8" json:"country"`
	VisitedAt time.Time `gorm:"autoCreateTime" json:"visited_at"`
}

// TableName specifies the table name
func (Visit) TableName() string {
	return "visits"
}
