package domain

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// Notification is owned by a single user. Only the read flag ever changes.
type Notification struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	UserID    int64          `json:"user_id" gorm:"not null;index"`
	Message   string         `json:"message" gorm:"type:text;not null"`
	Type      EventType      `json:"type,omitempty" gorm:"size:32"`
	Data      datatypes.JSON `json:"data,omitempty" gorm:"type:jsonb"`
	IsRead    bool           `json:"is_read" gorm:"not null;default:false"`
	ReadAt    sql.NullTime   `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// MarkAsRead marks notification as read with timestamp
func (n *Notification) MarkAsRead() {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = sql.NullTime{Time: time.Now(), Valid: true}
}
