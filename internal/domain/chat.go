package domain

import "time"

// Message belongs to a booking thread. Messages are never edited.
type Message struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	BookingID  int64     `json:"booking_id" gorm:"not null;index"`
	SenderID   int64     `json:"sender_id" gorm:"not null"`
	ReceiverID int64     `json:"receiver_id" gorm:"not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }
