package domain

import "time"

type BookingStatus string

const (
	BookingPending BookingStatus = "pending"
)

// Service is a standing listing published by a provider.
type Service struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	ProviderID  int64     `json:"provider_id" gorm:"not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Price       float64   `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (Service) TableName() string { return "services" }

// Booking reserves a service for a consumer on a date. Its lifecycle past
// creation is not enforced here.
type Booking struct {
	ID          int64         `json:"id" gorm:"primaryKey"`
	ServiceID   int64         `json:"service_id" gorm:"not null;index"`
	ConsumerID  int64         `json:"consumer_id" gorm:"not null;index"`
	BookingDate string        `json:"booking_date" gorm:"size:10;not null"`
	Status      BookingStatus `json:"status" gorm:"size:16;not null;default:pending"`
	CreatedAt   time.Time     `json:"created_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (Booking) TableName() string { return "bookings" }

// HasParticipant reports whether userID is the consumer or the service provider.
// Service must be loaded.
func (b *Booking) HasParticipant(userID int64) bool {
	if b.ConsumerID == userID {
		return true
	}
	return b.Service != nil && b.Service.ProviderID == userID
}
