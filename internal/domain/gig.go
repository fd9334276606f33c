package domain

import "time"

type GigStatus string

const (
	GigOpen      GigStatus = "open"
	GigAssigned  GigStatus = "assigned"
	GigCompleted GigStatus = "completed"
)

// Gig is a short-term request posted by its owner. Status only moves forward:
// open -> assigned -> completed.
type Gig struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	OwnerID     int64     `json:"owner_id" gorm:"not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	GigDate     string    `json:"gig_date" gorm:"size:10;not null;index"`
	StartTime   string    `json:"start_time" gorm:"size:5;not null"`
	EndTime     string    `json:"end_time" gorm:"size:5;not null"`
	Budget      float64   `json:"budget" gorm:"type:numeric(12,2);not null"`
	Status      GigStatus `json:"status" gorm:"size:16;not null;default:open;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Offers []Offer `json:"offers,omitempty" gorm:"foreignKey:GigID"`
}

func (Gig) TableName() string { return "gigs" }

// Next reports the only status a gig may move to from s.
func (s GigStatus) Next() (GigStatus, bool) {
	switch s {
	case GigOpen:
		return GigAssigned, true
	case GigAssigned:
		return GigCompleted, true
	default:
		return "", false
	}
}

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	// OfferClosed marks a sibling of the accepted offer. It can no longer be acted on.
	OfferClosed OfferStatus = "closed"
)

// Offer is a provider's bid on a gig. The partial unique index keeps a single
// accepted offer per gig at the storage level.
type Offer struct {
	ID         int64       `json:"id" gorm:"primaryKey"`
	GigID      int64       `json:"gig_id" gorm:"not null;index;uniqueIndex:idx_offers_one_accepted,where:status = 'accepted'"`
	ProviderID int64       `json:"provider_id" gorm:"not null;index"`
	Price      float64     `json:"price" gorm:"type:numeric(12,2);not null"`
	Message    string      `json:"message,omitempty" gorm:"type:text"`
	Status     OfferStatus `json:"status" gorm:"size:16;not null;default:pending"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`

	Gig *Gig `json:"gig,omitempty" gorm:"foreignKey:GigID"`
}

func (Offer) TableName() string { return "offers" }

func (o *Offer) Actionable() bool {
	return o.Status == OfferPending
}
