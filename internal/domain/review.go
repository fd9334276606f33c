package domain

import "time"

// Review rates the provider of a completed gig. One per gig.
type Review struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	GigID      int64     `json:"gig_id" gorm:"not null;uniqueIndex"`
	ReviewerID int64     `json:"reviewer_id" gorm:"not null"`
	RevieweeID int64     `json:"reviewee_id" gorm:"not null;index"`
	Rating     int       `json:"rating" gorm:"not null"`
	Comment    string    `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Review) TableName() string { return "reviews" }

const (
	MinRating = 1
	MaxRating = 5
)
