package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventOfferSubmitted EventType = "offer_submitted"
	EventOfferAccepted  EventType = "offer_accepted"
	EventGigCompleted   EventType = "gig_completed"
	EventReviewReceived EventType = "review_received"
)

// Event describes a completed lifecycle transition. RecipientID is the
// counterparty that should hear about it.
type Event struct {
	Type        EventType `json:"type"`
	RecipientID int64     `json:"recipient_id"`
	ActorID     int64     `json:"actor_id"`
	GigID       int64     `json:"gig_id"`
	GigTitle    string    `json:"gig_title,omitempty"`
	OfferID     int64     `json:"offer_id,omitempty"`
	ReviewID    int64     `json:"review_id,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Rating      int       `json:"rating,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventSink receives lifecycle events after the transition has committed.
type EventSink interface {
	HandleEvent(ctx context.Context, e Event) error
}
