package domain

import (
	"math"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func ValidateGig(g *Gig) error {
	if strings.TrimSpace(g.Title) == "" {
		return invalidInput(RuleTitleRequired, "title is required")
	}
	if math.IsNaN(g.Budget) || g.Budget <= 0 {
		return invalidInput(RuleBudgetPositive, "budget must be greater than zero")
	}
	if err := ValidateDate(g.GigDate); err != nil {
		return err
	}
	start, err := time.Parse(TimeLayout, g.StartTime)
	if err != nil {
		return invalidInput(RuleTimeFormat, "start_time must be HH:MM")
	}
	end, err := time.Parse(TimeLayout, g.EndTime)
	if err != nil {
		return invalidInput(RuleTimeFormat, "end_time must be HH:MM")
	}
	if !end.After(start) {
		return invalidInput(RuleTimeOrder, "end_time must be after start_time")
	}
	return nil
}

func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return invalidInput(RuleDateFormat, "date must be YYYY-MM-DD")
	}
	return nil
}

// CanReceiveOffer checks that providerID may bid price on g.
func CanReceiveOffer(g *Gig, providerID int64, price float64) error {
	if g.Status != GigOpen {
		return invalidState(RuleGigOpen, "gig is not open for offers")
	}
	if math.IsNaN(price) || price <= 0 {
		return invalidInput(RulePricePositive, "price must be greater than zero")
	}
	if providerID == g.OwnerID {
		return invalidInput(RuleSelfOffer, "cannot make an offer on your own gig")
	}
	return nil
}

// CanAccept checks that o may be accepted on g.
func CanAccept(g *Gig, o *Offer) error {
	if o.GigID != g.ID {
		return invalidState(RuleOfferBelongs, "offer does not belong to this gig")
	}
	if next, ok := g.Status.Next(); !ok || next != GigAssigned {
		return invalidState(RuleGigOpen, "gig is no longer open")
	}
	if !o.Actionable() {
		return invalidState(RuleOfferPending, "offer is no longer pending")
	}
	return nil
}

func CanComplete(g *Gig) error {
	if next, ok := g.Status.Next(); !ok || next != GigCompleted {
		return ErrGigNotAssigned
	}
	return nil
}

// CanReview checks review eligibility. reviewed reports whether a review
// already exists for g.
func CanReview(g *Gig, reviewed bool, rating int) error {
	if rating < MinRating || rating > MaxRating {
		return invalidInput(RuleRatingRange, "rating must be between 1 and 5")
	}
	if g.Status != GigCompleted {
		return invalidState(RuleGigCompleted, "gig is not completed")
	}
	if reviewed {
		return ErrReviewExists
	}
	return nil
}

func ValidateService(s *Service) error {
	if strings.TrimSpace(s.Title) == "" {
		return invalidInput(RuleTitleRequired, "title is required")
	}
	if math.IsNaN(s.Price) || s.Price < 0 {
		return invalidInput(RulePriceNonNegative, "price must not be negative")
	}
	return nil
}

func ValidateMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalidInput(RuleContentRequired, "content is required")
	}
	return nil
}

// CanBook checks that consumerID may book svc on date.
func CanBook(svc *Service, consumerID int64, date string) error {
	if err := ValidateDate(date); err != nil {
		return err
	}
	if svc.ProviderID == consumerID {
		return invalidInput(RuleSelfBooking, "cannot book your own service")
	}
	return nil
}

// CanMessage checks that senderID may write to receiverID on b. Both must be
// participants and distinct. b.Service must be loaded.
func CanMessage(b *Booking, senderID, receiverID int64) error {
	if !b.HasParticipant(senderID) || !b.HasParticipant(receiverID) {
		return ErrNotParticipant
	}
	if senderID == receiverID {
		return invalidInput(RuleSelfMessage, "cannot send a message to yourself")
	}
	return nil
}

var (
	ErrReviewExists = invalidState(RuleReviewUnique, "gig already has a review")
	// ErrOfferRaceLost is returned when a conditional update finds the gig no longer open.
	ErrOfferRaceLost  = invalidState(RuleGigOpen, "gig is no longer open")
	ErrGigNotAssigned = invalidState(RuleGigAssigned, "only an assigned gig can be completed")
	ErrNotParticipant = &ValidationError{Rule: RuleParticipant, Message: "user is not a participant of this booking", Err: ErrForbidden}
)
