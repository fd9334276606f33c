package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrForbidden        = errors.New("forbidden")
)

// Rule names an invariant a ValidationError reports as violated.
type Rule string

const (
	RuleTitleRequired    Rule = "title_required"
	RuleBudgetPositive   Rule = "budget_positive"
	RulePricePositive    Rule = "price_positive"
	RulePriceNonNegative Rule = "price_non_negative"
	RuleDateFormat       Rule = "date_format"
	RuleTimeFormat       Rule = "time_format"
	RuleTimeOrder        Rule = "end_after_start"
	RuleSelfOffer        Rule = "self_offer"
	RuleGigOpen          Rule = "gig_open"
	RuleGigAssigned      Rule = "gig_assigned"
	RuleGigCompleted     Rule = "gig_completed"
	RuleOfferPending     Rule = "offer_pending"
	RuleOfferBelongs     Rule = "offer_belongs_to_gig"
	RuleReviewUnique     Rule = "review_unique"
	RuleRatingRange      Rule = "rating_range"
	RuleContentRequired  Rule = "content_required"
	RuleParticipant      Rule = "booking_participant"
	RuleSelfMessage      Rule = "self_message"
	RuleSelfBooking      Rule = "self_booking"
	RuleGigOwner         Rule = "gig_owner"
)

// ValidationError is returned when a precondition fails. Err is one of the
// package sentinels, so errors.Is(err, ErrInvalidState) works on it.
type ValidationError struct {
	Rule    Rule
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Err, e.Message, e.Rule)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalidInput(rule Rule, msg string) error {
	return &ValidationError{Rule: rule, Message: msg, Err: ErrInvalidInput}
}

func invalidState(rule Rule, msg string) error {
	return &ValidationError{Rule: rule, Message: msg, Err: ErrInvalidState}
}

// ErrNotGigOwner is returned when someone other than the gig owner tries an
// owner-only transition.
var ErrNotGigOwner = &ValidationError{Rule: RuleGigOwner, Message: "only the gig owner can do this", Err: ErrForbidden}

// RuleOf returns the violated rule carried by err, if any.
func RuleOf(err error) (Rule, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Rule, true
	}
	return "", false
}
