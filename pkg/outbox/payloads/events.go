package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionCreatedEvent is emitted once checkout commits.
type SubscriptionCreatedEvent struct {
	SubscriptionID   uuid.UUID       `json:"subscription_id"`
	UserID           uuid.UUID       `json:"user_id"`
	Plan             string          `json:"plan"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	CouponCode       *string         `json:"coupon_code,omitempty"`
	LettersRemaining int             `json:"letters_remaining"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// SubscriptionStatusEvent covers cancellation and expiry.
type SubscriptionStatusEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	Status         string    `json:"status"`
	At             time.Time `json:"at"`
}

type QuotaRefilledEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	LettersBefore  int       `json:"letters_before"`
	LettersAfter   int       `json:"letters_after"`
	NextRefillDate time.Time `json:"next_refill_date"`
}

type CommissionEvent struct {
	CommissionID   uuid.UUID       `json:"commission_id"`
	EmployeeID     uuid.UUID       `json:"employee_id"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
}

// LetterEvent is shared by the letter lifecycle events.
type LetterEvent struct {
	LetterID      uuid.UUID `json:"letter_id"`
	UserID        uuid.UUID `json:"user_id"`
	LetterType    string    `json:"letter_type"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	AttorneyEmail string    `json:"attorney_email,omitempty"`
}
