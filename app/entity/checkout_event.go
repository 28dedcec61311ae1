package entity

import "time"

type CheckoutEvent struct {
	ID uint64

	PendingCheckoutID *uint64
	CompanyID         uint64

	EventType string

	PaymentIntentID *string
	AmountCents     *int64
	DetailJSON      *string

	CreatedAt time.Time
}
