package provider

import "context"

type PaymentIntent struct {
	ID                  string
	AmountCents         int64
	AmountReceivedCents int64
	LatestChargeID      *string
}

type Charge struct {
	ID                  string
	AmountCents         int64
	AmountRefundedCents int64
	ApplicationFeeCents *int64
}

type Refund struct {
	ID          string
	AmountCents int64
	Metadata    map[string]string
}

type CheckoutSession struct {
	ID            string
	Status        string
	PaymentStatus string
}

type RefundInput struct {
	PaymentIntentID      string
	AmountCents          int64
	RefundApplicationFee bool
	Metadata             map[string]string
	IdempotencyKey       string
	ConnectedAccount     string
}

type RefundOutput struct {
	ID          string
	AmountCents int64
	Status      string
}

// Provider is the upstream payment processor. Every call optionally runs on
// behalf of a connected account.
type Provider interface {
	Name() string
	GetPaymentIntent(ctx context.Context, id, connectedAccount string) (*PaymentIntent, error)
	GetCharge(ctx context.Context, id, connectedAccount string) (*Charge, error)
	ListRefunds(ctx context.Context, paymentIntentID, connectedAccount string, limit int) ([]*Refund, error)
	GetCheckoutSession(ctx context.Context, id, connectedAccount string) (*CheckoutSession, error)
	CreateRefund(ctx context.Context, input *RefundInput) (*RefundOutput, error)
}
