package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ChargeSnapshotResponse struct {
	RemainingCents      int64   `json:"remaining_cents"`
	ChargeId            *string `json:"charge_id,omitempty"`
	AmountCents         *int64  `json:"amount_cents,omitempty"`
	RefundedCents       *int64  `json:"refunded_cents,omitempty"`
	ApplicationFeeCents *int64  `json:"application_fee_cents,omitempty"`
}

type RefundDecisionResponse struct {
	PaymentIntentId       string                 `json:"payment_intent_id"`
	RefundableBeforeCents int64                  `json:"refundable_before_cents"`
	RequestedCents        int64                  `json:"requested_cents"`
	AmountToRefundCents   int64                  `json:"amount_to_refund_cents"`
	RefundApplicationFee  bool                   `json:"refund_application_fee"`
	Snapshot              ChargeSnapshotResponse `json:"snapshot"`
	PriorRefunds          RefundBucketTotals     `json:"prior_refunds"`
}

type RefundExecutionResponse struct {
	Decision    RefundDecisionResponse `json:"decision"`
	RefundId    string                 `json:"refund_id"`
	AmountCents int64                  `json:"amount_cents"`
	Status      string                 `json:"status"`
}

type PendingCheckoutResponse struct {
	Id                uint64                 `json:"id"`
	CompanyId         uint64                 `json:"company_id"`
	Cart              map[string]interface{} `json:"cart"`
	Extra             map[string]interface{} `json:"extra"`
	PaymentIntentId   string                 `json:"payment_intent_id,omitempty"`
	CheckoutSessionId string                 `json:"checkout_session_id,omitempty"`
	Finalized         bool                   `json:"finalized"`
	Released          bool                   `json:"released"`
	CreatedAt         string                 `json:"created_at"`
	UpdatedAt         string                 `json:"updated_at,omitempty"`
}

type ListPendingCheckoutsResponse struct {
	PendingCheckouts []*PendingCheckoutResponse `json:"pending_checkouts"`
}

type FinalizeResultResponse struct {
	PendingCheckout *PendingCheckoutResponse `json:"pending_checkout"`
	Finalized       bool                     `json:"finalized"`
	SessionStatus   string                   `json:"session_status,omitempty"`
	PaymentStatus   string                   `json:"payment_status,omitempty"`
}

type ExpireResultResponse struct {
	CompanyId     uint64 `json:"company_id"`
	ReleasedCount int    `json:"released_count"`
}
