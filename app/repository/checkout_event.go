package repository

import (
	"context"

	"github.com/schedulaa/ms-go-checkout/app/entity"
)

type CheckoutEventRepository struct {
	db DBTX
}

func NewCheckoutEventRepository(db DBTX) *CheckoutEventRepository {
	return &CheckoutEventRepository{db: db}
}

func (r *CheckoutEventRepository) Create(ctx context.Context, event *entity.CheckoutEvent) error {
	query := `
		INSERT INTO checkout_events (
			pending_checkout_id, company_id, event_type, payment_intent_id, amount_cents, detail_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(event.PendingCheckoutID),
		event.CompanyID,
		event.EventType,
		nullableStringValue(event.PaymentIntentID),
		nullableInt64Value(event.AmountCents),
		nullableStringValue(event.DetailJSON),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}
