package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schedulaa/ms-go-checkout/app/entity"
	"github.com/schedulaa/ms-go-checkout/app/provider"
	"github.com/schedulaa/ms-go-checkout/app/types"
)

// ChargeSnapshot is the upstream view of a payment intent's charge at one
// point in time. When the charge could not be read, RemainingCents falls back
// to the caller's local estimate and the charge fields stay nil.
type ChargeSnapshot struct {
	RemainingCents      int64
	ChargeID            *string
	AmountCents         *int64
	RefundedCents       *int64
	ApplicationFeeCents *int64
}

type RefundDecision struct {
	PaymentIntentID       string
	Snapshot              *ChargeSnapshot
	PriorRefunds          *types.RefundBucketTotals
	RefundableBeforeCents int64
	RequestedCents        int64
	AmountCents           int64
	RefundApplicationFee  bool
}

// ReadChargeSnapshot resolves a payment intent to its latest charge and reads
// captured, refunded, and platform-fee amounts. Upstream failures degrade to
// localRemainingCents; this never returns an error.
func (s *CheckoutService) ReadChargeSnapshot(ctx context.Context, p provider.Provider, rc RefundContext, paymentIntentID string, localRemainingCents int64) *ChargeSnapshot {
	fallback := localRemainingCents
	if fallback < 0 {
		fallback = 0
	}

	intent, err := p.GetPaymentIntent(ctx, paymentIntentID, rc.ConnectedAccount)
	if err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", paymentIntentID).
			Error("charge snapshot: payment intent lookup failed")
		return &ChargeSnapshot{RemainingCents: fallback}
	}
	if intent.LatestChargeID == nil {
		s.logger.WithFields(map[string]interface{}{
			"payment_intent_id": paymentIntentID,
			"remaining_cents":   fallback,
		}).Info("charge snapshot: no charge on intent")
		return &ChargeSnapshot{RemainingCents: fallback}
	}

	chargeID := *intent.LatestChargeID
	charge, err := p.GetCharge(ctx, chargeID, rc.ConnectedAccount)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"payment_intent_id": paymentIntentID,
			"charge_id":         chargeID,
		}).Error("charge snapshot: charge lookup failed")
		return &ChargeSnapshot{RemainingCents: fallback, ChargeID: &chargeID}
	}

	remaining := charge.AmountCents - charge.AmountRefundedCents
	if remaining < 0 {
		remaining = 0
	}

	s.logger.WithFields(map[string]interface{}{
		"payment_intent_id": paymentIntentID,
		"charge_id":         charge.ID,
		"amount_cents":      charge.AmountCents,
		"refunded_cents":    charge.AmountRefundedCents,
		"remaining_cents":   remaining,
	}).Info("charge snapshot")

	amount := charge.AmountCents
	refunded := charge.AmountRefundedCents
	return &ChargeSnapshot{
		RemainingCents:      remaining,
		ChargeID:            &chargeID,
		AmountCents:         &amount,
		RefundedCents:       &refunded,
		ApplicationFeeCents: charge.ApplicationFeeCents,
	}
}

// RefundBuckets folds the intent's prior refunds into per-bucket totals.
// With onlyForAppointmentID set, a refund counts only when its
// metadata.appointment_id parses to that exact integer; missing or
// unparsable metadata excludes the record. Upstream failures log a warning
// and return whatever was accumulated.
func (s *CheckoutService) RefundBuckets(ctx context.Context, p provider.Provider, rc RefundContext, paymentIntentID string, onlyForAppointmentID *int64) *types.RefundBucketTotals {
	totals := &types.RefundBucketTotals{}

	refunds, err := p.ListRefunds(ctx, paymentIntentID, rc.ConnectedAccount, s.refundListLimit())
	if err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", paymentIntentID).
			Warn("refund bucket aggregation: listing refunds failed")
		return totals
	}

	for _, refund := range refunds {
		if onlyForAppointmentID != nil {
			appointmentRaw := strings.TrimSpace(refund.Metadata["appointment_id"])
			appointmentID, err := strconv.ParseInt(appointmentRaw, 10, 64)
			if err != nil || appointmentID != *onlyForAppointmentID {
				continue
			}
		}
		totals.Add(types.ParseRefundBucket(refund.Metadata["bucket"]), refund.AmountCents)
	}

	return totals
}

// AuthorizeServiceRefund computes how much of the service bucket can still be
// refunded and whether the platform fee should be refunded alongside.
func (s *CheckoutService) AuthorizeServiceRefund(ctx context.Context, rc RefundContext, req *types.AuthorizeRefundRequest) (*RefundDecision, error) {
	decision, _, err := s.authorizeServiceRefund(ctx, rc, req)
	return decision, err
}

func (s *CheckoutService) authorizeServiceRefund(ctx context.Context, rc RefundContext, req *types.AuthorizeRefundRequest) (*RefundDecision, provider.Provider, error) {
	if strings.TrimSpace(req.PaymentIntentId) == "" {
		return nil, nil, ErrInvalidRequest
	}

	providerClient, err := s.resolveProvider(req.Provider)
	if err != nil {
		return nil, nil, err
	}

	prior := s.RefundBuckets(ctx, providerClient, rc, req.PaymentIntentId, req.AppointmentId)
	bucketRemaining := req.CapturedServiceCents - prior.ServiceCents
	if bucketRemaining < 0 {
		bucketRemaining = 0
	}

	snapshot := s.ReadChargeSnapshot(ctx, providerClient, rc, req.PaymentIntentId, req.LocalRemainingCents)

	refundableBefore := snapshot.RemainingCents
	if bucketRemaining < refundableBefore {
		refundableBefore = bucketRemaining
	}
	if refundableBefore < 0 {
		refundableBefore = 0
	}

	requested, ok := req.ResolveRequestedCents()
	if !ok {
		requested = refundableBefore
	}

	amount := requested
	if amount > refundableBefore {
		amount = refundableBefore
	}
	if amount < 0 {
		amount = 0
	}

	refundFee := rc.ConnectedAccount != "" &&
		req.RefundPlatformFee &&
		snapshot.ApplicationFeeCents != nil &&
		*snapshot.ApplicationFeeCents > 0

	decision := &RefundDecision{
		PaymentIntentID:       req.PaymentIntentId,
		Snapshot:              snapshot,
		PriorRefunds:          prior,
		RefundableBeforeCents: refundableBefore,
		RequestedCents:        requested,
		AmountCents:           amount,
		RefundApplicationFee:  refundFee,
	}

	s.recordRefundEvent(ctx, rc, "refund_authorized", req.PaymentIntentId, amount, decision)

	return decision, providerClient, nil
}

// ExecuteServiceRefund authorizes and then performs the refund upstream,
// tagging it with the service bucket and the appointment it belongs to.
func (s *CheckoutService) ExecuteServiceRefund(ctx context.Context, rc RefundContext, req *types.ExecuteRefundRequest) (*RefundDecision, *provider.RefundOutput, error) {
	decision, providerClient, err := s.authorizeServiceRefund(ctx, rc, &req.AuthorizeRefundRequest)
	if err != nil {
		return nil, nil, err
	}
	if decision.AmountCents <= 0 {
		return decision, nil, ErrNothingToRefund
	}

	metadata := map[string]string{
		"bucket":     string(types.RefundBucketService),
		"company_id": strconv.FormatUint(rc.CompanyID, 10),
	}
	if req.AppointmentId != nil {
		metadata["appointment_id"] = strconv.FormatInt(*req.AppointmentId, 10)
	}
	if req.Reason != "" {
		metadata["reason"] = req.Reason
	}

	output, err := providerClient.CreateRefund(ctx, &provider.RefundInput{
		PaymentIntentID:      req.PaymentIntentId,
		AmountCents:          decision.AmountCents,
		RefundApplicationFee: decision.RefundApplicationFee,
		Metadata:             metadata,
		IdempotencyKey:       uuid.NewString(),
		ConnectedAccount:     rc.ConnectedAccount,
	})
	if err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", req.PaymentIntentId).
			Error("refund execution failed")
		return decision, nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}

	s.recordRefundEvent(ctx, rc, "refund_executed", req.PaymentIntentId, output.AmountCents, decision)

	return decision, output, nil
}

func (s *CheckoutService) recordRefundEvent(ctx context.Context, rc RefundContext, eventType, paymentIntentID string, amountCents int64, decision *RefundDecision) {
	detail, err := json.Marshal(map[string]interface{}{
		"refundable_before_cents": decision.RefundableBeforeCents,
		"requested_cents":         decision.RequestedCents,
		"refund_application_fee":  decision.RefundApplicationFee,
		"prior_service_cents":     decision.PriorRefunds.ServiceCents,
		"prior_total_cents":       decision.PriorRefunds.TotalCents,
	})
	if err != nil {
		return
	}
	detailJSON := string(detail)

	now := rc.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if err := s.eventRepo.Create(ctx, &entity.CheckoutEvent{
		CompanyID:       rc.CompanyID,
		EventType:       eventType,
		PaymentIntentID: &paymentIntentID,
		AmountCents:     &amountCents,
		DetailJSON:      &detailJSON,
		CreatedAt:       now,
	}); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"event_type":        eventType,
			"payment_intent_id": paymentIntentID,
		}).Warn("recording checkout event failed")
	}
}
