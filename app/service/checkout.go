package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/schedulaa/ms-go-checkout/app/entity"
	"github.com/schedulaa/ms-go-checkout/app/provider"
	"github.com/schedulaa/ms-go-checkout/app/types"
)

// ExpireStalePending releases a company's pending checkouts that have sat
// untouched past the configured timeout. The whole pass commits as one
// transaction; a commit failure is logged and the pass reports zero releases.
func (s *CheckoutService) ExpireStalePending(ctx context.Context, companyID uint64, now time.Time) (int, error) {
	minutes := s.checkoutCfg.PendingTimeoutMinutes
	if minutes <= 0 {
		return 0, nil
	}

	cutoff := now.Add(-time.Duration(minutes) * time.Minute)
	rows, err := s.pendingRepo.ListStale(ctx, companyID, cutoff)
	if err != nil {
		return 0, err
	}

	released := make([]*entity.PendingCheckout, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.IsFinalized() || row.IsReleased() {
			continue
		}
		if !row.HasCartContent() {
			continue
		}
		row.MarkReleased(entity.ReleaseReasonExpiredTimeout, now)
		released = append(released, row)
	}

	if len(released) == 0 {
		return 0, nil
	}

	if err := s.pendingRepo.SaveAll(ctx, released); err != nil {
		s.logger.WithError(err).WithField("company_id", companyID).
			Error("expiring stale pending checkouts: commit failed")
		return 0, nil
	}

	for _, row := range released {
		pendingID := row.ID
		if err := s.eventRepo.Create(ctx, &entity.CheckoutEvent{
			PendingCheckoutID: &pendingID,
			CompanyID:         companyID,
			EventType:         "checkout_released",
			PaymentIntentID:   row.PaymentIntentID,
			DetailJSON:        detailJSON(map[string]interface{}{"reason": entity.ReleaseReasonExpiredTimeout}),
			CreatedAt:         now.UTC(),
		}); err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"event_type": "checkout_released",
				"pending_id": pendingID,
			}).Warn("recording checkout event failed")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"company_id":     companyID,
		"released_count": len(released),
	}).Info("expired stale pending checkouts")

	return len(released), nil
}

// FinalizePending converts a pending checkout into a confirmed one, but only
// after the upstream session reports the payment went through. An unpaid or
// open session is a skip, not an error; the session is returned so callers
// can report why.
func (s *CheckoutService) FinalizePending(ctx context.Context, rc RefundContext, req *types.FinalizePendingCheckoutRequest) (*entity.PendingCheckout, *provider.CheckoutSession, bool, error) {
	row, err := s.pendingRepo.FindByID(ctx, req.Id)
	if err != nil {
		return nil, nil, false, err
	}
	if row == nil {
		return nil, nil, false, ErrPendingCheckoutNotFound
	}
	if row.IsFinalized() {
		return row, nil, true, nil
	}
	if row.IsReleased() {
		return row, nil, false, ErrInvalidStatus
	}

	sessionID := strings.TrimSpace(req.CheckoutSessionId)
	if sessionID == "" && row.CheckoutSessionID != nil {
		sessionID = strings.TrimSpace(*row.CheckoutSessionID)
	}
	if sessionID == "" {
		return row, nil, false, ErrInvalidRequest
	}

	providerClient, err := s.resolveProvider(req.Provider)
	if err != nil {
		return row, nil, false, err
	}

	session, err := providerClient.GetCheckoutSession(ctx, sessionID, rc.ConnectedAccount)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"pending_id": row.ID,
			"session_id": sessionID,
		}).Error("finalize: session lookup failed, skipping")
		return row, nil, false, nil
	}

	paid := strings.EqualFold(session.PaymentStatus, "paid") ||
		strings.EqualFold(session.Status, "complete")
	if !paid {
		s.logger.WithFields(map[string]interface{}{
			"pending_id":     row.ID,
			"session_status": session.Status,
			"payment_status": session.PaymentStatus,
		}).Info("finalize: session not paid, skipping")
		s.recordFinalizeEvent(ctx, row, "finalize_skipped", session)
		return row, session, false, nil
	}

	now := rc.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	row.MarkFinalized(now)
	if err := s.pendingRepo.Update(ctx, row); err != nil {
		return row, session, false, err
	}

	s.recordFinalizeEvent(ctx, row, "checkout_finalized", session)

	return row, session, true, nil
}

func (s *CheckoutService) recordFinalizeEvent(ctx context.Context, row *entity.PendingCheckout, eventType string, session *provider.CheckoutSession) {
	pendingID := row.ID
	if err := s.eventRepo.Create(ctx, &entity.CheckoutEvent{
		PendingCheckoutID: &pendingID,
		CompanyID:         row.CompanyID,
		EventType:         eventType,
		PaymentIntentID:   row.PaymentIntentID,
		DetailJSON: detailJSON(map[string]interface{}{
			"session_id":     session.ID,
			"session_status": session.Status,
			"payment_status": session.PaymentStatus,
		}),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"event_type": eventType,
			"pending_id": pendingID,
		}).Warn("recording checkout event failed")
	}
}

func detailJSON(detail map[string]interface{}) *string {
	payload, err := json.Marshal(detail)
	if err != nil {
		return nil
	}
	s := string(payload)
	return &s
}
