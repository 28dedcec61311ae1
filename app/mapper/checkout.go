package mapper

import (
	"time"

	"github.com/schedulaa/ms-go-checkout/app/entity"
	"github.com/schedulaa/ms-go-checkout/app/service"
	"github.com/schedulaa/ms-go-checkout/app/types"
)

func PendingCheckoutToResponse(item *entity.PendingCheckout) *types.PendingCheckoutResponse {
	if item == nil {
		return nil
	}

	resp := &types.PendingCheckoutResponse{
		Id:                item.ID,
		CompanyId:         item.CompanyID,
		Cart:              cloneDoc(item.Cart),
		Extra:             cloneDoc(item.Extra),
		PaymentIntentId:   derefString(item.PaymentIntentID),
		CheckoutSessionId: derefString(item.CheckoutSessionID),
		Finalized:         item.IsFinalized(),
		Released:          item.IsReleased(),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.UpdatedAt != nil {
		resp.UpdatedAt = item.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

func PendingCheckoutsToResponse(items []*entity.PendingCheckout) []*types.PendingCheckoutResponse {
	result := make([]*types.PendingCheckoutResponse, 0, len(items))
	for _, item := range items {
		result = append(result, PendingCheckoutToResponse(item))
	}
	return result
}

func RefundDecisionToResponse(decision *service.RefundDecision) *types.RefundDecisionResponse {
	if decision == nil {
		return nil
	}

	return &types.RefundDecisionResponse{
		PaymentIntentId:       decision.PaymentIntentID,
		RefundableBeforeCents: decision.RefundableBeforeCents,
		RequestedCents:        decision.RequestedCents,
		AmountToRefundCents:   decision.AmountCents,
		RefundApplicationFee:  decision.RefundApplicationFee,
		Snapshot: types.ChargeSnapshotResponse{
			RemainingCents:      decision.Snapshot.RemainingCents,
			ChargeId:            decision.Snapshot.ChargeID,
			AmountCents:         decision.Snapshot.AmountCents,
			RefundedCents:       decision.Snapshot.RefundedCents,
			ApplicationFeeCents: decision.Snapshot.ApplicationFeeCents,
		},
		PriorRefunds: *decision.PriorRefunds,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func cloneDoc(src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return map[string]interface{}{}
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
