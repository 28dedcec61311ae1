package types

import (
	"errors"
	"io"
	"math"
	"strings"

	"github.com/labstack/echo/v4"
)

type AuthorizeRefundRequest struct {
	RequestId        string `json:"request_id"`
	CompanyId        uint64 `json:"company_id"`
	Provider         string `json:"provider"`
	ConnectedAccount string `json:"connected_account"`

	PaymentIntentId string `json:"payment_intent_id"`
	AppointmentId   *int64 `json:"appointment_id"`

	CapturedServiceCents int64 `json:"captured_service_cents"`
	LocalRemainingCents  int64 `json:"local_remaining_cents"`

	ServiceRefundCents   *int64   `json:"service_refund_cents"`
	RefundServiceCents   *int64   `json:"refund_service_cents"`
	AmountCents          *int64   `json:"amount_cents"`
	ServiceRefundPercent *float64 `json:"service_refund_percent"`

	RefundPlatformFee bool `json:"refund_platform_fee"`
}

type ExecuteRefundRequest struct {
	AuthorizeRefundRequest
	Reason string `json:"reason"`
}

func NewAuthorizeRefundRequestFromContext(ctx echo.Context) (*AuthorizeRefundRequest, error) {
	var body AuthorizeRefundRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	normalizeAuthorizeRefundRequest(ctx, &body)
	return &body, nil
}

func NewExecuteRefundRequestFromContext(ctx echo.Context) (*ExecuteRefundRequest, error) {
	var body ExecuteRefundRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	normalizeAuthorizeRefundRequest(ctx, &body.AuthorizeRefundRequest)
	body.Reason = strings.TrimSpace(body.Reason)
	return &body, nil
}

func normalizeAuthorizeRefundRequest(ctx echo.Context, body *AuthorizeRefundRequest) {
	body.RequestId = strings.TrimSpace(body.RequestId)
	if body.RequestId == "" {
		body.RequestId = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	if body.Provider == "" {
		body.Provider = "stripe"
	}
	body.ConnectedAccount = strings.TrimSpace(body.ConnectedAccount)
	body.PaymentIntentId = strings.TrimSpace(body.PaymentIntentId)
}

func (r *AuthorizeRefundRequest) Validate() error {
	if strings.TrimSpace(r.RequestId) == "" {
		return errors.New("request_id is required")
	}
	if r.CompanyId == 0 {
		return errors.New("company_id is required")
	}
	if strings.TrimSpace(r.PaymentIntentId) == "" {
		return errors.New("payment_intent_id is required")
	}
	if r.CapturedServiceCents < 0 {
		return errors.New("captured_service_cents must be >= 0")
	}
	if r.LocalRemainingCents < 0 {
		return errors.New("local_remaining_cents must be >= 0")
	}
	for _, v := range []*int64{r.ServiceRefundCents, r.RefundServiceCents, r.AmountCents} {
		if v != nil && *v < 0 {
			return errors.New("refund amounts must be >= 0")
		}
	}
	if r.ServiceRefundPercent != nil && (*r.ServiceRefundPercent < 0 || *r.ServiceRefundPercent > 100) {
		return errors.New("service_refund_percent must be between 0 and 100")
	}
	return nil
}

// ResolveRequestedCents applies the caller field precedence: the explicit
// service cents fields win over the generic amount, which wins over the
// percentage. The percentage resolves against the captured service amount.
// Returns false when no amount field was supplied.
func (r *AuthorizeRefundRequest) ResolveRequestedCents() (int64, bool) {
	if r.ServiceRefundCents != nil {
		return *r.ServiceRefundCents, true
	}
	if r.RefundServiceCents != nil {
		return *r.RefundServiceCents, true
	}
	if r.AmountCents != nil {
		return *r.AmountCents, true
	}
	if r.ServiceRefundPercent != nil {
		cents := math.Round(float64(r.CapturedServiceCents) * *r.ServiceRefundPercent / 100)
		return int64(cents), true
	}
	return 0, false
}
