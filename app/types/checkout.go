package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type ListPendingCheckoutsRequest struct {
	CompanyId uint64
	Limit     int32
	Offset    int32
}

func NewListPendingCheckoutsRequestFromContext(ctx echo.Context) (*ListPendingCheckoutsRequest, error) {
	req := &ListPendingCheckoutsRequest{Limit: 100}

	companyRaw := strings.TrimSpace(ctx.QueryParam("company_id"))
	if companyRaw != "" {
		companyID, err := strconv.ParseUint(companyRaw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.CompanyId = companyID
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListPendingCheckoutsRequest) Validate() error {
	if r.CompanyId == 0 {
		return errors.New("company_id is required")
	}
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

type FinalizePendingCheckoutRequest struct {
	Id                uint64 `json:"-"`
	Provider          string `json:"provider"`
	ConnectedAccount  string `json:"connected_account"`
	CheckoutSessionId string `json:"checkout_session_id"`
}

func NewFinalizePendingCheckoutRequestFromContext(ctx echo.Context) (*FinalizePendingCheckoutRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body FinalizePendingCheckoutRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Id = id
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	if body.Provider == "" {
		body.Provider = "stripe"
	}
	body.ConnectedAccount = strings.TrimSpace(body.ConnectedAccount)
	body.CheckoutSessionId = strings.TrimSpace(body.CheckoutSessionId)

	return &body, nil
}

func (r *FinalizePendingCheckoutRequest) Validate() error {
	if r.Id == 0 {
		return errors.New("invalid pending checkout id")
	}
	return nil
}

type ExpirePendingCheckoutsRequest struct {
	CompanyId uint64 `json:"company_id"`
}

func NewExpirePendingCheckoutsRequestFromContext(ctx echo.Context) (*ExpirePendingCheckoutsRequest, error) {
	var body ExpirePendingCheckoutsRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &body, nil
}

func (r *ExpirePendingCheckoutsRequest) Validate() error {
	if r.CompanyId == 0 {
		return errors.New("company_id is required")
	}
	return nil
}
