package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/schedulaa/ms-go-checkout/app/factory"
	"github.com/schedulaa/ms-go-checkout/app/mapper"
	"github.com/schedulaa/ms-go-checkout/app/repository"
	"github.com/schedulaa/ms-go-checkout/app/service"
	"github.com/schedulaa/ms-go-checkout/app/types"
)

type CheckoutController struct {
	checkoutService *service.CheckoutService
	logger          logrus.FieldLogger
}

func NewCheckoutController(checkoutService *service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		logger:          factory.NewModuleLogger("checkout-controller"),
	}
}

func (c *CheckoutController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *CheckoutController) AuthorizeRefund(ctx echo.Context) error {
	req, err := types.NewAuthorizeRefundRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	rc := service.RefundContext{
		CompanyID:        req.CompanyId,
		ConnectedAccount: req.ConnectedAccount,
		Now:              time.Now().UTC(),
	}

	decision, err := c.checkoutService.AuthorizeServiceRefund(ctx.Request().Context(), rc, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Authorize refund failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.RefundDecisionToResponse(decision))
}

func (c *CheckoutController) ExecuteRefund(ctx echo.Context) error {
	req, err := types.NewExecuteRefundRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	rc := service.RefundContext{
		CompanyID:        req.CompanyId,
		ConnectedAccount: req.ConnectedAccount,
		Now:              time.Now().UTC(),
	}

	decision, output, err := c.checkoutService.ExecuteServiceRefund(ctx.Request().Context(), rc, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNothingToRefund):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Execute refund failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.RefundExecutionResponse{
		Decision:    *mapper.RefundDecisionToResponse(decision),
		RefundId:    output.ID,
		AmountCents: output.AmountCents,
		Status:      output.Status,
	})
}

func (c *CheckoutController) ListPendingCheckouts(ctx echo.Context) error {
	req, err := types.NewListPendingCheckoutsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.checkoutService.ListPendingCheckouts(ctx.Request().Context(), repository.PendingCheckoutFilter{
		CompanyID: req.CompanyId,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List pending checkouts failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPendingCheckoutsResponse{
		PendingCheckouts: mapper.PendingCheckoutsToResponse(items),
	})
}

func (c *CheckoutController) FinalizePendingCheckout(ctx echo.Context) error {
	req, err := types.NewFinalizePendingCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	rc := service.RefundContext{
		ConnectedAccount: req.ConnectedAccount,
		Now:              time.Now().UTC(),
	}

	row, session, finalized, err := c.checkoutService.FinalizePending(ctx.Request().Context(), rc, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPendingCheckoutNotFound):
			return c.writeError(ctx, http.StatusNotFound, "pending checkout not found")
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusConflict, "released checkout cannot be finalized")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Finalize pending checkout failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	resp := &types.FinalizeResultResponse{
		PendingCheckout: mapper.PendingCheckoutToResponse(row),
		Finalized:       finalized,
	}
	if session != nil {
		resp.SessionStatus = session.Status
		resp.PaymentStatus = session.PaymentStatus
	}

	// An unpaid session is reported as a conflict so the caller knows the
	// checkout is still open upstream.
	statusCode := http.StatusOK
	if !finalized && session != nil {
		statusCode = http.StatusConflict
	}

	return ctx.JSON(statusCode, resp)
}

func (c *CheckoutController) ExpirePendingCheckouts(ctx echo.Context) error {
	req, err := types.NewExpirePendingCheckoutsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	released, err := c.checkoutService.ExpireStalePending(ctx.Request().Context(), req.CompanyId, time.Now().UTC())
	if err != nil {
		// Expiry degrades rather than failing the caller; the pass simply
		// made no progress this time.
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Expire pending checkouts failed")
		released = 0
	}

	return ctx.JSON(http.StatusOK, &types.ExpireResultResponse{
		CompanyId:     req.CompanyId,
		ReleasedCount: released,
	})
}

func (c *CheckoutController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
