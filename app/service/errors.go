package service

import "errors"

var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrPendingCheckoutNotFound = errors.New("pending checkout not found")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrProviderUnsupported     = errors.New("provider is not supported")
	ErrNothingToRefund         = errors.New("nothing to refund")
	ErrRefundFailed            = errors.New("refund failed")
)
