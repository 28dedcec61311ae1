package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schedulaa/ms-go-checkout/app/entity"
	"github.com/schedulaa/ms-go-checkout/app/factory"
	"github.com/schedulaa/ms-go-checkout/app/provider"
	"github.com/schedulaa/ms-go-checkout/app/repository"
	"github.com/schedulaa/ms-go-checkout/config"
)

const (
	defaultRefundListLimit = 100
	defaultBatchSize       = int32(100)
)

type pendingCheckoutRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.PendingCheckout, error)
	Update(ctx context.Context, row *entity.PendingCheckout) error
	SaveAll(ctx context.Context, rows []*entity.PendingCheckout) error
	List(ctx context.Context, filter repository.PendingCheckoutFilter) ([]*entity.PendingCheckout, error)
	ListStale(ctx context.Context, companyID uint64, cutoff time.Time) ([]*entity.PendingCheckout, error)
	CompaniesWithStale(ctx context.Context, cutoff time.Time, limit int32) ([]uint64, error)
}

type checkoutEventRepository interface {
	Create(ctx context.Context, event *entity.CheckoutEvent) error
}

// RefundContext carries the request-scoped state the refund operations need:
// the company being acted on, the connected account the platform is acting
// for (empty for direct charges), and the caller's clock.
type RefundContext struct {
	CompanyID        uint64
	ConnectedAccount string
	Now              time.Time
}

type CheckoutService struct {
	pendingRepo pendingCheckoutRepository
	eventRepo   checkoutEventRepository
	providerReg *provider.Registry
	checkoutCfg config.CheckoutConfig
	logger      logrus.FieldLogger
}

func NewCheckoutService(
	pendingRepo pendingCheckoutRepository,
	eventRepo checkoutEventRepository,
	providerReg *provider.Registry,
	checkoutCfg config.CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		pendingRepo: pendingRepo,
		eventRepo:   eventRepo,
		providerReg: providerReg,
		checkoutCfg: checkoutCfg,
		logger:      factory.NewModuleLogger("checkout-service"),
	}
}

func (s *CheckoutService) ListPendingCheckouts(ctx context.Context, filter repository.PendingCheckoutFilter) ([]*entity.PendingCheckout, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.pendingRepo.List(ctx, filter)
}

func (s *CheckoutService) resolveProvider(name string) (provider.Provider, error) {
	providerClient, err := s.providerReg.Get(name)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}
	return providerClient, nil
}

func (s *CheckoutService) refundListLimit() int {
	if s.checkoutCfg.RefundListLimit > 0 {
		return s.checkoutCfg.RefundListLimit
	}
	return defaultRefundListLimit
}

func (s *CheckoutService) batchSize() int32 {
	if s.checkoutCfg.JobBatchSize > 0 {
		return s.checkoutCfg.JobBatchSize
	}
	return defaultBatchSize
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
