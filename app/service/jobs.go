package service

import (
	"context"
	"time"
)

// RunExpirePendingBatch runs the stale-cart expiry pass for every company
// that currently has stale rows. Each company keeps its own transaction.
func (s *CheckoutService) RunExpirePendingBatch(ctx context.Context) error {
	minutes := s.checkoutCfg.PendingTimeoutMinutes
	if minutes <= 0 {
		return nil
	}

	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(minutes) * time.Minute)

	companies, err := s.pendingRepo.CompaniesWithStale(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, companyID := range companies {
		if _, err := s.ExpireStalePending(ctx, companyID, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}
