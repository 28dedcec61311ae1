package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/schedulaa/ms-go-checkout/app/entity"
	"github.com/schedulaa/ms-go-checkout/app/repository"
)

var seedCompanyID uint64

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert minimal sample pending checkouts for local development",
	Run:   runSeed,
}

func init() {
	seedCmd.Flags().Uint64Var(&seedCompanyID, "company-id", 1, "Company the sample rows belong to")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()
	db := mustOpenDB(cfg)
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}()

	pendingRepo := repository.NewPendingCheckoutRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	stale := now.Add(-2 * time.Hour)

	sessionID := "cs_test_seed_0001"
	rows := []*entity.PendingCheckout{
		{
			CompanyID: seedCompanyID,
			Cart: map[string]interface{}{
				"services": []interface{}{
					map[string]interface{}{"service_id": 101, "price_cents": 5000},
				},
			},
			Extra:             map[string]interface{}{"source": "seed"},
			CheckoutSessionID: &sessionID,
			CreatedAt:         now,
			UpdatedAt:         &now,
		},
		{
			CompanyID: seedCompanyID,
			Cart: map[string]interface{}{
				"items": []interface{}{
					map[string]interface{}{"sku": "giftcard-25", "price_cents": 2500},
				},
			},
			Extra:     map[string]interface{}{"source": "seed"},
			CreatedAt: stale,
			UpdatedAt: &stale,
		},
		{
			CompanyID: seedCompanyID,
			Cart:      map[string]interface{}{"services": []interface{}{}},
			Extra:     map[string]interface{}{"source": "seed"},
			CreatedAt: stale,
			UpdatedAt: &stale,
		},
	}

	created := 0
	for _, row := range rows {
		if err := pendingRepo.Create(ctx, row); err != nil {
			if errors.Is(err, repository.ErrPendingCheckoutAlreadyExists) {
				continue
			}
			logrus.WithError(err).Fatal("Seed failed")
		}
		created++
	}

	logrus.WithFields(logrus.Fields{
		"company_id": seedCompanyID,
		"created":    created,
	}).Info("Seed completed")
}
