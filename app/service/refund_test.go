package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/schedulaa/ms-go-checkout/app/entity"
	"github.com/schedulaa/ms-go-checkout/app/provider"
	"github.com/schedulaa/ms-go-checkout/app/repository"
	"github.com/schedulaa/ms-go-checkout/app/types"
	"github.com/schedulaa/ms-go-checkout/config"
)

type fakePendingRepo struct {
	rows map[uint64]*entity.PendingCheckout

	listStaleErr error
	saveAllErr   error
	updateErr    error

	savedAll []uint64
	updated  []uint64
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{rows: map[uint64]*entity.PendingCheckout{}}
}

func (r *fakePendingRepo) put(row *entity.PendingCheckout) {
	copyItem := *row
	r.rows[row.ID] = &copyItem
}

func (r *fakePendingRepo) FindByID(_ context.Context, id uint64) (*entity.PendingCheckout, error) {
	item, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakePendingRepo) Update(_ context.Context, row *entity.PendingCheckout) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.rows[row.ID]; !ok {
		return repository.ErrPendingCheckoutNotFound
	}
	copyItem := *row
	r.rows[row.ID] = &copyItem
	r.updated = append(r.updated, row.ID)
	return nil
}

func (r *fakePendingRepo) SaveAll(_ context.Context, rows []*entity.PendingCheckout) error {
	if r.saveAllErr != nil {
		return r.saveAllErr
	}
	for _, row := range rows {
		copyItem := *row
		r.rows[row.ID] = &copyItem
		r.savedAll = append(r.savedAll, row.ID)
	}
	return nil
}

func (r *fakePendingRepo) List(_ context.Context, filter repository.PendingCheckoutFilter) ([]*entity.PendingCheckout, error) {
	items := make([]*entity.PendingCheckout, 0)
	for _, item := range r.rows {
		if filter.CompanyID != 0 && item.CompanyID != filter.CompanyID {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *fakePendingRepo) ListStale(_ context.Context, companyID uint64, cutoff time.Time) ([]*entity.PendingCheckout, error) {
	if r.listStaleErr != nil {
		return nil, r.listStaleErr
	}
	items := make([]*entity.PendingCheckout, 0)
	for _, item := range r.rows {
		if item.CompanyID != companyID {
			continue
		}
		if item.UpdatedAt == nil || item.UpdatedAt.After(cutoff) {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *fakePendingRepo) CompaniesWithStale(_ context.Context, cutoff time.Time, _ int32) ([]uint64, error) {
	seen := map[uint64]bool{}
	companies := make([]uint64, 0)
	for _, item := range r.rows {
		if item.UpdatedAt == nil || item.UpdatedAt.After(cutoff) {
			continue
		}
		if !seen[item.CompanyID] {
			seen[item.CompanyID] = true
			companies = append(companies, item.CompanyID)
		}
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i] < companies[j] })
	return companies, nil
}

type fakeEventRepo struct {
	events    []*entity.CheckoutEvent
	createErr error
}

func (r *fakeEventRepo) Create(_ context.Context, event *entity.CheckoutEvent) error {
	if r.createErr != nil {
		return r.createErr
	}
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *fakeEventRepo) eventTypes() []string {
	names := make([]string, 0, len(r.events))
	for _, event := range r.events {
		names = append(names, event.EventType)
	}
	return names
}

type fakeProvider struct {
	intent    *provider.PaymentIntent
	intentErr error

	charge    *provider.Charge
	chargeErr error

	refunds    []*provider.Refund
	refundsErr error

	session      *provider.CheckoutSession
	sessionErr   error
	sessionCalls int

	createOutput    *provider.RefundOutput
	createErr       error
	lastRefundInput *provider.RefundInput
}

func (p *fakeProvider) Name() string { return "stripe" }

func (p *fakeProvider) GetPaymentIntent(_ context.Context, _ string, _ string) (*provider.PaymentIntent, error) {
	if p.intentErr != nil {
		return nil, p.intentErr
	}
	return p.intent, nil
}

func (p *fakeProvider) GetCharge(_ context.Context, _ string, _ string) (*provider.Charge, error) {
	if p.chargeErr != nil {
		return nil, p.chargeErr
	}
	return p.charge, nil
}

func (p *fakeProvider) ListRefunds(_ context.Context, _ string, _ string, _ int) ([]*provider.Refund, error) {
	if p.refundsErr != nil {
		return nil, p.refundsErr
	}
	return p.refunds, nil
}

func (p *fakeProvider) GetCheckoutSession(_ context.Context, _ string, _ string) (*provider.CheckoutSession, error) {
	p.sessionCalls++
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	return p.session, nil
}

func (p *fakeProvider) CreateRefund(_ context.Context, input *provider.RefundInput) (*provider.RefundOutput, error) {
	copyInput := *input
	p.lastRefundInput = &copyInput
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.createOutput, nil
}

func strPtr(v string) *string    { return &v }
func i64Ptr(v int64) *int64      { return &v }
func f64Ptr(v float64) *float64  { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func newTestService(pendingRepo *fakePendingRepo, eventRepo *fakeEventRepo, p provider.Provider, cfg config.CheckoutConfig) *CheckoutService {
	return NewCheckoutService(pendingRepo, eventRepo, provider.NewRegistry(p), cfg)
}

func intentWithCharge(chargeID string) *provider.PaymentIntent {
	return &provider.PaymentIntent{
		ID:                  "pi_1",
		AmountCents:         5000,
		AmountReceivedCents: 5000,
		LatestChargeID:      strPtr(chargeID),
	}
}

func TestReadChargeSnapshot(t *testing.T) {
	p := &fakeProvider{
		intent: intentWithCharge("ch_1"),
		charge: &provider.Charge{
			ID:                  "ch_1",
			AmountCents:         5000,
			AmountRefundedCents: 2000,
			ApplicationFeeCents: i64Ptr(150),
		},
	}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	snapshot := s.ReadChargeSnapshot(context.Background(), p, RefundContext{}, "pi_1", 9999)

	if snapshot.RemainingCents != 3000 {
		t.Fatalf("unexpected remaining: %d", snapshot.RemainingCents)
	}
	if snapshot.ChargeID == nil || *snapshot.ChargeID != "ch_1" {
		t.Fatalf("unexpected charge id: %+v", snapshot.ChargeID)
	}
	if snapshot.AmountCents == nil || *snapshot.AmountCents != 5000 {
		t.Fatalf("unexpected amount: %+v", snapshot.AmountCents)
	}
	if snapshot.RefundedCents == nil || *snapshot.RefundedCents != 2000 {
		t.Fatalf("unexpected refunded: %+v", snapshot.RefundedCents)
	}
	if snapshot.ApplicationFeeCents == nil || *snapshot.ApplicationFeeCents != 150 {
		t.Fatalf("unexpected application fee: %+v", snapshot.ApplicationFeeCents)
	}
}

func TestReadChargeSnapshotDegradesOnIntentError(t *testing.T) {
	p := &fakeProvider{intentErr: errors.New("stripe down")}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	snapshot := s.ReadChargeSnapshot(context.Background(), p, RefundContext{}, "pi_1", 2500)
	if snapshot.RemainingCents != 2500 {
		t.Fatalf("expected local fallback 2500, got %d", snapshot.RemainingCents)
	}
	if snapshot.ChargeID != nil {
		t.Fatal("expected no charge id on fallback")
	}

	snapshot = s.ReadChargeSnapshot(context.Background(), p, RefundContext{}, "pi_1", -100)
	if snapshot.RemainingCents != 0 {
		t.Fatalf("expected negative local estimate to clamp to 0, got %d", snapshot.RemainingCents)
	}
}

func TestReadChargeSnapshotNoChargeOnIntent(t *testing.T) {
	p := &fakeProvider{intent: &provider.PaymentIntent{ID: "pi_1", AmountCents: 5000}}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	snapshot := s.ReadChargeSnapshot(context.Background(), p, RefundContext{}, "pi_1", 1200)
	if snapshot.RemainingCents != 1200 {
		t.Fatalf("expected local fallback 1200, got %d", snapshot.RemainingCents)
	}
}

func TestReadChargeSnapshotChargeLookupFails(t *testing.T) {
	p := &fakeProvider{
		intent:    intentWithCharge("ch_1"),
		chargeErr: errors.New("charge missing"),
	}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	snapshot := s.ReadChargeSnapshot(context.Background(), p, RefundContext{}, "pi_1", 700)
	if snapshot.RemainingCents != 700 {
		t.Fatalf("expected local fallback 700, got %d", snapshot.RemainingCents)
	}
	if snapshot.ChargeID == nil || *snapshot.ChargeID != "ch_1" {
		t.Fatalf("expected charge id to survive, got %+v", snapshot.ChargeID)
	}
}

func TestRefundBucketsAppointmentFilter(t *testing.T) {
	p := &fakeProvider{refunds: []*provider.Refund{
		{ID: "re_1", AmountCents: 500, Metadata: map[string]string{"bucket": "service", "appointment_id": "42"}},
		{ID: "re_2", AmountCents: 100, Metadata: map[string]string{"bucket": "tip", "appointment_id": " 42 "}},
		{ID: "re_3", AmountCents: 300, Metadata: map[string]string{"bucket": "service", "appointment_id": "43"}},
		{ID: "re_4", AmountCents: 200, Metadata: map[string]string{"bucket": "service", "appointment_id": "abc"}},
		{ID: "re_5", AmountCents: 150, Metadata: map[string]string{"bucket": "service"}},
	}}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	appointmentID := int64(42)
	totals := s.RefundBuckets(context.Background(), p, RefundContext{}, "pi_1", &appointmentID)

	if totals.ServiceCents != 500 {
		t.Fatalf("unexpected service cents: %d", totals.ServiceCents)
	}
	if totals.TipCents != 100 {
		t.Fatalf("unexpected tip cents: %d", totals.TipCents)
	}
	if totals.TotalCents != 600 {
		t.Fatalf("unexpected total cents: %d", totals.TotalCents)
	}
}

func TestRefundBucketsWithoutFilter(t *testing.T) {
	p := &fakeProvider{refunds: []*provider.Refund{
		{ID: "re_1", AmountCents: 500, Metadata: map[string]string{"bucket": "service"}},
		{ID: "re_2", AmountCents: 100, Metadata: map[string]string{"bucket": "tip"}},
		{ID: "re_3", AmountCents: 250, Metadata: map[string]string{}},
	}}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	totals := s.RefundBuckets(context.Background(), p, RefundContext{}, "pi_1", nil)

	if totals.ServiceCents != 500 || totals.TipCents != 100 {
		t.Fatalf("unexpected bucket totals: %+v", totals)
	}
	if totals.TotalCents != 850 {
		t.Fatalf("unexpected total cents: %d", totals.TotalCents)
	}
}

func TestRefundBucketsListFailureReturnsZeroTotals(t *testing.T) {
	p := &fakeProvider{refundsErr: errors.New("stripe down")}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	totals := s.RefundBuckets(context.Background(), p, RefundContext{}, "pi_1", nil)
	if totals.ServiceCents != 0 || totals.TipCents != 0 || totals.TotalCents != 0 {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func authorizeRequest() *types.AuthorizeRefundRequest {
	return &types.AuthorizeRefundRequest{
		RequestId:            "req-1",
		CompanyId:            7,
		Provider:             "stripe",
		PaymentIntentId:      "pi_1",
		CapturedServiceCents: 5000,
		LocalRemainingCents:  5000,
	}
}

func TestAuthorizeServiceRefundDefaultsToRefundable(t *testing.T) {
	p := &fakeProvider{
		intent: intentWithCharge("ch_1"),
		charge: &provider.Charge{ID: "ch_1", AmountCents: 5000, AmountRefundedCents: 2500},
		refunds: []*provider.Refund{
			{ID: "re_1", AmountCents: 2000, Metadata: map[string]string{"bucket": "service"}},
		},
	}
	events := &fakeEventRepo{}
	s := newTestService(newFakePendingRepo(), events, p, config.CheckoutConfig{})

	decision, err := s.AuthorizeServiceRefund(context.Background(), RefundContext{CompanyID: 7}, authorizeRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// bucket remaining 5000-2000=3000, charge remaining 2500, min = 2500
	if decision.RefundableBeforeCents != 2500 {
		t.Fatalf("unexpected refundable: %d", decision.RefundableBeforeCents)
	}
	if decision.RequestedCents != 2500 || decision.AmountCents != 2500 {
		t.Fatalf("unexpected amounts: requested=%d amount=%d", decision.RequestedCents, decision.AmountCents)
	}
	if decision.RefundApplicationFee {
		t.Fatal("expected no fee refund without connected account")
	}
	if len(events.events) != 1 || events.events[0].EventType != "refund_authorized" {
		t.Fatalf("unexpected events: %v", events.eventTypes())
	}
}

func TestAuthorizeServiceRefundCapsRequested(t *testing.T) {
	p := &fakeProvider{
		intent: intentWithCharge("ch_1"),
		charge: &provider.Charge{ID: "ch_1", AmountCents: 5000, AmountRefundedCents: 0},
	}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	req := authorizeRequest()
	req.AmountCents = i64Ptr(99999)

	decision, err := s.AuthorizeServiceRefund(context.Background(), RefundContext{CompanyID: 7}, req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.RequestedCents != 99999 {
		t.Fatalf("unexpected requested: %d", decision.RequestedCents)
	}
	if decision.AmountCents != 5000 {
		t.Fatalf("expected amount capped at 5000, got %d", decision.AmountCents)
	}
}

func TestAuthorizeServiceRefundPercent(t *testing.T) {
	p := &fakeProvider{
		intent: intentWithCharge("ch_1"),
		charge: &provider.Charge{ID: "ch_1", AmountCents: 5000, AmountRefundedCents: 0},
	}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	req := authorizeRequest()
	req.ServiceRefundPercent = f64Ptr(50)

	decision, err := s.AuthorizeServiceRefund(context.Background(), RefundContext{CompanyID: 7}, req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.AmountCents != 2500 {
		t.Fatalf("expected 50%% of captured, got %d", decision.AmountCents)
	}
}

func TestAuthorizeServiceRefundFeeFlag(t *testing.T) {
	cases := []struct {
		name             string
		connectedAccount string
		flag             bool
		fee              *int64
		want             bool
	}{
		{"all conditions met", "acct_1", true, i64Ptr(150), true},
		{"no connected account", "", true, i64Ptr(150), false},
		{"flag off", "acct_1", false, i64Ptr(150), false},
		{"no fee on charge", "acct_1", true, nil, false},
		{"zero fee", "acct_1", true, i64Ptr(0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{
				intent: intentWithCharge("ch_1"),
				charge: &provider.Charge{ID: "ch_1", AmountCents: 5000, ApplicationFeeCents: tc.fee},
			}
			s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

			req := authorizeRequest()
			req.RefundPlatformFee = tc.flag

			decision, err := s.AuthorizeServiceRefund(context.Background(), RefundContext{CompanyID: 7, ConnectedAccount: tc.connectedAccount}, req)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if decision.RefundApplicationFee != tc.want {
				t.Fatalf("RefundApplicationFee = %v, want %v", decision.RefundApplicationFee, tc.want)
			}
		})
	}
}

func TestAuthorizeServiceRefundUnsupportedProvider(t *testing.T) {
	p := &fakeProvider{}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	req := authorizeRequest()
	req.Provider = "paypal"

	if _, err := s.AuthorizeServiceRefund(context.Background(), RefundContext{}, req); !errors.Is(err, ErrProviderUnsupported) {
		t.Fatalf("expected ErrProviderUnsupported, got %v", err)
	}
}

func TestExecuteServiceRefundUnsupportedProvider(t *testing.T) {
	p := &fakeProvider{}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	req := &types.ExecuteRefundRequest{AuthorizeRefundRequest: *authorizeRequest()}
	req.Provider = "paypal"

	if _, _, err := s.ExecuteServiceRefund(context.Background(), RefundContext{}, req); !errors.Is(err, ErrProviderUnsupported) {
		t.Fatalf("expected ErrProviderUnsupported, got %v", err)
	}
	if p.lastRefundInput != nil {
		t.Fatal("expected CreateRefund not to be called")
	}
}

func TestExecuteServiceRefundToleratesEventWriteFailure(t *testing.T) {
	p := &fakeProvider{
		intent:       intentWithCharge("ch_1"),
		charge:       &provider.Charge{ID: "ch_1", AmountCents: 5000},
		createOutput: &provider.RefundOutput{ID: "re_1", AmountCents: 5000, Status: "succeeded"},
	}
	events := &fakeEventRepo{createErr: errors.New("events table gone")}
	s := newTestService(newFakePendingRepo(), events, p, config.CheckoutConfig{})

	req := &types.ExecuteRefundRequest{AuthorizeRefundRequest: *authorizeRequest()}
	_, output, err := s.ExecuteServiceRefund(context.Background(), RefundContext{CompanyID: 7}, req)
	if err != nil {
		t.Fatalf("expected refund to survive event write failure, got %v", err)
	}
	if output == nil || output.ID != "re_1" {
		t.Fatalf("unexpected output: %+v", output)
	}
}

func TestExecuteServiceRefund(t *testing.T) {
	p := &fakeProvider{
		intent:       intentWithCharge("ch_1"),
		charge:       &provider.Charge{ID: "ch_1", AmountCents: 5000, AmountRefundedCents: 0, ApplicationFeeCents: i64Ptr(150)},
		createOutput: &provider.RefundOutput{ID: "re_9", AmountCents: 2500, Status: "succeeded"},
	}
	events := &fakeEventRepo{}
	s := newTestService(newFakePendingRepo(), events, p, config.CheckoutConfig{})

	req := &types.ExecuteRefundRequest{AuthorizeRefundRequest: *authorizeRequest(), Reason: "customer no-show"}
	req.AmountCents = i64Ptr(2500)
	req.AppointmentId = i64Ptr(42)
	req.RefundPlatformFee = true

	rc := RefundContext{CompanyID: 7, ConnectedAccount: "acct_1"}
	decision, output, err := s.ExecuteServiceRefund(context.Background(), rc, req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.ID != "re_9" || output.AmountCents != 2500 {
		t.Fatalf("unexpected output: %+v", output)
	}
	if decision.AmountCents != 2500 {
		t.Fatalf("unexpected decision amount: %d", decision.AmountCents)
	}

	input := p.lastRefundInput
	if input == nil {
		t.Fatal("expected CreateRefund to be called")
	}
	if input.AmountCents != 2500 || input.PaymentIntentID != "pi_1" {
		t.Fatalf("unexpected refund input: %+v", input)
	}
	if !input.RefundApplicationFee {
		t.Fatal("expected fee refund flag on input")
	}
	if input.ConnectedAccount != "acct_1" {
		t.Fatalf("unexpected connected account: %s", input.ConnectedAccount)
	}
	if input.IdempotencyKey == "" {
		t.Fatal("expected idempotency key")
	}
	if input.Metadata["bucket"] != "service" {
		t.Fatalf("unexpected bucket metadata: %v", input.Metadata)
	}
	if input.Metadata["company_id"] != "7" {
		t.Fatalf("unexpected company metadata: %v", input.Metadata)
	}
	if input.Metadata["appointment_id"] != "42" {
		t.Fatalf("unexpected appointment metadata: %v", input.Metadata)
	}
	if input.Metadata["reason"] != "customer no-show" {
		t.Fatalf("unexpected reason metadata: %v", input.Metadata)
	}

	eventTypes := events.eventTypes()
	if len(eventTypes) != 2 || eventTypes[0] != "refund_authorized" || eventTypes[1] != "refund_executed" {
		t.Fatalf("unexpected events: %v", eventTypes)
	}
}

func TestExecuteServiceRefundNothingToRefund(t *testing.T) {
	p := &fakeProvider{
		intent: intentWithCharge("ch_1"),
		charge: &provider.Charge{ID: "ch_1", AmountCents: 5000, AmountRefundedCents: 5000},
	}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	req := &types.ExecuteRefundRequest{AuthorizeRefundRequest: *authorizeRequest()}
	_, _, err := s.ExecuteServiceRefund(context.Background(), RefundContext{CompanyID: 7}, req)
	if !errors.Is(err, ErrNothingToRefund) {
		t.Fatalf("expected ErrNothingToRefund, got %v", err)
	}
	if p.lastRefundInput != nil {
		t.Fatal("expected CreateRefund not to be called")
	}
}

func TestExecuteServiceRefundProviderFailure(t *testing.T) {
	p := &fakeProvider{
		intent:    intentWithCharge("ch_1"),
		charge:    &provider.Charge{ID: "ch_1", AmountCents: 5000},
		createErr: errors.New("stripe rejected"),
	}
	s := newTestService(newFakePendingRepo(), &fakeEventRepo{}, p, config.CheckoutConfig{})

	req := &types.ExecuteRefundRequest{AuthorizeRefundRequest: *authorizeRequest()}
	req.AmountCents = i64Ptr(1000)

	_, _, err := s.ExecuteServiceRefund(context.Background(), RefundContext{CompanyID: 7}, req)
	if !errors.Is(err, ErrRefundFailed) {
		t.Fatalf("expected ErrRefundFailed, got %v", err)
	}
}
