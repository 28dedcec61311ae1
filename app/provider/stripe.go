package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeName = "stripe"

type StripeConfig struct {
	SecretKey   string
	APIBaseURL  string
	HTTPTimeout time.Duration
}

type StripeProvider struct {
	cfg    StripeConfig
	client *http.Client
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = "https://api.stripe.com"
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return &StripeProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *StripeProvider) Name() string {
	return stripeName
}

func (p *StripeProvider) GetPaymentIntent(ctx context.Context, id, connectedAccount string) (*PaymentIntent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("payment intent id is empty")
	}

	body, err := p.getJSON(ctx, "/v1/payment_intents/"+url.PathEscape(id), connectedAccount)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID             string      `json:"id"`
		Amount         int64       `json:"amount"`
		AmountReceived int64       `json:"amount_received"`
		LatestCharge   interface{} `json:"latest_charge"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	result := &PaymentIntent{
		ID:                  payload.ID,
		AmountCents:         payload.Amount,
		AmountReceivedCents: payload.AmountReceived,
	}
	if s := parseStringish(payload.LatestCharge); s != "" {
		result.LatestChargeID = &s
	}

	return result, nil
}

func (p *StripeProvider) GetCharge(ctx context.Context, id, connectedAccount string) (*Charge, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("charge id is empty")
	}

	body, err := p.getJSON(ctx, "/v1/charges/"+url.PathEscape(id), connectedAccount)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID                   string `json:"id"`
		Amount               int64  `json:"amount"`
		AmountRefunded       int64  `json:"amount_refunded"`
		ApplicationFeeAmount *int64 `json:"application_fee_amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &Charge{
		ID:                  payload.ID,
		AmountCents:         payload.Amount,
		AmountRefundedCents: payload.AmountRefunded,
		ApplicationFeeCents: payload.ApplicationFeeAmount,
	}, nil
}

func (p *StripeProvider) ListRefunds(ctx context.Context, paymentIntentID, connectedAccount string, limit int) ([]*Refund, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, errors.New("payment intent id is empty")
	}
	if limit <= 0 {
		limit = 100
	}

	query := url.Values{}
	query.Set("payment_intent", paymentIntentID)
	query.Set("limit", strconv.Itoa(limit))

	body, err := p.getJSON(ctx, "/v1/refunds?"+query.Encode(), connectedAccount)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Metadata map[string]string `json:"metadata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	refunds := make([]*Refund, 0, len(payload.Data))
	for _, item := range payload.Data {
		metadata := item.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		refunds = append(refunds, &Refund{
			ID:          item.ID,
			AmountCents: item.Amount,
			Metadata:    metadata,
		})
	}

	return refunds, nil
}

func (p *StripeProvider) GetCheckoutSession(ctx context.Context, id, connectedAccount string) (*CheckoutSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("checkout session id is empty")
	}

	body, err := p.getJSON(ctx, "/v1/checkout/sessions/"+url.PathEscape(id), connectedAccount)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &CheckoutSession{
		ID:            payload.ID,
		Status:        payload.Status,
		PaymentStatus: payload.PaymentStatus,
	}, nil
}

func (p *StripeProvider) CreateRefund(ctx context.Context, input *RefundInput) (*RefundOutput, error) {
	if strings.TrimSpace(input.PaymentIntentID) == "" {
		return nil, errors.New("payment intent id is empty")
	}
	if input.AmountCents <= 0 {
		return nil, errors.New("refund amount must be > 0")
	}

	values := url.Values{}
	values.Set("payment_intent", strings.TrimSpace(input.PaymentIntentID))
	values.Set("amount", strconv.FormatInt(input.AmountCents, 10))
	if input.RefundApplicationFee {
		values.Set("refund_application_fee", "true")
	}
	for k, v := range input.Metadata {
		values.Set("metadata["+k+"]", v)
	}

	body, err := p.postForm(ctx, "/v1/refunds", values, input.ConnectedAccount, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &RefundOutput{
		ID:          payload.ID,
		AmountCents: payload.Amount,
		Status:      payload.Status,
	}, nil
}

func (p *StripeProvider) getJSON(ctx context.Context, path, connectedAccount string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(req, connectedAccount, "")

	return p.do(req, path)
}

func (p *StripeProvider) postForm(ctx context.Context, path string, values url.Values, connectedAccount, idempotencyKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIBaseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p.setHeaders(req, connectedAccount, idempotencyKey)

	return p.do(req, path)
}

func (p *StripeProvider) setHeaders(req *http.Request, connectedAccount, idempotencyKey string) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	if acct := strings.TrimSpace(connectedAccount); acct != "" {
		req.Header.Set("Stripe-Account", acct)
	}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
}

func (p *StripeProvider) do(req *http.Request, path string) ([]byte, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is not configured")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stripe request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return body, nil
}

// parseStringish accepts Stripe fields that arrive either as an id string or
// as an expanded object carrying an id.
func parseStringish(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		if raw, ok := t["id"]; ok {
			if s, ok := raw.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
