package entity

import (
	"testing"
	"time"
)

func TestHasCartContent(t *testing.T) {
	cases := []struct {
		name string
		cart map[string]interface{}
		want bool
	}{
		{"nil cart", nil, false},
		{"empty cart", map[string]interface{}{}, false},
		{
			"non-empty services list",
			map[string]interface{}{"services": []interface{}{map[string]interface{}{"service_id": float64(1)}}},
			true,
		},
		{
			"non-empty items list",
			map[string]interface{}{"items": []interface{}{map[string]interface{}{"sku": "giftcard"}}},
			true,
		},
		{
			"empty services list only",
			map[string]interface{}{"services": []interface{}{}},
			false,
		},
		{
			"nil services key only",
			map[string]interface{}{"services": nil},
			false,
		},
		{
			"empty services and empty items",
			map[string]interface{}{"services": []interface{}{}, "items": []interface{}{}},
			false,
		},
		{
			"other cart content",
			map[string]interface{}{"note": "call me"},
			true,
		},
		{
			"empty services next to other content",
			map[string]interface{}{"services": []interface{}{}, "coupon": "WELCOME10"},
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &PendingCheckout{Cart: tc.cart}
			if got := p.HasCartContent(); got != tc.want {
				t.Fatalf("HasCartContent() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFlagInterpretation(t *testing.T) {
	cases := []struct {
		name string
		val  interface{}
		want bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"number one", float64(1), true},
		{"number zero", float64(0), false},
		{"string true", "true", true},
		{"string false", "false", false},
		{"string FALSE", "FALSE", false},
		{"string zero", "0", false},
		{"empty string", "", false},
		{"missing", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &PendingCheckout{Extra: map[string]interface{}{"finalized": tc.val}}
			if got := p.IsFinalized(); got != tc.want {
				t.Fatalf("IsFinalized() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMarkReleasedSetsFlagsAndTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &PendingCheckout{}

	p.MarkReleased(ReleaseReasonExpiredTimeout, now)

	if !p.IsReleased() {
		t.Fatal("expected released flag")
	}
	if p.Extra["released_reason"] != ReleaseReasonExpiredTimeout {
		t.Fatalf("unexpected release reason: %v", p.Extra["released_reason"])
	}
	if p.Extra["released_at"] != now.Format(time.RFC3339) {
		t.Fatalf("unexpected released_at: %v", p.Extra["released_at"])
	}
	if p.UpdatedAt == nil || !p.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected UpdatedAt: %v", p.UpdatedAt)
	}
}

func TestMarkFinalizedPreservesExistingExtra(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &PendingCheckout{Extra: map[string]interface{}{"source": "web"}}

	p.MarkFinalized(now)

	if !p.IsFinalized() {
		t.Fatal("expected finalized flag")
	}
	if p.Extra["source"] != "web" {
		t.Fatal("expected existing extra keys to survive")
	}
	if p.Extra["finalized_at"] != now.Format(time.RFC3339) {
		t.Fatalf("unexpected finalized_at: %v", p.Extra["finalized_at"])
	}
}
