package entity

import (
	"strings"
	"time"
)

const ReleaseReasonExpiredTimeout = "expired_timeout"

// PendingCheckout is an in-progress cart for one company. Rows are never
// deleted; finalization and release are recorded as flags in Extra.
type PendingCheckout struct {
	ID        uint64
	CompanyID uint64

	Cart  map[string]interface{}
	Extra map[string]interface{}

	PaymentIntentID   *string
	CheckoutSessionID *string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (p *PendingCheckout) IsFinalized() bool {
	return metaFlag(p.Extra["finalized"])
}

func (p *PendingCheckout) IsReleased() bool {
	return metaFlag(p.Extra["released"])
}

// HasCartContent reports whether releasing this cart would free anything.
// A services/items list counts only when non-empty; any other cart content
// counts as releasable.
func (p *PendingCheckout) HasCartContent() bool {
	if len(p.Cart) == 0 {
		return false
	}
	for _, key := range []string{"services", "items"} {
		if list, ok := p.Cart[key].([]interface{}); ok && len(list) > 0 {
			return true
		}
	}
	for key, value := range p.Cart {
		if key == "services" || key == "items" {
			if value == nil {
				continue
			}
			if list, ok := value.([]interface{}); ok && len(list) == 0 {
				continue
			}
		}
		return true
	}
	return false
}

func (p *PendingCheckout) MarkReleased(reason string, now time.Time) {
	if p.Extra == nil {
		p.Extra = map[string]interface{}{}
	}
	p.Extra["released"] = true
	p.Extra["released_reason"] = reason
	p.Extra["released_at"] = now.UTC().Format(time.RFC3339)
	updated := now.UTC()
	p.UpdatedAt = &updated
}

func (p *PendingCheckout) MarkFinalized(now time.Time) {
	if p.Extra == nil {
		p.Extra = map[string]interface{}{}
	}
	p.Extra["finalized"] = true
	p.Extra["finalized_at"] = now.UTC().Format(time.RFC3339)
	updated := now.UTC()
	p.UpdatedAt = &updated
}

// metaFlag interprets a JSON metadata value as a boolean flag. Numbers
// decode as float64, older rows carry string flags.
func metaFlag(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false")
	default:
		return false
	}
}
