package types

import "strings"

// RefundBucket partitions refund accounting. Unknown metadata tags map to
// RefundBucketOther, which accumulates into the total only.
type RefundBucket string

const (
	RefundBucketService RefundBucket = "service"
	RefundBucketTip     RefundBucket = "tip"
	RefundBucketOther   RefundBucket = "other"
)

func ParseRefundBucket(raw string) RefundBucket {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "service":
		return RefundBucketService
	case "tip":
		return RefundBucketTip
	default:
		return RefundBucketOther
	}
}

type RefundBucketTotals struct {
	ServiceCents int64 `json:"service_cents"`
	TipCents     int64 `json:"tip_cents"`
	TotalCents   int64 `json:"total_cents"`
}

func (t *RefundBucketTotals) Add(bucket RefundBucket, amountCents int64) {
	switch bucket {
	case RefundBucketService:
		t.ServiceCents += amountCents
	case RefundBucketTip:
		t.TipCents += amountCents
	}
	t.TotalCents += amountCents
}
