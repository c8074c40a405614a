package voucher

import "time"

type DiscountType string

const (
	Percent DiscountType = "PERCENT"
	Fixed   DiscountType = "FIXED"
)

// Voucher is read-only to the checkout flow; admin maintenance lives
// elsewhere.
type Voucher struct {
	ID        int          `json:"id"`
	Code      string       `json:"code"`
	Type      DiscountType `json:"type"`
	Amount    float64      `json:"amount"`
	MinSpend  float64      `json:"minSpend"`
	PublishAt time.Time    `json:"publishAt"`
	ExpireAt  time.Time    `json:"expireAt"`
}

// RejectReason explains why a voucher could not be applied.
type RejectReason string

const (
	InvalidOrExpired RejectReason = "INVALID_OR_EXPIRED"
	MinSpendNotMet   RejectReason = "MIN_SPEND_NOT_MET"
)

// Rejected is the typed apply failure; MinSpend is set for
// MIN_SPEND_NOT_MET so callers can tell the user the threshold.
type Rejected struct {
	Reason   RejectReason
	MinSpend float64
}

func (r *Rejected) Error() string {
	return string(r.Reason)
}
