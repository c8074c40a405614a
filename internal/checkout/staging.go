package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirichaiw/supermarket-backend/internal/payment"
)

// Delivery methods accepted at checkout. Only home delivery requires an
// address.
const (
	DeliveryHome   = "delivery"
	DeliveryPickup = "pickup"
)

// SnapshotLine is one cart line frozen at checkout time. Prices are
// captured here and never re-read from the catalog, so a price change
// during the external redirect cannot alter what the buyer pays.
type SnapshotLine struct {
	ProductID   int     `json:"productId"`
	ProductName string  `json:"productName"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
}

type CartSnapshot []SnapshotLine

func (s CartSnapshot) Subtotal() float64 {
	var sum float64
	for _, l := range s {
		sum += l.UnitPrice * float64(l.Quantity)
	}
	return payment.Round2(sum)
}

// Staging is the staged state of one checkout attempt, held in the
// session store between the checkout submit and the gateway callback.
// Invariant: Total == max(0, Subtotal - VoucherDiscount).
type Staging struct {
	Lines           CartSnapshot `json:"lines"`
	DeliveryMethod  string       `json:"deliveryMethod"`
	Address         string       `json:"address"`
	VoucherCode     string       `json:"voucherCode"`
	VoucherDiscount float64      `json:"voucherDiscount"`
	Total           float64      `json:"total"`
	Gateway         string       `json:"gateway"`

	// gateway artifacts, populated after Initiate
	ProviderPaymentID string    `json:"providerPaymentId"`
	RedirectURL       string    `json:"redirectUrl,omitempty"`
	ClientSecret      string    `json:"clientSecret,omitempty"`
	QRImage           string    `json:"qrImage,omitempty"`
	StagedAt          time.Time `json:"stagedAt"`
}

// ValidationError names the first unmet checkout precondition.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid %s", e.Field)
}

// NormalizeGateway maps a client-supplied payment method to a canonical
// gateway name, or "" when unsupported.
func NormalizeGateway(method string) string {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "PAYPAL":
		return payment.GatewayPayPal
	case "STRIPE":
		return payment.GatewayStripe
	case "AIRWALLEX":
		return payment.GatewayAirwallex
	case "NETS", "NETS_QR", "NETSQR":
		return payment.GatewayNETSQR
	default:
		return ""
	}
}

// Stage validates the checkout submission and freezes it. Checks run in
// a fixed order so the first unmet precondition is the one reported:
// delivery method, then address, then payment method, then cart.
func Stage(lines CartSnapshot, delivery, address, method, voucherCode string, voucherDiscount float64) (Staging, error) {
	delivery = strings.ToLower(strings.TrimSpace(delivery))
	if delivery != DeliveryHome && delivery != DeliveryPickup {
		return Staging{}, &ValidationError{Field: "deliveryMethod"}
	}
	if delivery == DeliveryHome && strings.TrimSpace(address) == "" {
		return Staging{}, &ValidationError{Field: "address"}
	}
	gateway := NormalizeGateway(method)
	if gateway == "" {
		return Staging{}, &ValidationError{Field: "paymentMethod"}
	}
	if len(lines) == 0 {
		return Staging{}, &ValidationError{Field: "cart"}
	}

	subtotal := lines.Subtotal()
	total := payment.Round2(subtotal - voucherDiscount)
	if total < 0 {
		total = 0
	}

	return Staging{
		Lines:           lines,
		DeliveryMethod:  delivery,
		Address:         strings.TrimSpace(address),
		VoucherCode:     voucherCode,
		VoucherDiscount: voucherDiscount,
		Total:           total,
		Gateway:         gateway,
		StagedAt:        time.Now().UTC(),
	}, nil
}
