package payment

import (
	"context"
	"errors"
	"fmt"
)

// Status is the normalized vocabulary every adapter maps provider
// responses into. The reconciliation engine only ever sees these values.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Gateway names used as payment_method on orders.
const (
	GatewayPayPal    = "PAYPAL"
	GatewayStripe    = "STRIPE"
	GatewayAirwallex = "AIRWALLEX"
	GatewayNETSQR    = "NETS_QR"
)

var (
	// ErrGatewayUnavailable means credentials for the provider are absent
	// or misconfigured; the checkout should surface this and stay put.
	ErrGatewayUnavailable = errors.New("payment gateway is not configured")
)

// RequestError is returned when the provider rejects a request. The
// provider's own code/message is kept for server-side logs; handlers show
// users a generic message only.
type RequestError struct {
	Gateway    string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed (http %d): %s", e.Gateway, e.StatusCode, e.Message)
}

// LineItem is a staged cart line as the gateways need it. Prices are the
// staged unit prices, never re-read from the catalog.
type LineItem struct {
	ProductID int
	Name      string
	UnitPrice float64
	Quantity  int
}

// InitiateRequest carries everything an adapter needs to start a payment.
type InitiateRequest struct {
	Amount    float64
	OrderRef  string
	Items     []LineItem
	ReturnURL string
	CancelURL string
}

// InitiateResult is the provider's answer. Redirect-based providers fill
// RedirectURL; Airwallex hands back an embedded client secret, NETS a QR
// image data URL.
type InitiateResult struct {
	ProviderPaymentID string
	RedirectURL       string
	ClientSecret      string
	QRImage           string
}

// ConfirmResult is a normalized confirmation. Reference is the provider's
// audit string (capture id, payment intent, attempt id) recorded on the
// order.
type ConfirmResult struct {
	Status    Status
	Reference string
}

// Gateway is the uniform contract over the four providers.
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	Confirm(ctx context.Context, providerPaymentID string) (ConfirmResult, error)
}
