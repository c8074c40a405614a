package payment

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"github.com/sirichaiw/supermarket-backend/internal/config"
)

// Stripe uses hosted checkout sessions: the staged cart becomes ad-hoc
// price_data line items, the buyer pays on Stripe's page, and the session
// is retrieved when the browser returns.
type Stripe struct {
	cfg config.StripeConfig
}

func NewStripe(cfg config.StripeConfig) *Stripe {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &Stripe{cfg: cfg}
}

func (s *Stripe) Name() string { return GatewayStripe }

func (s *Stripe) Initiate(ctx context.Context, r InitiateRequest) (InitiateResult, error) {
	if s.cfg.SecretKey == "" {
		return InitiateResult{}, ErrGatewayUnavailable
	}
	if _, err := FormatAmount(r.Amount); err != nil {
		return InitiateResult{}, err
	}

	currency := strings.ToLower(s.cfg.Currency)
	if currency == "" {
		currency = "sgd"
	}
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(r.Items))
	for _, item := range r.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(Cents(item.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:      stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: lineItems,
		Metadata: map[string]string{
			"order_ref": r.OrderRef,
		},
		SuccessURL: stripe.String(r.ReturnURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(r.CancelURL),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return InitiateResult{}, wrapStripeErr(err)
	}

	return InitiateResult{ProviderPaymentID: sess.ID, RedirectURL: sess.URL}, nil
}

// Confirm retrieves the session; only payment_status == "paid" counts.
func (s *Stripe) Confirm(ctx context.Context, sessionID string) (ConfirmResult, error) {
	if s.cfg.SecretKey == "" {
		return ConfirmResult{}, ErrGatewayUnavailable
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(sessionID, params)
	if err != nil {
		return ConfirmResult{}, wrapStripeErr(err)
	}

	ref := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		ref = sess.PaymentIntent.ID
	}
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return ConfirmResult{Status: StatusSucceeded, Reference: ref}, nil
	}
	return ConfirmResult{Status: StatusFailed, Reference: ref}, nil
}

func wrapStripeErr(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return &RequestError{
			Gateway:    GatewayStripe,
			StatusCode: stripeErr.HTTPStatusCode,
			Message:    stripeErr.Msg,
		}
	}
	return err
}
