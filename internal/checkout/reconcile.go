package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/sirichaiw/supermarket-backend/internal/cart"
	"github.com/sirichaiw/supermarket-backend/internal/order"
	"github.com/sirichaiw/supermarket-backend/internal/payment"
)

// ErrNoStaging means the staged checkout is gone (expired or already
// consumed) so there is nothing to reconcile against.
var ErrNoStaging = errors.New("no staged checkout")

// ErrPaymentMismatch means the confirmed payment id is not the one the
// current staging was initiated with. An order may only be created from
// the staging its payment actually covers, so a stale or replayed id is
// rejected and the staging left untouched.
var ErrPaymentMismatch = errors.New("confirmed payment does not match the staged checkout")

// ReconcileError marks the dangerous failure class: the provider has
// already captured money but persisting the order did not complete.
// Callers must surface it distinctly and log it for manual follow-up;
// the engine never auto-refunds.
type ReconcileError struct {
	ProviderPaymentID string
	Err               error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile failed for payment %s: %v", e.ProviderPaymentID, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// Outcome is the result of driving one confirmation through the engine.
type Outcome struct {
	Status  payment.Status
	OrderID int
}

// Engine converts a confirmed external payment into exactly one
// persisted order. Concurrent confirmations of the same provider
// payment id (webhook racing the browser redirect, double-submitted
// success callback) are collapsed through singleflight, and the order's
// payment reference carries a unique index as the durable guard.
type Engine struct {
	group    singleflight.Group
	sessions SessionStore
	pending  payment.PendingStore
	gateways map[string]payment.Gateway
	orders   *order.Service
	carts    *cart.Service
	logger   *slog.Logger
}

func NewEngine(sessions SessionStore, pending payment.PendingStore, gateways map[string]payment.Gateway,
	orders *order.Service, carts *cart.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessions: sessions,
		pending:  pending,
		gateways: gateways,
		orders:   orders,
		carts:    carts,
		logger:   logger,
	}
}

// Confirm resolves the payment's status and, on success, runs the full
// reconciliation: order (PAID, referencing the payment) + items at
// staged prices + stock decrement in one transaction, then clears the
// cart and tears down the staging. Calling it again with the same
// provider payment id returns the existing order.
func (e *Engine) Confirm(ctx context.Context, userID int, gatewayName, providerPaymentID string) (Outcome, error) {
	v, err, _ := e.group.Do(providerPaymentID, func() (interface{}, error) {
		return e.confirm(ctx, userID, gatewayName, providerPaymentID)
	})
	if err != nil {
		return Outcome{}, err
	}
	return v.(Outcome), nil
}

func (e *Engine) confirm(ctx context.Context, userID int, gatewayName, providerPaymentID string) (Outcome, error) {
	// a previous confirmation may have finished the job already
	if existing, ok, err := e.orders.FindByReference(providerPaymentID); err != nil {
		return Outcome{}, err
	} else if ok {
		return Outcome{Status: payment.StatusSucceeded, OrderID: existing.OrderID}, nil
	}

	status, reference, err := e.resolveStatus(ctx, gatewayName, providerPaymentID)
	if err != nil {
		return Outcome{}, err
	}

	switch status {
	case payment.StatusPending:
		return Outcome{Status: payment.StatusPending}, nil
	case payment.StatusFailed:
		// order never created; drop the gateway artifacts but keep the
		// rest of the staging so the user lands back on checkout intact
		if err := e.clearGatewayRef(ctx, userID); err != nil {
			e.logger.Warn("clearing gateway artifacts failed",
				"userId", userID, "paymentId", providerPaymentID, "error", err)
		}
		return Outcome{Status: payment.StatusFailed}, nil
	}

	st, ok, err := e.sessions.GetStaging(ctx, userID)
	if err != nil {
		return Outcome{}, &ReconcileError{ProviderPaymentID: providerPaymentID, Err: err}
	}
	if !ok {
		// money has moved but the staged cart is gone; flag for manual
		// reconciliation rather than invent an order
		e.logger.Error("payment confirmed but checkout staging missing",
			"userId", userID, "gateway", gatewayName, "paymentId", providerPaymentID)
		return Outcome{}, ErrNoStaging
	}
	if st.ProviderPaymentID != providerPaymentID {
		// the staging was re-created after this payment was initiated;
		// its total has nothing to do with what the provider captured
		e.logger.Error("confirmed payment does not match staged checkout",
			"userId", userID, "gateway", gatewayName,
			"paymentId", providerPaymentID, "stagedPaymentId", st.ProviderPaymentID)
		return Outcome{}, ErrPaymentMismatch
	}

	ord, err := e.createOrder(userID, gatewayName, providerPaymentID, st)
	if err != nil {
		e.logger.Error("reconciliation failed after payment capture",
			"userId", userID, "gateway", gatewayName, "paymentId", providerPaymentID,
			"reference", reference, "error", err)
		return Outcome{}, &ReconcileError{ProviderPaymentID: providerPaymentID, Err: err}
	}

	if err := e.carts.Clear(userID); err != nil {
		e.logger.Warn("cart clear failed after order creation",
			"userId", userID, "orderId", ord.OrderID, "error", err)
	}
	if err := e.sessions.ClearStaging(ctx, userID); err != nil {
		e.logger.Warn("staging teardown failed",
			"userId", userID, "orderId", ord.OrderID, "error", err)
	}
	if err := e.sessions.ClearVoucher(ctx, userID); err != nil {
		e.logger.Warn("voucher teardown failed",
			"userId", userID, "orderId", ord.OrderID, "error", err)
	}

	e.logger.Info("order reconciled",
		"userId", userID, "orderId", ord.OrderID, "gateway", gatewayName,
		"paymentId", providerPaymentID, "reference", reference, "total", ord.Total)
	return Outcome{Status: payment.StatusSucceeded, OrderID: ord.OrderID}, nil
}

// resolveStatus consults the pending store first (a webhook may have
// landed before the browser returned) and falls back to a synchronous
// confirm call against the provider. The outcome is written back so
// later callers see a terminal record.
func (e *Engine) resolveStatus(ctx context.Context, gatewayName, providerPaymentID string) (payment.Status, string, error) {
	if rec, ok, err := e.pending.Get(ctx, providerPaymentID); err != nil {
		return "", "", err
	} else if ok && rec.Status.Terminal() {
		if rec.Status == payment.RecordCompleted {
			return payment.StatusSucceeded, providerPaymentID, nil
		}
		return payment.StatusFailed, providerPaymentID, nil
	}

	gw, ok := e.gateways[gatewayName]
	if !ok {
		return "", "", fmt.Errorf("unknown gateway %q", gatewayName)
	}
	res, err := gw.Confirm(ctx, providerPaymentID)
	if err != nil {
		return "", "", err
	}

	if err := e.pending.Put(ctx, providerPaymentID, gatewayName, payment.RecordStatusFor(res.Status), nil); err != nil {
		e.logger.Warn("pending store update failed",
			"gateway", gatewayName, "paymentId", providerPaymentID, "error", err)
	}
	return res.Status, res.Reference, nil
}

// createOrder runs the transactional part: order row (PAID, carrying
// the provider payment id as its reference), items at staged prices and
// the stock decrement, all in one transaction.
func (e *Engine) createOrder(userID int, gatewayName, providerPaymentID string, st Staging) (order.Order, error) {
	var addr *string
	if st.Address != "" {
		a := st.Address
		addr = &a
	}

	items := make([]order.OrderItem, 0, len(st.Lines))
	for _, l := range st.Lines {
		items = append(items, order.OrderItem{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.UnitPrice,
		})
	}

	return e.orders.PlacePaid(order.Order{
		UserID:         userID,
		DeliveryMethod: st.DeliveryMethod,
		Address:        addr,
		PaymentMethod:  gatewayName,
		Total:          st.Total,
	}, providerPaymentID, items)
}

// Cancel drops the gateway artifacts from the staging after the user
// backs out at the provider. The cart and checkout form data survive.
func (e *Engine) Cancel(ctx context.Context, userID int) error {
	return e.clearGatewayRef(ctx, userID)
}

func (e *Engine) clearGatewayRef(ctx context.Context, userID int) error {
	st, ok, err := e.sessions.GetStaging(ctx, userID)
	if err != nil || !ok {
		return err
	}
	st.ProviderPaymentID = ""
	st.RedirectURL = ""
	st.ClientSecret = ""
	st.QRImage = ""
	return e.sessions.SetStaging(ctx, userID, st)
}

// RecordWebhook writes a webhook-delivered status into the pending
// store. It never creates an order on its own; reconciliation needs the
// user-scoped staging, which only the browser-return path has.
func (e *Engine) RecordWebhook(ctx context.Context, providerPaymentID string, status payment.Status, raw []byte) error {
	return e.pending.Put(ctx, providerPaymentID, payment.GatewayNETSQR, payment.RecordStatusFor(status), raw)
}
