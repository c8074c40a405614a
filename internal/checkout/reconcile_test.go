package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/sirichaiw/supermarket-backend/internal/cart"
	"github.com/sirichaiw/supermarket-backend/internal/order"
	"github.com/sirichaiw/supermarket-backend/internal/payment"
	"github.com/sirichaiw/supermarket-backend/internal/product"
)

// fakeGateway returns a canned confirmation and counts how often the
// provider is actually consulted.
type fakeGateway struct {
	mu       sync.Mutex
	name     string
	status   payment.Status
	confirms int
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Initiate(context.Context, payment.InitiateRequest) (payment.InitiateResult, error) {
	return payment.InitiateResult{}, errors.New("not used")
}

func (f *fakeGateway) Confirm(_ context.Context, paymentID string) (payment.ConfirmResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	return payment.ConfirmResult{Status: f.status, Reference: paymentID}, nil
}

func (f *fakeGateway) confirmCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirms
}

type engineFixture struct {
	engine   *Engine
	sessions *InMemoryStore
	pending  *payment.InMemoryPendingStore
	gateway  *fakeGateway
	orders   *order.InMemoryRepository
	products *product.InMemoryRepository
	carts    *cart.Service
}

func newEngineFixture(t *testing.T, status payment.Status, stock int) *engineFixture {
	t.Helper()

	products := product.NewInMemoryRepository([]product.Product{
		{ID: 1, Name: "Fuji Apple", Price: 0.80, Stock: stock},
	})
	orders := order.NewInMemoryRepository(products)
	carts := cart.NewService(cart.NewInMemoryRepository(products), product.NewService(products))
	sessions := NewInMemoryStore()
	pending := payment.NewInMemoryPendingStore()
	gw := &fakeGateway{name: payment.GatewayPayPal, status: status}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(sessions, pending,
		map[string]payment.Gateway{payment.GatewayPayPal: gw},
		order.NewService(orders), carts, logger)

	return &engineFixture{
		engine:   engine,
		sessions: sessions,
		pending:  pending,
		gateway:  gw,
		orders:   orders,
		products: products,
		carts:    carts,
	}
}

func stageFor(t *testing.T, f *engineFixture, userID, qty int, paymentID string) {
	t.Helper()
	st, err := Stage(CartSnapshot{
		{ProductID: 1, ProductName: "Fuji Apple", UnitPrice: 0.80, Quantity: qty},
	}, "pickup", "", "paypal", "", 0)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	st.ProviderPaymentID = paymentID
	if err := f.sessions.SetStaging(context.Background(), userID, st); err != nil {
		t.Fatalf("SetStaging failed: %v", err)
	}
}

func TestConfirmCreatesOrderOnce(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusSucceeded, 100)
	stageFor(t, f, 7, 5, "pp-1")

	first, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-1")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if first.Status != payment.StatusSucceeded || first.OrderID == 0 {
		t.Fatalf("unexpected outcome %+v", first)
	}

	// staging is consumed; the duplicate callback resolves via the stored
	// payment reference instead
	second, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-1")
	if err != nil {
		t.Fatalf("duplicate Confirm failed: %v", err)
	}
	if second.OrderID != first.OrderID {
		t.Errorf("duplicate confirmation created order %d, want %d", second.OrderID, first.OrderID)
	}

	if n := f.gateway.confirmCount(); n != 1 {
		t.Errorf("gateway consulted %d times, want 1", n)
	}
	p, _ := f.products.GetByID(1)
	if p.Stock != 95 {
		t.Errorf("stock = %d, want 95", p.Stock)
	}

	// the reference is written by order creation itself, so it is
	// queryable the moment the order exists; no separate update step
	// can fail in between
	ord, found, _ := f.orders.FindByReference("pp-1")
	if !found {
		t.Fatal("order not findable by payment reference")
	}
	if ord.OrderID != first.OrderID || ord.PaymentStatus != order.StatusPaid {
		t.Errorf("referenced order = %+v", ord)
	}
}

func TestConfirmUsesStagedPrices(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusSucceeded, 100)

	// stage at 0.80, then simulate a catalog price change mid-redirect
	stageFor(t, f, 7, 2, "pp-2")

	out, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-2")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	items, _ := f.orders.ItemsByOrderID(out.OrderID)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].PriceAtPurchase != 0.80 {
		t.Errorf("price at purchase = %v, want staged 0.80", items[0].PriceAtPurchase)
	}
	ord, _ := f.orders.GetByID(out.OrderID)
	if ord.Total != 1.60 {
		t.Errorf("total = %v, want 1.60", ord.Total)
	}
	if ord.PaymentStatus != order.StatusPaid {
		t.Errorf("payment status = %q, want PAID", ord.PaymentStatus)
	}
	if ord.PaymentRef == nil || *ord.PaymentRef != "pp-2" {
		t.Errorf("payment ref = %v, want pp-2", ord.PaymentRef)
	}
}

func TestConfirmInsufficientStock(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusSucceeded, 3)
	stageFor(t, f, 7, 5, "pp-3")

	_, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-3")
	var recErr *ReconcileError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *ReconcileError, got %v", err)
	}
	if !errors.Is(err, order.ErrInsufficientStock) {
		t.Errorf("cause = %v, want ErrInsufficientStock", recErr.Err)
	}

	// nothing persisted, nothing decremented
	p, _ := f.products.GetByID(1)
	if p.Stock != 3 {
		t.Errorf("stock = %d, want untouched 3", p.Stock)
	}
	if orders, _ := f.orders.ListByUser(7); len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
}

func TestConcurrentConfirmationsConserveStock(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusSucceeded, 5)

	// two buyers race for the last units; stock can cover only one of them
	stageFor(t, f, 1, 3, "pp-a")
	stageFor(t, f, 2, 3, "pp-b")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, c := range []struct {
		userID    int
		paymentID string
	}{{1, "pp-a"}, {2, "pp-b"}} {
		wg.Add(1)
		go func(i, userID int, paymentID string) {
			defer wg.Done()
			_, results[i] = f.engine.Confirm(ctx, userID, payment.GatewayPayPal, paymentID)
		}(i, c.userID, c.paymentID)
	}
	wg.Wait()

	var won, lost int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, order.ErrInsufficientStock):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("won=%d lost=%d, want exactly one of each", won, lost)
	}
	p, _ := f.products.GetByID(1)
	if p.Stock != 2 {
		t.Errorf("stock = %d, want 2", p.Stock)
	}
}

func TestConfirmFailedKeepsStaging(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusFailed, 100)
	stageFor(t, f, 7, 2, "pp-4")

	out, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-4")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if out.Status != payment.StatusFailed {
		t.Fatalf("status = %q, want FAILED", out.Status)
	}

	// no order, stock untouched, staging survives minus gateway artifacts
	if orders, _ := f.orders.ListByUser(7); len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
	p, _ := f.products.GetByID(1)
	if p.Stock != 100 {
		t.Errorf("stock = %d, want 100", p.Stock)
	}
	st, ok, _ := f.sessions.GetStaging(ctx, 7)
	if !ok {
		t.Fatal("staging gone after failed payment")
	}
	if st.ProviderPaymentID != "" {
		t.Errorf("provider payment id not cleared: %q", st.ProviderPaymentID)
	}
	if len(st.Lines) != 1 {
		t.Errorf("cart snapshot lost")
	}
}

func TestConfirmPendingLeavesEverything(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusPending, 100)
	stageFor(t, f, 7, 2, "pp-5")

	out, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-5")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if out.Status != payment.StatusPending {
		t.Fatalf("status = %q, want PENDING", out.Status)
	}
	st, ok, _ := f.sessions.GetStaging(ctx, 7)
	if !ok || st.ProviderPaymentID != "pp-5" {
		t.Error("pending confirmation must not disturb the staging")
	}
}

func TestWebhookThenPoll(t *testing.T) {
	ctx := context.Background()
	// gateway would answer PENDING; the webhook result must win
	f := newEngineFixture(t, payment.StatusPending, 100)
	stageFor(t, f, 7, 2, "pp-6")

	if err := f.engine.RecordWebhook(ctx, "pp-6", payment.StatusSucceeded, []byte(`{"event":"payment.completed"}`)); err != nil {
		t.Fatalf("RecordWebhook failed: %v", err)
	}

	out, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-6")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if out.Status != payment.StatusSucceeded || out.OrderID == 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if n := f.gateway.confirmCount(); n != 0 {
		t.Errorf("gateway consulted %d times, want 0 when the webhook already settled", n)
	}
}

func TestConfirmRejectsMismatchedPayment(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusSucceeded, 100)

	// a cheap payment is captured, then the shopper stages a much bigger
	// cart; replaying the cheap payment id must not buy the big cart
	stageFor(t, f, 7, 1, "pp-cheap")
	if err := f.engine.RecordWebhook(ctx, "pp-cheap", payment.StatusSucceeded, nil); err != nil {
		t.Fatalf("RecordWebhook failed: %v", err)
	}
	stageFor(t, f, 7, 50, "pp-big")

	_, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-cheap")
	if !errors.Is(err, ErrPaymentMismatch) {
		t.Fatalf("err = %v, want ErrPaymentMismatch", err)
	}

	if orders, _ := f.orders.ListByUser(7); len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
	p, _ := f.products.GetByID(1)
	if p.Stock != 100 {
		t.Errorf("stock = %d, want untouched 100", p.Stock)
	}
	// the current staging survives intact for its own payment
	st, ok, _ := f.sessions.GetStaging(ctx, 7)
	if !ok || st.ProviderPaymentID != "pp-big" {
		t.Errorf("staging disturbed: %+v", st)
	}
}

func TestConfirmWithoutStaging(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusSucceeded, 100)

	_, err := f.engine.Confirm(ctx, 7, payment.GatewayPayPal, "pp-7")
	if !errors.Is(err, ErrNoStaging) {
		t.Fatalf("err = %v, want ErrNoStaging", err)
	}
	if orders, _ := f.orders.ListByUser(7); len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
}

func TestCancelKeepsCheckoutData(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, payment.StatusSucceeded, 100)
	stageFor(t, f, 7, 2, "pp-8")

	if err := f.engine.Cancel(ctx, 7); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	st, ok, _ := f.sessions.GetStaging(ctx, 7)
	if !ok {
		t.Fatal("staging gone after cancel")
	}
	if st.ProviderPaymentID != "" || st.RedirectURL != "" || st.QRImage != "" {
		t.Error("gateway artifacts survived cancel")
	}
	if st.DeliveryMethod != DeliveryPickup || len(st.Lines) != 1 {
		t.Error("checkout form data lost on cancel")
	}
}
