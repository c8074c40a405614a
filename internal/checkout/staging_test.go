package checkout

import (
	"errors"
	"testing"

	"github.com/sirichaiw/supermarket-backend/internal/payment"
)

func sampleLines() CartSnapshot {
	return CartSnapshot{
		{ProductID: 1, ProductName: "Fuji Apple", UnitPrice: 0.80, Quantity: 10},
		{ProductID: 2, ProductName: "Fresh Milk 1L", UnitPrice: 3.10, Quantity: 2},
	}
}

func TestSubtotal(t *testing.T) {
	if got := sampleLines().Subtotal(); got != 14.20 {
		t.Errorf("subtotal = %v, want 14.20", got)
	}
	if got := (CartSnapshot{}).Subtotal(); got != 0 {
		t.Errorf("empty subtotal = %v", got)
	}
}

func TestStage(t *testing.T) {
	st, err := Stage(sampleLines(), "delivery", "1 Orchard Rd", "paypal", "SAVE10", 1.42)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if st.Gateway != payment.GatewayPayPal {
		t.Errorf("gateway = %q", st.Gateway)
	}
	if st.Total != 12.78 {
		t.Errorf("total = %v, want 12.78", st.Total)
	}
	if st.StagedAt.IsZero() {
		t.Error("StagedAt not set")
	}
}

func TestStagePickupNeedsNoAddress(t *testing.T) {
	st, err := Stage(sampleLines(), "PICKUP", "", "stripe", "", 0)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if st.DeliveryMethod != DeliveryPickup {
		t.Errorf("deliveryMethod = %q", st.DeliveryMethod)
	}
}

func TestStageValidationOrder(t *testing.T) {
	cases := []struct {
		name      string
		lines     CartSnapshot
		delivery  string
		address   string
		method    string
		wantField string
	}{
		{"no delivery method", sampleLines(), "", "addr", "paypal", "deliveryMethod"},
		{"unknown delivery method", sampleLines(), "teleport", "addr", "paypal", "deliveryMethod"},
		{"home delivery without address", sampleLines(), "delivery", "  ", "paypal", "address"},
		{"unsupported payment method", sampleLines(), "pickup", "", "cheque", "paymentMethod"},
		{"empty cart reported last", nil, "pickup", "", "paypal", "cart"},
		// delivery problems outrank everything else even when the cart is also empty
		{"delivery reported before cart", nil, "", "", "", "deliveryMethod"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Stage(c.lines, c.delivery, c.address, c.method, "", 0)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if vErr.Field != c.wantField {
				t.Errorf("field = %q, want %q", vErr.Field, c.wantField)
			}
		})
	}
}

func TestStageDiscountNeverGoesNegative(t *testing.T) {
	lines := CartSnapshot{{ProductID: 1, ProductName: "Gum", UnitPrice: 1, Quantity: 1}}
	st, err := Stage(lines, "pickup", "", "nets", "", 5)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if st.Total != 0 {
		t.Errorf("total = %v, want 0", st.Total)
	}
	if st.Gateway != payment.GatewayNETSQR {
		t.Errorf("gateway = %q", st.Gateway)
	}
}

func TestNormalizeGateway(t *testing.T) {
	cases := map[string]string{
		"paypal":    payment.GatewayPayPal,
		"  Stripe ": payment.GatewayStripe,
		"AIRWALLEX": payment.GatewayAirwallex,
		"nets":      payment.GatewayNETSQR,
		"nets_qr":   payment.GatewayNETSQR,
		"netsqr":    payment.GatewayNETSQR,
		"bitcoin":   "",
	}
	for in, want := range cases {
		if got := NormalizeGateway(in); got != want {
			t.Errorf("NormalizeGateway(%q) = %q, want %q", in, got, want)
		}
	}
}
