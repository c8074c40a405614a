package payment

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{45, "45.00"},
		{0.8, "0.80"},
		{19.99, "19.99"},
		{0, "0.00"},
	}
	for _, c := range cases {
		got, err := FormatAmount(c.in)
		if err != nil {
			t.Fatalf("FormatAmount(%v) failed: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", c.in, got, c.want)
		}
	}

	if _, err := FormatAmount(-1); err != ErrAmountFormat {
		t.Errorf("expected ErrAmountFormat for negative amount, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("45.00")
	if err != nil {
		t.Fatalf("ParseAmount failed: %v", err)
	}
	if v != 45 {
		t.Errorf("ParseAmount = %v, want 45", v)
	}

	if _, err := ParseAmount("abc"); err != ErrAmountFormat {
		t.Errorf("expected ErrAmountFormat for garbage input, got %v", err)
	}
}

func TestCents(t *testing.T) {
	if got := Cents(4.50); got != 450 {
		t.Errorf("Cents(4.50) = %d, want 450", got)
	}
	// 19.99 is not exactly representable; rounding must not drop a cent
	if got := Cents(19.99); got != 1999 {
		t.Errorf("Cents(19.99) = %d, want 1999", got)
	}
}
