package payment

import (
	"errors"
	"math"
	"strconv"
)

// ErrAmountFormat means an amount cannot be represented exactly at two
// decimal places, so sending it to a provider would drift.
var ErrAmountFormat = errors.New("amount does not round-trip at two decimals")

// Round2 rounds to the currency's minor unit.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders an amount the way the legacy NETS integration
// expects it: a plain string with exactly two decimals. The formatted
// string must parse back to the same cent value.
func FormatAmount(v float64) (string, error) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", ErrAmountFormat
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	back, err := strconv.ParseFloat(s, 64)
	if err != nil || math.Round(back*100) != math.Round(v*100) {
		return "", ErrAmountFormat
	}
	return s, nil
}

// ParseAmount reads a provider-sent string amount back into a float,
// enforcing the same two-decimal round-trip.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrAmountFormat
	}
	if _, err := FormatAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Cents converts an amount to the integer minor unit Stripe expects.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
