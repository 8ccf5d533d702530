package payments

import (
	"math"
	"strconv"
)

// AmountRange bounds an order amount in a gateway's native unit.
type AmountRange struct {
	Min        float64
	Max        float64
	MinMessage string
	MaxMessage string
	// WholeUnits rejects fractional amounts (Razorpay takes integer paise).
	WholeUnits bool
}

var (
	// RazorpayAmounts is expressed in paise.
	RazorpayAmounts = AmountRange{
		Min:        100,
		Max:        100000000,
		MinMessage: "Minimum payment amount is ₹1 (100 paise)",
		MaxMessage: "Maximum payment amount is ₹10,00,000 (100000000 paise)",
		WholeUnits: true,
	}
	// PayUAmounts is expressed in rupees.
	PayUAmounts = AmountRange{
		Min:        1,
		Max:        1000000,
		MinMessage: "Minimum payment amount is ₹1",
		MaxMessage: "Maximum payment amount is ₹10,00,000",
	}
)

// Validate returns a *ValidationError when amount is absent or out of range.
// Both bounds are inclusive.
func (r AmountRange) Validate(amount float64) error {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return invalid("Amount is required and must be a number")
	}
	if r.WholeUnits && amount != math.Trunc(amount) {
		return invalid("Amount must be a whole number of the smallest currency unit")
	}
	if amount < r.Min {
		return invalid(r.MinMessage)
	}
	if amount > r.Max {
		return invalid(r.MaxMessage)
	}
	return nil
}

// FormatAmount renders an amount the shortest way that round-trips (499, 1.5),
// which is the text gateways hash.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
