// Package pricing computes option settlement values.
//
// The model is intrinsic-value-only: an option settles to its payoff at
// expiration, with no time-value, volatility, or interest-rate component.
package pricing

import (
	"math"

	"github.com/contactkeval/pair-credit/internal/market"
)

// Intrinsic returns the settlement value of an option at the given
// underlying price: max(0, S-K) for calls, max(0, K-S) for puts.
//
// Total over its domain: defined for any real price and strike, always
// non-negative, exactly zero at the strike.
func Intrinsic(price, strike float64, right market.Right) float64 {
	if right == market.Call {
		return math.Max(0, price-strike)
	}
	return math.Max(0, strike-price)
}
