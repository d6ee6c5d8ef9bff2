// Package pricing converts entered prices into comparable per-unit prices.
package pricing

import "math"

// Compute returns the price per small unit and per large unit. It performs no
// validation: callers reject non-positive or non-finite input first, otherwise
// NaN and Inf propagate through the result.
func Compute(price, quantity, factor float64) (perUnit, perLarge float64) {
	perUnit = price / quantity
	perLarge = perUnit * factor
	return perUnit, perLarge
}

// ValidAmount reports whether v is a positive finite number.
func ValidAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
