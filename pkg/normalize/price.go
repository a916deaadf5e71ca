package normalize

import "math"

// Markup is the fixed multiplicative margin applied to supplier base prices.
const Markup = 1.71

// priceStep is the rounding increment for retail prices.
const priceStep = 100.0

// Price computes the retail price for a supplier base price. It fails closed:
// a non-positive or non-finite base yields 0, meaning "not computable, do not
// sync". Otherwise the markup is applied and the result rounded up to the
// nearest 100-unit increment; a value already on a boundary is not bumped.
func Price(base float64) int {
	if math.IsNaN(base) || math.IsInf(base, 0) || base <= 0 {
		return 0
	}
	return roundUp(base * Markup)
}

// roundUp rounds v up to the nearest priceStep increment.
func roundUp(v float64) int {
	return int(math.Ceil(v/priceStep) * priceStep)
}
