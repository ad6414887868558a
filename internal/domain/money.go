package domain

import "math"

// DefaultCurrency is the ISO code used for every simulated order.
const DefaultCurrency = "USD"

// RoundMinor rounds a fractional minor-unit amount half away from zero.
func RoundMinor(v float64) int64 {
	return int64(math.Round(v))
}

// MinorFromMajor converts a decimal major-unit amount (dollars) into minor units.
func MinorFromMajor(v float64) int64 {
	return RoundMinor(v * 100)
}

// MajorFromMinor converts minor units back to a decimal major-unit amount.
func MajorFromMinor(v int64) float64 {
	return float64(v) / 100
}
