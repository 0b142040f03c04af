package utils

import "math"

// Numeric boundary checks for measurement and sensory fields. Out-of-range
// values are rejected here, before any store call, never by the store.

// IsFinite reports whether f is a real, usable number (not NaN or ±Inf).
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidMeasurement accepts an absent measurement or any finite value.
func ValidMeasurement(f *float64) bool {
	return f == nil || IsFinite(*f)
}

// ValidScore accepts an absent sensory score or an integer on the 1-5 scale.
func ValidScore(n *int) bool {
	return n == nil || (*n >= 1 && *n <= 5)
}

// ValidQuantity accepts an absent quantity or any non-negative integer.
func ValidQuantity(n *int) bool {
	return n == nil || *n >= 0
}
