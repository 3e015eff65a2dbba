// Package mathutil provides common floating point comparison helpers.
package mathutil

import "math"

// WithinTolerance checks if two values are within an absolute tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// WithinRelativeTolerance checks if two values agree to within tolerance
// times the larger magnitude. Two zeros always agree.
func WithinRelativeTolerance(val1, val2, tolerance float64) bool {
	scale := math.Max(math.Abs(val1), math.Abs(val2))
	return math.Abs(val1-val2) <= tolerance*scale
}

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(val float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(val*factor) / factor
}
