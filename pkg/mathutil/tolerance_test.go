package mathutil

import (
	"math"
	"testing"
)

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name      string
		val1      float64
		val2      float64
		tolerance float64
		expected  bool
	}{
		{"Equal values", 1.0, 1.0, 0, true},
		{"Within tolerance", 1.0, 1.0005, 0.001, true},
		{"At tolerance", 1.0, 1.5, 0.5, true},
		{"Outside tolerance", 1.0, 1.01, 0.001, false},
		{"Negative values", -2.0, -2.0001, 0.001, true},
		{"NaN never matches", math.NaN(), 1.0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WithinTolerance(tt.val1, tt.val2, tt.tolerance)
			if result != tt.expected {
				t.Errorf("WithinTolerance(%v, %v, %v) = %v, expected %v", tt.val1, tt.val2, tt.tolerance, result, tt.expected)
			}
		})
	}
}

func TestWithinRelativeTolerance(t *testing.T) {
	tests := []struct {
		name      string
		val1      float64
		val2      float64
		tolerance float64
		expected  bool
	}{
		{"Both zero", 0, 0, 1e-6, true},
		{"Large values close", 1.0e17, 1.0e17 + 16, 1e-6, true},
		{"Large values apart", 1.0e17, 1.1e17, 1e-6, false},
		{"Small values apart", 1e-9, 2e-9, 1e-6, false},
		{"Order does not matter", 262963.2017, 262963.2016, 1e-6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WithinRelativeTolerance(tt.val1, tt.val2, tt.tolerance)
			if result != tt.expected {
				t.Errorf("WithinRelativeTolerance(%v, %v, %v) = %v, expected %v", tt.val1, tt.val2, tt.tolerance, result, tt.expected)
			}
			if reverse := WithinRelativeTolerance(tt.val2, tt.val1, tt.tolerance); reverse != result {
				t.Errorf("WithinRelativeTolerance is not symmetric for %v, %v", tt.val1, tt.val2)
			}
		})
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		decimals int
		expected float64
	}{
		{"Two decimals", 7788.378115, 2, 7788.38},
		{"Four decimals", 0.06285932549995063, 4, 0.0629},
		{"Zero decimals", 327.61, 0, 328},
		{"Negative value", -463.31219, 2, -463.31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundTo(tt.input, tt.decimals)
			if result != tt.expected {
				t.Errorf("RoundTo(%v, %d) = %v, expected %v", tt.input, tt.decimals, result, tt.expected)
			}
		})
	}
}
