package derive

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat formats f the way Python prints a float: the shortest
// representation that round-trips, always with a decimal point or exponent.
// Magnitudes from 1e16 up, or below 1e-4, use exponent notation.
//
//	60        -> "60.0"
//	2.5       -> "2.5"
//	1e16      -> "1e+16"
//	0.00001   -> "1e-05"
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// mean returns the arithmetic mean of values, or NaN for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
