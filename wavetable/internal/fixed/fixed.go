// Package fixed converts decimal strings in physical units to the scaled
// integer fields of the wavetable binary layout.
package fixed

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrSyntax reports a value that is not a decimal number.
	ErrSyntax = errors.New("invalid decimal value")
	// ErrRange reports a scaled value outside its field bounds.
	ErrRange = errors.New("value out of range")
)

// Parse converts a decimal string to a fixed-point integer by multiplying
// with scale and rounding half away from zero. The scaled result must lie
// in [lo, hi].
func Parse(s string, scale, lo, hi int) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, ErrSyntax
	}

	v := int(math.Round(f * float64(scale)))
	if v < lo || v > hi {
		return v, ErrRange
	}

	return v, nil
}

// ParseBool converts "0" or "1" to a boolean; any other value is an error.
func ParseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, ErrRange
}

// ParseInt converts a plain decimal integer in [lo, hi].
func ParseInt(s string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrSyntax
	}
	if v < lo || v > hi {
		return v, ErrRange
	}
	return v, nil
}
