// Package fmt renders numeric values for G-code words.
package fmt

import (
	"fmt"
	"strings"
)

// SprintFloat formats value with at most decimals fractional digits,
// dropping trailing zeros and a dangling decimal point. Firmwares accept
// both "X1" and "X1.0000"; the short form keeps lines small, which matters
// for character-counting flow control.
func SprintFloat(value float64, decimals uint) string {
	s := fmt.Sprintf("%.*f", decimals, value)
	if decimals > 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
