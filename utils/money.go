package utils

import "fmt"

// Money is stored everywhere as int64 minor units (cents/paise) so that
// summation stays exact. These helpers only touch formatting at the
// display boundary.

// FormatCents renders minor units as a decimal currency string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// CentsFromParts builds minor units from whole and fractional parts.
// The fractional part must already be in [0, 100).
func CentsFromParts(whole int64, fraction int64) int64 {
	if whole < 0 {
		return whole*100 - fraction
	}
	return whole*100 + fraction
}
