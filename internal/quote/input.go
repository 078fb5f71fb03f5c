package quote

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-entered signed amount. Thousands separators are
// ignored; empty or invalid input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	switch s {
	case "", "-", ".", "-.":
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDistance parses a distance in feet, clamped to be non-negative.
func ParseDistance(raw string) decimal.Decimal {
	return NonNegative(ParseAmount(raw))
}

// ParseQuantity parses a whole quantity, clamped to be non-negative.
func ParseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
