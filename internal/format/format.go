// Package format renders amounts and phone numbers for display.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Price renders a peso amount with a leading "$", dot thousands separators
// and no decimals: 1200 -> "$1.200", 0 -> "$0".
func Price(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "$" + group(rounded.StringFixed(0))
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Phone renders a 10-digit mobile number as "300 123 4567". Anything else is
// returned trimmed but otherwise untouched.
func Phone(raw string) string {
	digits := strings.TrimSpace(raw)
	if len(digits) != 10 || strings.Trim(digits, "0123456789") != "" {
		return digits
	}
	return digits[:3] + " " + digits[3:6] + " " + digits[6:]
}
