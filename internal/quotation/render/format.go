package render

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol prefixes every amount unless configured otherwise.
const DefaultCurrencySymbol = "₹"

const dateLayout = "02-01-2006"

// FormatMoney renders d rounded half-up to two places with Indian digit
// grouping: the last three integer digits, then pairs (₹1,23,45,678.90).
func FormatMoney(d decimal.Decimal, symbol string) string {
	raw := d.Abs().StringFixed(2)
	intPart, decPart, _ := strings.Cut(raw, ".")

	out := symbol + groupIndian(intPart) + "." + decPart
	if d.Round(2).IsNegative() {
		out = "-" + out
	}
	return out
}

// FormatAmount is FormatMoney without a symbol, for table cells.
func FormatAmount(d decimal.Decimal) string {
	return FormatMoney(d, "")
}

// FormatPercent drops insignificant zeros: 18 -> "18%", 12.5 -> "12.5%".
func FormatPercent(d decimal.Decimal) string {
	return d.String() + "%"
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func groupIndian(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	remaining := s[:n-3]
	for len(remaining) > 2 {
		result = remaining[len(remaining)-2:] + "," + result
		remaining = remaining[:len(remaining)-2]
	}
	if len(remaining) > 0 {
		result = remaining + "," + result
	}
	return result
}
