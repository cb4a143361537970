// Package core provides the bill tracker's domain types, money parsing and
// due-date arithmetic.
//
// This file contains functions for parsing monetary amounts from pt-BR
// locale strings and formatting exact decimals back for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied amount string into an exact decimal.
//
// Two formats are accepted:
//   - plain numeric ("1234.56"): a decimal point with no comma present
//   - pt-BR locale ("1.234,56"): "." as thousands separator, "," as decimal
//
// In the locale case all points are stripped and the comma becomes the
// decimal point; if that fails a final direct parse of the original string
// is attempted. ParseAmount never constructs a decimal from a binary float,
// so no rounding artifacts can leak into monetary values.
//
// Examples:
//
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("1234.56")  -> 1234.56
//	ParseAmount("12,34")    -> 12.34
//	ParseAmount("abc")      -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if strings.Contains(s, ".") && !strings.Contains(s, ",") {
		// Plain numeric format, the point is the decimal separator.
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, ErrInvalidAmount
		}
		return d, nil
	}
	normalized := strings.ReplaceAll(s, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	if d, err := decimal.NewFromString(normalized); err == nil {
		return d, nil
	}
	// Last resort: the original string as-is.
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}
	return decimal.Decimal{}, ErrInvalidAmount
}

// FormatAmount renders a decimal as a pt-BR currency string ("R$ 1.234,56")
// with exactly two fractional digits. A nil value renders as "N/A". The
// function never panics.
func FormatAmount(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	grouped := groupThousands(intPart)
	if neg {
		return "R$ -" + grouped + "," + fracPart
	}
	return "R$ " + grouped + "," + fracPart
}

// groupThousands inserts "." every three digits from the right.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
