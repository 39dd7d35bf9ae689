// Package format renders monetary and nutrient values for display.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsNegative() {
		return "-$" + groupThousands(d.Abs().StringFixed(2))
	}
	return "$" + groupThousands(d.StringFixed(2))
}

// Fraction renders a diet fraction as a percentage with one decimal place.
func Fraction(x float64) string {
	return decimal.NewFromFloat(x).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func groupThousands(fixed string) string {
	intPart, decPart, _ := strings.Cut(fixed, ".")
	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}
	if decPart == "" {
		return intPart
	}
	return intPart + "." + decPart
}
