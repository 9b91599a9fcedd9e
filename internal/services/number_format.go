package services

import (
	"fmt"
	"math"
	"strings"
)

// FormatBRL renders an amount in Brazilian reais.
// Example: 1500.5 -> "R$ 1.500,50"
func FormatBRL(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	cents := int64(math.Round(amount * 100))
	return fmt.Sprintf("%sR$ %s,%02d", sign, groupThousands(cents/100), cents%100)
}

// FormatPercent renders a percentage with a comma decimal separator.
// Example: 12.345 -> "12,35%"
func FormatPercent(value float64) string {
	return strings.Replace(fmt.Sprintf("%.2f%%", value), ".", ",", 1)
}

// FormatDecimal renders a plain number with pt-BR separators and the given precision
func FormatDecimal(value float64, precision int) string {
	s := fmt.Sprintf("%.*f", precision, math.Abs(value))
	intPart, frac, _ := strings.Cut(s, ".")
	var n int64
	fmt.Sscan(intPart, &n)

	out := groupThousands(n)
	if frac != "" {
		out += "," + frac
	}
	if value < 0 && strings.Trim(s, "0.") != "" {
		out = "-" + out
	}
	return out
}

// groupThousands inserts dots every three digits
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// monthLabel renders a ledger month for people: month 0 is the signing month
func monthLabel(month int, locale string) string {
	if month == 0 {
		if locale == "en" {
			return "Signing"
		}
		return "Ato"
	}
	if locale == "en" {
		return fmt.Sprintf("Month %d", month)
	}
	return fmt.Sprintf("Mês %d", month)
}
