package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"controladoria/internal/util"
)

func FormatBRL(amount float64) string {
	return formatBRL(fromFloat(amount), 2)
}

// FormatCompact drops cents and abbreviates large amounts for chart labels:
// R$ 1.5M, R$ 15K, R$ 9.999.
func FormatCompact(amount float64) string {
	d := fromFloat(amount)
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000_000)):
		return "R$ " + d.Div(decimal.NewFromInt(1_000_000)).StringFixed(1) + "M"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(10_000)):
		return "R$ " + d.Div(decimal.NewFromInt(1_000)).StringFixed(0) + "K"
	}
	return formatBRL(d, 0)
}

func formatBRL(d decimal.Decimal, places int32) string {
	neg := d.Round(places).IsNegative()
	fixed := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(fixed, ".")
	out := "R$ " + groupThousands(intPart)
	if places > 0 {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// InstallmentCount reads "3x"-style counts; missing or unusable counts mean
// a single payment.
func InstallmentCount(value any) int {
	if n, ok := util.ParseCount(Text(value)); ok {
		return n
	}
	return 1
}

// SplitEvenly divides total into n equal installments rounded to cents.
// The rounded amounts are not adjusted to add back up to total.
func SplitEvenly(total decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		n = 1
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// Delta is the percentage change from previous to current. A zero baseline
// reads as 100% growth when current is positive.
func Delta(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

func Percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
