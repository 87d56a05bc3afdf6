package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to two decimals. It is meant for
// presentation; totals are carried at full precision.
func Round2(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// FormatMoney renders an amount as "<currency> 1,234.56".
func FormatMoney(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return strings.TrimSpace(fmt.Sprintf("%s %v", currency, amount))
	}

	raw := decimal.NewFromFloat(amount).StringFixed(2)

	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	intPart, decPart, _ := strings.Cut(raw, ".")

	out := groupThousands(intPart) + "." + decPart
	if negative && strings.Trim(out, "0.,") != "" {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return currency + " " + out
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
