package documents

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// money formats an amount the way Québec invoices print it: "6 897,75 $".
// Currencies without a known symbol print their code.
func money(amount float64, currency string) string {
	return formatAmount(decimal.NewFromFloat(amount)) + " " + currencySymbol(currency)
}

func currencySymbol(currency string) string {
	switch code := strings.ToUpper(strings.TrimSpace(currency)); code {
	case "", "CAD", "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return code
	}
}

func formatAmount(d decimal.Decimal) string {
	fixed := d.Round(2).StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	whole, cents, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + cents
	if negative {
		out = "-" + out
	}
	return out
}

// percentOf returns part/total as a one-decimal percentage, or "n/d" when
// total is zero.
func percentOf(part, total float64) string {
	t := decimal.NewFromFloat(total)
	if t.IsZero() {
		return "n/d"
	}
	pct := decimal.NewFromFloat(part).Div(t).Mul(decimal.NewFromInt(100))
	return strings.Replace(pct.Round(1).StringFixed(1), ".", ",", 1) + " %"
}

func sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := total.Float64()
	return f
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
