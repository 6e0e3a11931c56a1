package cli

import (
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"harvest-ledger/internal/models"
)

// DefaultCurrency is used when the configured currency code is unknown.
const DefaultCurrency = money.USD

// FormatFiat formats an amount in the given ISO currency, rounded to the
// currency's minor unit: FormatFiat(1234.5, "USD") == "$1,234.50".
func FormatFiat(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		code = DefaultCurrency
		cur = money.GetCurrency(code)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), code).Display()
}

// FormatSignedFiat is FormatFiat with a leading + on positive amounts.
func FormatSignedFiat(amount decimal.Decimal, code string) string {
	if amount.IsPositive() {
		return "+" + FormatFiat(amount, code)
	}
	return FormatFiat(amount, code)
}

// FormatPrice formats a BTC price without rounding away precision beyond cents.
func FormatPrice(price decimal.Decimal, code string) string {
	if price.Equal(price.Round(2)) {
		return FormatFiat(price, code)
	}
	return price.String()
}

// FormatSats groups a sats quantity in thousands: 1234567 -> "1,234,567".
func FormatSats(s models.Sats) string {
	digits := strconv.FormatInt(int64(s), 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// FormatSignedSats is FormatSats with a leading + on positive quantities.
func FormatSignedSats(s models.Sats) string {
	if s > 0 {
		return "+" + FormatSats(s)
	}
	return FormatSats(s)
}

// FormatBTC renders sats as a whole-bitcoin amount with all eight places.
func FormatBTC(s models.Sats) string {
	return s.BTC().StringFixed(8) + " BTC"
}

// FormatPercent renders a fraction as a signed percentage: 0.0497 -> "+4.97%".
func FormatPercent(fraction decimal.Decimal) string {
	pct := fraction.Shift(2).StringFixed(2) + "%"
	if fraction.IsPositive() {
		return "+" + pct
	}
	return pct
}

// TruncateString shortens s to max runes, marking the cut with "...".
func TruncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
