package commission

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept on monetary amounts.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// TruncateMoney drops digits past MoneyScale toward zero. Truncation (not
// rounding) keeps split shares from ever summing above the gross amount.
func TruncateMoney(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(MoneyScale)
}

// FitsMoneyScale reports whether d has no digits past MoneyScale.
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// PercentOf returns amount × percent / 100, truncated to money scale.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return TruncateMoney(amount.Mul(percent).Div(hundred))
}

// NormalizeCurrency upper-cases and trims an ISO 4217 code.
func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
