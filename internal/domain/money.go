package domain

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits kept for monetary amounts.
const MoneyPlaces = 2

// RoundMoney rounds an amount to cent precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ClampMoney bounds v to [lo, hi].
func ClampMoney(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// ParseMoney parses a decimal string such as "19.99".
func ParseMoney(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
