package types

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places shown for prices and totals.
const MoneyPlaces = 2

// FormatMoney renders an amount with two decimal places.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(MoneyPlaces)
}

// RoundMoney rounds an amount half-away-from-zero to two places.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// SumMoney adds all amounts.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}
