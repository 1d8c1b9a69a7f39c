package utils

import (
	"github.com/shopspring/decimal"
)

// ConvenienceFee calculates the gateway surcharge for an online payment,
// rounded to the nearest whole rupee. Office payments never call this.
func ConvenienceFee(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(0)
}

// RoundMoney normalizes an amount to 2 decimal places for storage.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// ToPaise converts a rupee amount to the smallest currency unit the gateway
// expects in its order payload.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
