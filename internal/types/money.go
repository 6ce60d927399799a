package types

import (
	"strings"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/shopspring/decimal"
)

const (
	// MoneyPrecision is the number of fractional digits kept on every monetary amount
	MoneyPrecision int32 = 2
	// RatePrecision is the number of fractional digits kept on tax rate percentages
	RatePrecision int32 = 4
	// QuantityPrecision is the number of fractional digits kept on line quantities
	QuantityPrecision int32 = 3
)

// RoundMoney rounds an amount to two places, half away from zero.
// All money arithmetic in the ledger goes through this single rounding rule.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}

// RoundRate rounds a tax percentage to four places.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePrecision)
}

// RoundQuantity rounds a line quantity to three places.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPrecision)
}

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SumMoney adds the given amounts and rounds the result.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return RoundMoney(total)
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateCurrencyCode checks that a currency is a three letter code.
func ValidateCurrencyCode(currency string) error {
	if len(currency) != 3 {
		return ierr.NewError("invalid currency code").
			WithHintf("Currency %q must be a three letter ISO code", currency).
			Mark(ierr.ErrValidation)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return ierr.NewError("invalid currency code").
				WithHintf("Currency %q must be a three letter ISO code", currency).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// IsCurrencyEqual compares two currency codes ignoring case.
func IsCurrencyEqual(a, b string) bool {
	return NormalizeCurrency(a) == NormalizeCurrency(b)
}
