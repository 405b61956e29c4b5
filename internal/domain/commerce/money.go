package commerce

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCurrencyExponent bounds the minor-unit exponent accepted in configuration.
const MaxCurrencyExponent = 6

// Currency is an ISO 4217 code with its minor-unit exponent
// (3 for the Tunisian dinar, 2 for the euro).
type Currency struct {
	Code     string
	Exponent int32
}

// NewCurrency validates and normalizes a currency.
func NewCurrency(code string, exponent int32) (Currency, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != 3 {
		return Currency{}, fmt.Errorf("currency code %q must have 3 letters", code)
	}
	if exponent < 0 || exponent > MaxCurrencyExponent {
		return Currency{}, fmt.Errorf("currency exponent %d out of range 0..%d", exponent, MaxCurrencyExponent)
	}
	return Currency{Code: code, Exponent: exponent}, nil
}

// ToMinorUnits converts a decimal amount to an integer count of minor units,
// rounding half away from zero.
func (c Currency) ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(c.Exponent).Round(0).IntPart()
}

// FromMinorUnits converts minor units back to a decimal amount.
func (c Currency) FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -c.Exponent)
}

// Format renders minor units as a decimal string with the currency code,
// e.g. "12.500 TND".
func (c Currency) Format(units int64) string {
	return c.FromMinorUnits(units).StringFixed(c.Exponent) + " " + strings.ToUpper(c.Code)
}
