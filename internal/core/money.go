// Package core provides money parsing and handling utilities.
//
// Amounts are currency-agnostic decimals. They travel as bare JSON numbers
// and are always displayed with two fractional digits.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount.
type Money struct {
	decimal.Decimal
}

// NewMoney builds Money from a float, as decoded from loosely typed sources.
func NewMoney(f float64) Money {
	return Money{Decimal: decimal.NewFromFloat(f)}
}

// User-typed amounts: up to 12 integer digits and 2 decimals, no exponent.
var amountPattern = regexp.MustCompile(`^[+-]?\d{1,12}([.,]\d{1,2})?$`)

// Bounds for amounts decoded from the API.
const (
	maxExponent = 12
	minExponent = -12
	maxDigits   = 24
)

// ParseAmount converts a user-typed decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Exponent
// notation is rejected. The sign is not checked here, see Money.Validate.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Format renders the amount with exactly two decimals, e.g. "250.00".
func (m Money) Format() string {
	return m.StringFixed(2)
}

// MarshalJSON writes a bare number; decimal's default would quote it.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers and quoted numbers within a bounded
// exponent and precision.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if e := d.Exponent(); e > maxExponent || e < minExponent || d.NumDigits() > maxDigits {
		return ErrInvalidAmount
	}
	m.Decimal = d
	return nil
}
