package models

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount as stored in site documents. Unmarshalling is
// deliberately tolerant: a malformed or missing value loads as zero instead
// of poisoning the whole document, and the cumulative total gets recomputed
// on load anyway.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal as Money.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromFloat builds Money from a float input (form fields, config).
func MoneyFromFloat(f float64) Money {
	return Money{Decimal: decimal.NewFromFloat(f)}
}

// MarshalJSON writes the amount as a plain JSON number with two decimals,
// matching the document layout produced by earlier versions of the system.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.StringFixed(2)), nil
}

// UnmarshalJSON accepts numbers, quoted numbers, and garbage (as zero).
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		m.Decimal = decimal.Zero
		return nil
	}
	m.Decimal = d
	return nil
}
