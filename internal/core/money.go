// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals; rounding only happens when a value is
// formatted for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative euro amount held as an exact decimal.
type Money struct {
	Amount decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// NewMoney builds Money from a whole number of cents.
func NewMoney(cents int64) Money {
	return Money{Amount: decimal.New(cents, -2)}
}

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseAmount converts a user supplied amount into Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs, exponents and empty input are rejected. Zero is allowed.
//
// Examples:
//
//	ParseAmount("17.99") -> 17.99, nil
//	ParseAmount("17,99") -> 17.99, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d}, nil
}

func (m Money) Validate() error {
	if m.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Amount: m.Amount.Add(o.Amount)} }
func (m Money) Sub(o Money) Money { return Money{Amount: m.Amount.Sub(o.Amount)} }

func (m Money) Mul(n int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(n))}
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) Equal(o Money) bool {
	return m.Amount.Equal(o.Amount)
}

// String returns the exact amount with at least two decimals, keeping
// every decimal place the value was parsed with.
func (m Money) String() string {
	places := int32(2)
	if exp := -m.Amount.Exponent(); exp > places {
		places = exp
	}
	return m.Amount.StringFixed(places)
}

// Display rounds half-up to cents.
func (m Money) Display() string {
	return m.Amount.StringFixed(2)
}

// Euros returns the euro value as a float64 for display purposes.
func (m Money) Euros() float64 {
	return m.Amount.InexactFloat64()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds amounts exactly.
func Sum(amounts ...Money) Money {
	total := Money{}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
