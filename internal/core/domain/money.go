package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the fixed scale for every monetary value: 2 fractional digits.
const moneyPlaces = 2

// Money is a fixed-point decimal amount with exactly 2 fractional digits.
// Every operation rounds its result once, half-up, so repeated arithmetic
// never accumulates sub-cent drift the way float math does.
type Money struct {
	amount decimal.Decimal
}

// Zero is the 0.00 amount.
var Zero = Money{amount: decimal.Zero}

// NewMoney builds a Money from a string like "199.00".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	return Money{amount: d.Round(moneyPlaces)}, nil
}

// MustMoney is NewMoney for literals; it panics on a malformed string.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + other, rounded to 2 places.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount).Round(moneyPlaces)}
}

// Sub returns m - other, rounded to 2 places.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount).Round(moneyPlaces)}
}

// MulRate multiplies by a rate (e.g. 0.005) and rounds once, half-up.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(rate).Round(moneyPlaces)}
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// IsPositive reports whether m > 0.00.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative reports whether m < 0.00.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Cmp returns -1, 0 or 1 comparing m against other.
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equal reports exact equality of the two amounts.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// String renders the amount with exactly 2 fractional digits, e.g. "59.30".
func (m Money) String() string {
	return m.amount.StringFixed(moneyPlaces)
}

// MarshalJSON renders Money as a JSON string, matching the wire format the
// mobile clients already parse ("balance": "199.00").
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.34" and a bare 12.34.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := NewMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
