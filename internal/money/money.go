// Package money provides exact currency arithmetic for estate calculations.
package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency identifies the denomination of a monetary amount.
type Currency string

const (
	KES Currency = "KES"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	TZS Currency = "TZS"
	UGX Currency = "UGX"
)

// Sentinel errors for money operations.
var (
	ErrUnknownCurrency  = errors.New("money: unknown currency")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrNegativeAmount   = errors.New("money: amount must not be negative")
	ErrNegativeResult   = errors.New("money: subtraction result would be negative")
	ErrInvalidFactor    = errors.New("money: factor must not be negative")
	ErrInvalidDivisor   = errors.New("money: divisor must be positive")
)

// Precision returns the number of minor-unit decimal places for the currency.
// Kenyan shillings are held in whole units only.
func (c Currency) Precision() int32 {
	if c == KES {
		return 0
	}
	return 2
}

// Valid reports whether the currency is one of the supported denominations.
func (c Currency) Valid() bool {
	switch c {
	case KES, USD, EUR, GBP, TZS, UGX:
		return true
	}
	return false
}

// epsilon absorbs float-sourced rounding noise in equality checks.
var epsilon = decimal.New(1, -3)

var printer = message.NewPrinter(language.English)

// Money is an immutable amount in a single currency. Every operation returns
// a new value rounded to the currency's native precision.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New builds a Money value, rejecting negative amounts and unknown currencies.
// The amount is rounded half-up to the currency's precision.
func New(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	return Money{amount: round(amount, currency), currency: currency}, nil
}

// NewFromFloat builds a Money value from a float amount.
func NewFromFloat(amount float64, currency Currency) (Money, error) {
	return New(decimal.NewFromFloat(amount), currency)
}

// Zero returns the zero value for the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func round(d decimal.Decimal, c Currency) decimal.Decimal {
	// shopspring's Round is half-away-from-zero, which for the non-negative
	// amounts held here is exactly round-half-up.
	return d.Round(c.Precision())
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the denomination.
func (m Money) Currency() Currency { return m.currency }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns m + other. Both values must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: round(m.amount.Add(other.amount), m.currency), currency: m.currency}, nil
}

// Sub returns m - other, rejecting negative results.
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m.amount, other.amount)
	}
	return Money{amount: round(result, m.currency), currency: m.currency}, nil
}

// Mul returns m scaled by factor, rejecting negative factors.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidFactor, factor)
	}
	return Money{amount: round(m.amount.Mul(factor), m.currency), currency: m.currency}, nil
}

// Div returns m divided by divisor, rejecting divisors that are zero or negative.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if !divisor.IsPositive() {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidDivisor, divisor)
	}
	return Money{amount: round(m.amount.Div(divisor), m.currency), currency: m.currency}, nil
}

// Percent returns the given percentage of m. Percentage construction already
// enforces the 0-100 bound.
func (m Money) Percent(p Percentage) Money {
	return Money{amount: round(m.amount.Mul(p.Fraction()), m.currency), currency: m.currency}
}

// Equal reports value equality within a small epsilon. Values in different
// currencies are never equal.
func (m Money) Equal(other Money) bool {
	if m.currency != other.currency {
		return false
	}
	return m.amount.Sub(other.amount).Abs().LessThan(epsilon)
}

// Cmp compares amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

// GreaterThan reports m > other, treating a currency mismatch as false.
func (m Money) GreaterThan(other Money) bool {
	c, err := m.Cmp(other)
	return err == nil && c > 0
}

// LessThan reports m < other, treating a currency mismatch as false.
func (m Money) LessThan(other Money) bool {
	c, err := m.Cmp(other)
	return err == nil && c < 0
}

// Min returns the smaller of m and other (m on mismatch).
func (m Money) Min(other Money) Money {
	if other.LessThan(m) {
		return other
	}
	return m
}

// Format renders the amount with thousands separators, e.g. "KES 1,250,000".
func (m Money) Format() string {
	if m.currency.Precision() == 0 {
		return printer.Sprintf("%s %d", string(m.currency), m.amount.IntPart())
	}
	f, _ := m.amount.Float64()
	return printer.Sprintf("%s %.2f", string(m.currency), f)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return string(m.currency) + " " + m.amount.StringFixed(m.currency.Precision())
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// MarshalJSON encodes the value as {"amount": ..., "currency": ...}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON decodes and validates a money value.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
