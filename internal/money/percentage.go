package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrPercentageOutOfRange rejects percentages outside [0, 100].
var ErrPercentageOutOfRange = errors.New("money: percentage must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// Percentage is a value between 0 and 100, normalized to two decimal places.
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage validates and normalizes a percentage value.
func NewPercentage(value decimal.Decimal) (Percentage, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Percentage{}, fmt.Errorf("%w: %s", ErrPercentageOutOfRange, value)
	}
	return Percentage{value: value.Round(2)}, nil
}

// NewPercentageFromFloat validates a float percentage value.
func NewPercentageFromFloat(value float64) (Percentage, error) {
	return NewPercentage(decimal.NewFromFloat(value))
}

// MustPercentage builds a percentage and panics on invalid input. Reserved
// for package-level statutory constants.
func MustPercentage(value float64) Percentage {
	p, err := NewPercentageFromFloat(value)
	if err != nil {
		panic(err)
	}
	return p
}

// Value returns the percentage on the 0-100 scale.
func (p Percentage) Value() decimal.Decimal { return p.value }

// Fraction returns the percentage on the 0-1 scale.
func (p Percentage) Fraction() decimal.Decimal { return p.value.Div(hundred) }

// IsZero reports whether the percentage is zero.
func (p Percentage) IsZero() bool { return p.value.IsZero() }

// String implements fmt.Stringer.
func (p Percentage) String() string { return p.value.StringFixed(2) + "%" }

// MarshalJSON encodes the percentage as its 0-100 value.
func (p Percentage) MarshalJSON() ([]byte, error) {
	return []byte(p.value.StringFixed(2)), nil
}

// UnmarshalJSON decodes and validates a 0-100 value.
func (p *Percentage) UnmarshalJSON(data []byte) error {
	value, err := decimal.NewFromString(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	parsed, err := NewPercentage(value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
