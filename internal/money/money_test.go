package money

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNegativeAmount(t *testing.T) {
	_, err := NewFromFloat(-10, KES)
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestNewRejectsUnknownCurrency(t *testing.T) {
	_, err := New(decimal.NewFromInt(100), Currency("XXX"))
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestKESHoldsWholeUnitsOnly(t *testing.T) {
	m, err := NewFromFloat(1250.75, KES)
	require.NoError(t, err)
	require.True(t, m.Amount().Equal(decimal.NewFromInt(1251)), "got %s", m.Amount())

	down, err := NewFromFloat(1250.4, KES)
	require.NoError(t, err)
	require.True(t, down.Amount().Equal(decimal.NewFromInt(1250)))
}

func TestUSDRoundsHalfUpToCents(t *testing.T) {
	m, err := NewFromFloat(10.005, USD)
	require.NoError(t, err)
	require.Equal(t, "10.01", m.Amount().StringFixed(2))
}

func TestAddRequiresSameCurrency(t *testing.T) {
	kes, _ := NewFromFloat(100, KES)
	usd, _ := NewFromFloat(100, USD)
	_, err := kes.Add(usd)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestAddThenSubtractRoundTrips(t *testing.T) {
	a, _ := NewFromFloat(125000, KES)
	b, _ := NewFromFloat(37500, KES)

	sum, err := a.Add(b)
	require.NoError(t, err)
	back, err := sum.Sub(b)
	require.NoError(t, err)
	require.True(t, back.Equal(a))
}

func TestSubRejectsNegativeResult(t *testing.T) {
	a, _ := NewFromFloat(100, KES)
	b, _ := NewFromFloat(200, KES)
	_, err := a.Sub(b)
	require.ErrorIs(t, err, ErrNegativeResult)
}

func TestMulRejectsNegativeFactor(t *testing.T) {
	a, _ := NewFromFloat(100, KES)
	_, err := a.Mul(decimal.NewFromInt(-2))
	require.ErrorIs(t, err, ErrInvalidFactor)
}

func TestDivRejectsZeroAndNegativeDivisors(t *testing.T) {
	a, _ := NewFromFloat(100, KES)
	_, err := a.Div(decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidDivisor)
	_, err = a.Div(decimal.NewFromInt(-3))
	require.ErrorIs(t, err, ErrInvalidDivisor)
}

func TestDivRoundsToCurrencyPrecision(t *testing.T) {
	a, _ := NewFromFloat(1000, KES)
	third, err := a.Div(decimal.NewFromInt(3))
	require.NoError(t, err)
	require.True(t, third.Amount().Equal(decimal.NewFromInt(333)), "got %s", third.Amount())
}

func TestPercentOfAmount(t *testing.T) {
	estate, _ := NewFromFloat(900000, KES)
	p, err := NewPercentageFromFloat(33.33)
	require.NoError(t, err)
	share := estate.Percent(p)
	require.True(t, share.Amount().Equal(decimal.NewFromInt(299970)), "got %s", share.Amount())
}

func TestPercentageBounds(t *testing.T) {
	_, err := NewPercentageFromFloat(-1)
	require.ErrorIs(t, err, ErrPercentageOutOfRange)
	_, err = NewPercentageFromFloat(100.01)
	require.ErrorIs(t, err, ErrPercentageOutOfRange)

	p, err := NewPercentageFromFloat(100)
	require.NoError(t, err)
	require.Equal(t, "100.00%", p.String())
}

func TestEqualWithinEpsilon(t *testing.T) {
	a, _ := New(decimal.RequireFromString("100.0001"), USD)
	b, _ := New(decimal.RequireFromString("100.0002"), USD)
	require.True(t, a.Equal(b))

	kes, _ := NewFromFloat(100, KES)
	usd, _ := NewFromFloat(100, USD)
	require.False(t, kes.Equal(usd))
}

func TestComparisonHelpers(t *testing.T) {
	a, _ := NewFromFloat(500, KES)
	b, _ := NewFromFloat(300, KES)
	require.True(t, a.GreaterThan(b))
	require.True(t, b.LessThan(a))
	require.True(t, a.Min(b).Equal(b))

	usd, _ := NewFromFloat(900, USD)
	require.False(t, a.GreaterThan(usd))
}

func TestFormatUsesThousandsSeparators(t *testing.T) {
	m, _ := NewFromFloat(1250000, KES)
	require.Equal(t, "KES 1,250,000", m.Format())
}

func TestDateRangeOrdering(t *testing.T) {
	start := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := NewDateRange(start, start.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestDateRangeCalendarYears(t *testing.T) {
	gift := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	death := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	r, err := NewDateRange(gift, death)
	require.NoError(t, err)
	require.Equal(t, 5, r.CalendarYears())
	require.True(t, r.Contains(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, r.Contains(death.AddDate(0, 0, 1)))
}
