// Package debt implements the estate liability aggregate: statutory priority
// tiers, interest accrual, payments, disputes, and limitation handling.
package debt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/money"
)

// Type classifies the origin of a liability against the estate.
type Type string

const (
	TypeFuneralExpense       Type = "FUNERAL_EXPENSE"
	TypeTestamentaryExpense  Type = "TESTAMENTARY_EXPENSE"
	TypeSecuredLoan          Type = "SECURED_LOAN"
	TypeMortgage             Type = "MORTGAGE"
	TypeTaxObligation        Type = "TAX_OBLIGATION"
	TypeRatesObligation      Type = "RATES_OBLIGATION"
	TypeUnpaidWages          Type = "UNPAID_WAGES"
	TypeMedicalBill          Type = "MEDICAL_BILL"
	TypePersonalLoan         Type = "PERSONAL_LOAN"
	TypeSupplierCredit       Type = "SUPPLIER_CREDIT"
	TypeOther                Type = "OTHER"
)

// Valid reports whether the debt type is recognized.
func (t Type) Valid() bool {
	switch t {
	case TypeFuneralExpense, TypeTestamentaryExpense, TypeSecuredLoan, TypeMortgage,
		TypeTaxObligation, TypeRatesObligation, TypeUnpaidWages, TypeMedicalBill,
		TypePersonalLoan, TypeSupplierCredit, TypeOther:
		return true
	}
	return false
}

// IsTax reports whether the debt is a revenue-authority obligation.
func (t Type) IsTax() bool { return t == TypeTaxObligation }

// Tier is the statutory settlement priority of a liability. Lower order pays
// first: funeral and testamentary expenses, then secured creditors, then
// taxes, rates and wages, then general unsecured creditors.
type Tier int

const (
	TierFuneralTestamentary Tier = 1
	TierSecured             Tier = 2
	TierTaxesRatesWages     Tier = 3
	TierUnsecuredGeneral    Tier = 4
)

// Order returns the numeric settlement order, 1 paying first.
func (t Tier) Order() int { return int(t) }

// MandatoryPayment reports whether the tier must be settled before any
// distribution; only general unsecured claims are waivable.
func (t Tier) MandatoryPayment() bool { return t <= TierTaxesRatesWages }

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierFuneralTestamentary:
		return "FUNERAL_TESTAMENTARY"
	case TierSecured:
		return "SECURED"
	case TierTaxesRatesWages:
		return "TAXES_RATES_WAGES"
	case TierUnsecuredGeneral:
		return "UNSECURED_GENERAL"
	}
	return "UNKNOWN"
}

// TierFor derives the statutory tier from debt type and security.
func TierFor(t Type, secured bool) Tier {
	switch t {
	case TypeFuneralExpense, TypeTestamentaryExpense:
		return TierFuneralTestamentary
	case TypeSecuredLoan, TypeMortgage:
		return TierSecured
	case TypeTaxObligation, TypeRatesObligation, TypeUnpaidWages:
		return TierTaxesRatesWages
	}
	if secured {
		return TierSecured
	}
	return TierUnsecuredGeneral
}

// InterestType selects the accrual model for a debt's terms.
type InterestType string

const (
	InterestNone     InterestType = "NONE"
	InterestSimple   InterestType = "SIMPLE"
	InterestCompound InterestType = "COMPOUND"
)

// CompoundingFrequency is how often compound interest capitalizes.
type CompoundingFrequency string

const (
	CompoundMonthly   CompoundingFrequency = "MONTHLY"
	CompoundQuarterly CompoundingFrequency = "QUARTERLY"
	CompoundAnnually  CompoundingFrequency = "ANNUALLY"
)

// PeriodsPerYear returns the number of capitalization periods per year.
func (f CompoundingFrequency) PeriodsPerYear() int {
	switch f {
	case CompoundMonthly:
		return 12
	case CompoundQuarterly:
		return 4
	default:
		return 1
	}
}

// Terms captures the immutable financial terms of a single debt.
type Terms struct {
	Principal             money.Money
	InterestRate          *money.Percentage
	InterestType          InterestType
	Compounding           CompoundingFrequency
	DueDate               *time.Time
	Secured               bool
	RequiresCourtApproval bool
	SecurityDetails       string
}

var daysPerYear = decimal.NewFromInt(365)

// AccruedInterest computes interest accrued between two dates. Simple
// interest accrues pro rata by day; compound interest capitalizes only on
// whole elapsed periods.
func (t Terms) AccruedInterest(from, asOf time.Time) (money.Money, error) {
	if t.InterestType == InterestNone || t.InterestType == "" || t.InterestRate == nil {
		return money.Zero(t.Principal.Currency()), nil
	}
	r, err := money.NewDateRange(from, asOf)
	if err != nil {
		return money.Money{}, err
	}
	days := decimal.NewFromInt(int64(r.Days()))
	if !days.IsPositive() {
		return money.Zero(t.Principal.Currency()), nil
	}
	rate := t.InterestRate.Fraction()

	if t.InterestType == InterestSimple {
		years := days.Div(daysPerYear)
		return t.Principal.Mul(rate.Mul(years))
	}

	n := decimal.NewFromInt(int64(t.Compounding.PeriodsPerYear()))
	wholePeriods := days.Div(daysPerYear).Mul(n).Floor()
	if !wholePeriods.IsPositive() {
		return money.Zero(t.Principal.Currency()), nil
	}
	growth := decimal.NewFromInt(1).Add(rate.Div(n)).Pow(wholePeriods)
	return t.Principal.Mul(growth.Sub(decimal.NewFromInt(1)))
}

// TotalPayable returns principal plus interest accrued since the debt was
// incurred.
func (t Terms) TotalPayable(incurredAt, asOf time.Time) (money.Money, error) {
	interest, err := t.AccruedInterest(incurredAt, asOf)
	if err != nil {
		return money.Money{}, err
	}
	return t.Principal.Add(interest)
}
