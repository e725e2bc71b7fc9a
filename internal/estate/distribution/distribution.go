// Package distribution implements intestate distribution under sections 35
// (monogamous) and 40 (polygamous) of the Law of Succession Act.
package distribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/gift"
	"github.com/mirathi/mirathi/internal/money"
)

// Tolerance is the rounding slack allowed when checking that an estate is
// fully distributed. One whole currency unit: KES amounts are integral, so
// an N-way split can drift by fractions of a shilling per share.
var Tolerance = decimal.NewFromInt(1)

// withinTolerance reports whether two amounts differ by at most Tolerance.
func withinTolerance(a, b money.Money) bool {
	return a.Amount().Sub(b.Amount()).Abs().LessThanOrEqual(Tolerance)
}

// Role describes the capacity in which a beneficiary takes a share.
type Role string

const (
	RoleSpouse Role = "SPOUSE"
	RoleChild  Role = "CHILD"
)

// Share is one beneficiary's final entitlement.
type Share struct {
	BeneficiaryID     uuid.UUID   `json:"beneficiaryId"`
	Name              string      `json:"name"`
	Role              Role        `json:"role"`
	ChattelsShare     money.Money `json:"chattelsShare"`
	ResidueShare      money.Money `json:"residueShare"`
	HotchpotDeduction money.Money `json:"hotchpotDeduction"`
	Total             money.Money `json:"total"`
	ByRepresentation  bool        `json:"byRepresentation,omitempty"`
}

// LifeInterest records the surviving spouse's life interest in the
// matrimonial home.
type LifeInterest struct {
	HolderID               uuid.UUID   `json:"holderId"`
	PropertyValue          money.Money `json:"propertyValue"`
	EstimatedEndDate       time.Time   `json:"estimatedEndDate"`
	TerminatesOnRemarriage bool        `json:"terminatesOnRemarriage"`
}

// eligibleChildren keeps living children and those taking by representation.
func eligibleChildren(children []estate.Beneficiary) []estate.Beneficiary {
	out := make([]estate.Beneficiary, 0, len(children))
	for _, c := range children {
		if c.Alive || c.Represents() {
			out = append(out, c)
		}
	}
	return out
}

// equalSplit divides total into n shares at the currency's precision,
// assigning the rounding remainder to the first share so the parts sum back
// to the whole exactly.
func equalSplit(total money.Money, n int) ([]money.Money, error) {
	if n <= 0 {
		return nil, nil
	}
	count := decimal.NewFromInt(int64(n))
	base, err := total.Div(count)
	if err != nil {
		return nil, err
	}
	// Div rounds half-up; step down one minor unit if the rounded share
	// overshoots the total.
	minor := decimal.New(1, -total.Currency().Precision())
	for base.Amount().Mul(count).GreaterThan(total.Amount()) {
		stepped, err := money.New(base.Amount().Sub(minor), total.Currency())
		if err != nil {
			return nil, err
		}
		base = stepped
	}

	shares := make([]money.Money, n)
	for i := range shares {
		shares[i] = base
	}
	used, err := base.Mul(count)
	if err != nil {
		return nil, err
	}
	remainder, err := total.Sub(used)
	if err != nil {
		return nil, err
	}
	if !remainder.IsZero() {
		first, err := shares[0].Add(remainder)
		if err != nil {
			return nil, err
		}
		shares[0] = first
	}
	return shares, nil
}

// hotchpotFor runs the hotchpot calculator over the given beneficiaries when
// lifetime gifts are supplied.
func hotchpotFor(netEstate money.Money, dateOfDeath time.Time, beneficiaries []estate.Beneficiary, gifts []*gift.Gift, rate money.Percentage, method gift.AdjustmentMethod) (*gift.Result, error) {
	if len(gifts) == 0 {
		return nil, nil
	}
	return gift.NewCalculator().Calculate(gift.Input{
		NetEstateValue: netEstate,
		DateOfDeath:    dateOfDeath,
		Beneficiaries:  beneficiaries,
		Gifts:          gifts,
		InflationRate:  rate,
		Method:         method,
	})
}

// deductHotchpot reduces a share by the beneficiary's adjustment, never
// below zero.
func deductHotchpot(share money.Money, adjustment money.Money) (money.Money, money.Money, error) {
	if adjustment.IsZero() || !share.GreaterThan(money.Zero(share.Currency())) {
		return share, money.Zero(share.Currency()), nil
	}
	applied := adjustment.Min(share)
	reduced, err := share.Sub(applied)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return reduced, applied, nil
}
