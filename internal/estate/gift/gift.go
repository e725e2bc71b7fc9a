// Package gift implements lifetime-gift records and the hotchpot adjustment
// that brings advancements back into account under section 35(3).
package gift

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/money"
)

// AdjustmentMethod selects the valuation strategy used to restate a gift at
// the date of death. All methods share the base compounding formula and
// differ only in the value or rate they feed it.
type AdjustmentMethod string

const (
	MethodFixedInflation     AdjustmentMethod = "FIXED_INFLATION"
	MethodCurrentMarketValue AdjustmentMethod = "CURRENT_MARKET_VALUE"
	MethodCostOfLiving       AdjustmentMethod = "COST_OF_LIVING"
)

// Valid reports whether the method is recognized.
func (m AdjustmentMethod) Valid() bool {
	switch m {
	case MethodFixedInflation, MethodCurrentMarketValue, MethodCostOfLiving:
		return true
	}
	return false
}

// Status is the hotchpot evaluation state of a gift or adjustment.
// Transitions run one way, except DISPUTED returns to CALCULATED on
// resolution and EXEMPTED can be explicitly reopened.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusCalculated Status = "CALCULATED"
	StatusApplied    Status = "APPLIED"
	StatusDisputed   Status = "DISPUTED"
	StatusExempted   Status = "EXEMPTED"
	StatusWaived     Status = "WAIVED"
)

func (s Status) terminal() bool {
	return s == StatusApplied || s == StatusExempted || s == StatusWaived
}

// Gift is an inter vivos transfer made by the deceased before death. The
// record itself is immutable once created; corrections are modeled as
// removal and re-add. Only the hotchpot evaluation state transitions.
type Gift struct {
	ID                    uuid.UUID
	BeneficiaryID         uuid.UUID
	Description           string
	Value                 money.Money
	GiftDate              time.Time
	Advancement           bool
	HotchpotSubject       bool
	CustomaryLawExemption bool
	CourtOrderRef         string

	// Optional professional valuation used by MethodCurrentMarketValue.
	MarketValue *money.Money

	status          Status
	adjustedValue   *money.Money
	exclusionReason string
}

// CreateInput registers a lifetime gift.
type CreateInput struct {
	BeneficiaryID         uuid.UUID
	Description           string
	Value                 money.Money
	GiftDate              time.Time
	Advancement           bool
	HotchpotSubject       bool
	CustomaryLawExemption bool
	CourtOrderRef         string
	MarketValue           *money.Money
}

// New validates and records a lifetime gift.
func New(input CreateInput) (*Gift, error) {
	var verr estate.ValidationErrors
	if input.BeneficiaryID == uuid.Nil {
		verr.Add("beneficiaryId", "beneficiary ID required")
	}
	if strings.TrimSpace(input.Description) == "" {
		verr.Add("description", "gift description required")
	}
	if !input.Value.Amount().IsPositive() {
		verr.Add("value", "gift value must be positive")
	}
	if input.GiftDate.IsZero() {
		verr.Add("giftDate", "gift date required")
	} else if input.GiftDate.After(time.Now()) {
		verr.Add("giftDate", "gift date must not be in the future")
	}
	if input.MarketValue != nil && input.MarketValue.Currency() != input.Value.Currency() {
		verr.Add("marketValue", "market value currency must match gift currency")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	return &Gift{
		ID:                    uuid.New(),
		BeneficiaryID:         input.BeneficiaryID,
		Description:           strings.TrimSpace(input.Description),
		Value:                 input.Value,
		GiftDate:              input.GiftDate,
		Advancement:           input.Advancement,
		HotchpotSubject:       input.HotchpotSubject,
		CustomaryLawExemption: input.CustomaryLawExemption,
		CourtOrderRef:         strings.TrimSpace(input.CourtOrderRef),
		MarketValue:           input.MarketValue,
		status:                StatusPending,
	}, nil
}

// Status returns the current hotchpot evaluation state.
func (g *Gift) Status() Status { return g.status }

// AdjustedValue returns the calculated death-date value, if any.
func (g *Gift) AdjustedValue() *money.Money { return g.adjustedValue }

// ExclusionReason returns the recorded exclusion reason, if any.
func (g *Gift) ExclusionReason() string { return g.exclusionReason }

var one = decimal.NewFromInt(1)

// adjust applies the base formula: value × (1+rate)^years, with years taken
// as the calendar-year difference between gift date and death.
func adjust(base money.Money, rate money.Percentage, years int) (money.Money, error) {
	if years <= 0 {
		return base, nil
	}
	growth := one.Add(rate.Fraction()).Pow(decimal.NewFromInt(int64(years)))
	return base.Mul(growth)
}

// CalculateHotchpotValue restates the gift at the date of death using the
// chosen method. A customary-law or court-order exemption zeroes the
// adjustment and exempts the gift regardless of its value.
func (g *Gift) CalculateHotchpotValue(dateOfDeath time.Time, inflationRate money.Percentage, method AdjustmentMethod) (money.Money, error) {
	var verr estate.ValidationErrors
	if !g.HotchpotSubject {
		verr.Add("gift", "gift is not subject to hotchpot")
	}
	if dateOfDeath.Before(g.GiftDate) {
		verr.Add("dateOfDeath", "date of death precedes the gift date")
	}
	if method != "" && !method.Valid() {
		verr.Addf("method", "unknown adjustment method %q", method)
	}
	if err := verr.Err(); err != nil {
		return money.Money{}, err
	}

	// Exemptions re-affirm themselves idempotently; any other terminal
	// valuation must be reopened before recalculation.
	if g.CustomaryLawExemption || g.CourtOrderRef != "" {
		zero := money.Zero(g.Value.Currency())
		g.adjustedValue = &zero
		g.status = StatusExempted
		return zero, nil
	}
	if g.status.terminal() {
		return money.Money{}, estate.Invariant("gift %s valuation is %s and cannot be recalculated", g.ID, g.status)
	}

	r, err := money.NewDateRange(g.GiftDate, dateOfDeath)
	if err != nil {
		return money.Money{}, err
	}
	years := r.CalendarYears()

	base := g.Value
	rate := inflationRate
	switch method {
	case MethodCurrentMarketValue:
		if g.MarketValue == nil {
			var mv estate.ValidationErrors
			mv.Add("marketValue", "current market valuation required for CURRENT_MARKET_VALUE method")
			return money.Money{}, mv.Err()
		}
		// Professional valuation already states the death-date value.
		adjusted := *g.MarketValue
		g.adjustedValue = &adjusted
		g.status = StatusCalculated
		return adjusted, nil
	case MethodCostOfLiving:
		// Same base formula; the caller supplies a cost-of-living index
		// rate in place of general inflation.
	}

	adjusted, err := adjust(base, rate, years)
	if err != nil {
		return money.Money{}, err
	}
	g.adjustedValue = &adjusted
	g.status = StatusCalculated
	return adjusted, nil
}

// IncludeInHotchpot commits a calculated valuation to the account.
func (g *Gift) IncludeInHotchpot() error {
	if g.adjustedValue == nil {
		var verr estate.ValidationErrors
		verr.Add("gift", "hotchpot value must be calculated before inclusion")
		return verr.Err()
	}
	if g.status.terminal() {
		var verr estate.ValidationErrors
		verr.Addf("status", "gift valuation is %s and cannot be included", g.status)
		return verr.Err()
	}
	g.status = StatusApplied
	return nil
}

const exclusionReasonMinLen = 10

// ExcludeFromHotchpot takes the gift out of account. Contested exclusions
// must cite the court order authorizing them.
func (g *Gift) ExcludeFromHotchpot(reason, courtOrderRef string, contested bool) error {
	var verr estate.ValidationErrors
	if len(strings.TrimSpace(reason)) < exclusionReasonMinLen {
		verr.Addf("reason", "exclusion reason must be at least %d characters", exclusionReasonMinLen)
	}
	if contested && strings.TrimSpace(courtOrderRef) == "" {
		verr.Add("courtOrderRef", "court order reference required for contested exclusions")
	}
	if err := verr.Err(); err != nil {
		return err
	}

	zero := money.Zero(g.Value.Currency())
	g.adjustedValue = &zero
	g.exclusionReason = strings.TrimSpace(reason)
	if courtOrderRef != "" {
		g.CourtOrderRef = strings.TrimSpace(courtOrderRef)
	}
	g.status = StatusExempted
	return nil
}

// DisputeValuation contests a calculated valuation.
func (g *Gift) DisputeValuation(reason string) error {
	if g.status != StatusCalculated {
		var verr estate.ValidationErrors
		verr.Addf("status", "only calculated valuations can be disputed; valuation is %s", g.status)
		return verr.Err()
	}
	if strings.TrimSpace(reason) == "" {
		var verr estate.ValidationErrors
		verr.Add("reason", "dispute reason required")
		return verr.Err()
	}
	g.status = StatusDisputed
	return nil
}

// ResolveValuationDispute returns a disputed valuation to CALCULATED.
func (g *Gift) ResolveValuationDispute() error {
	if g.status != StatusDisputed {
		return estate.Invariant("gift %s has no open valuation dispute", g.ID)
	}
	g.status = StatusCalculated
	return nil
}

// Reopen lifts an exemption so the gift can be revalued.
func (g *Gift) Reopen() error {
	if g.status != StatusExempted {
		var verr estate.ValidationErrors
		verr.Addf("status", "only exempted gifts can be reopened; valuation is %s", g.status)
		return verr.Err()
	}
	g.status = StatusPending
	g.adjustedValue = nil
	g.exclusionReason = ""
	return nil
}
