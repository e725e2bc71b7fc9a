package gift

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/money"
)

// Input is the snapshot consumed by the hotchpot calculator.
type Input struct {
	NetEstateValue             money.Money
	DateOfDeath                time.Time
	Beneficiaries              []estate.Beneficiary
	Gifts                      []*Gift
	InflationRate              money.Percentage
	Method                     AdjustmentMethod
	MinimumAdjustmentThreshold money.Money
	ExemptedGiftIDs            []uuid.UUID
}

// Adjustment is the per-beneficiary hotchpot result. The adjustment amount
// is always zero when the beneficiary's gifts are exempted or waived.
type Adjustment struct {
	BeneficiaryID     uuid.UUID        `json:"beneficiaryId"`
	TotalAdvancements money.Money      `json:"totalAdvancements"`
	Amount            money.Money      `json:"adjustmentAmount"`
	ImpactPercentage  money.Percentage `json:"impactPercentage"`
	Status            Status           `json:"status"`
}

// Result is the immutable outcome of one hotchpot calculation.
type Result struct {
	CalculationID    uuid.UUID    `json:"calculationId"`
	CalculatedAt     time.Time    `json:"calculatedAt"`
	NetEstateValue   money.Money  `json:"netEstateValue"`
	Method           AdjustmentMethod `json:"method"`
	Adjustments      []Adjustment `json:"adjustments"`
	TotalAdjustments money.Money  `json:"totalAdjustments"`
	Warnings         []string     `json:"warnings,omitempty"`
}

// AdjustmentFor returns the adjustment computed for a beneficiary, or zero.
func (r *Result) AdjustmentFor(beneficiaryID uuid.UUID) money.Money {
	for _, a := range r.Adjustments {
		if a.BeneficiaryID == beneficiaryID {
			return a.Amount
		}
	}
	return money.Zero(r.NetEstateValue.Currency())
}

// Calculator aggregates gift adjustments per beneficiary. It is a pure
// function of its input snapshot: identical inputs produce identical
// results, and no gift state is mutated.
type Calculator struct{}

// NewCalculator builds a Calculator.
func NewCalculator() *Calculator { return &Calculator{} }

// Calculate runs the hotchpot aggregation.
func (c *Calculator) Calculate(input Input) (*Result, error) {
	var verr estate.ValidationErrors
	if !input.NetEstateValue.Amount().IsPositive() {
		verr.Add("netEstateValue", "net estate value must be positive")
	}
	if input.DateOfDeath.IsZero() {
		verr.Add("dateOfDeath", "date of death required")
	}
	method := input.Method
	if method == "" {
		method = MethodFixedInflation
	}
	if !method.Valid() {
		verr.Addf("method", "unknown adjustment method %q", input.Method)
	}
	currency := input.NetEstateValue.Currency()
	for i, g := range input.Gifts {
		if g == nil {
			verr.Addf("gifts", "gift at index %d is nil", i)
			continue
		}
		if g.Value.Currency() != currency {
			verr.Addf("gifts", "gift %s currency %s does not match estate currency %s",
				g.ID, g.Value.Currency(), currency)
		}
		if !input.DateOfDeath.IsZero() && g.GiftDate.After(input.DateOfDeath) {
			verr.Addf("gifts", "gift %s postdates the date of death", g.ID)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	exempted := make(map[uuid.UUID]bool, len(input.ExemptedGiftIDs))
	for _, id := range input.ExemptedGiftIDs {
		exempted[id] = true
	}

	result := &Result{
		CalculationID:    uuid.New(),
		CalculatedAt:     time.Now(),
		NetEstateValue:   input.NetEstateValue,
		Method:           method,
		TotalAdjustments: money.Zero(currency),
	}

	for _, b := range input.Beneficiaries {
		adj, warnings, err := c.beneficiaryAdjustment(b.ID, input, method, exempted)
		if err != nil {
			return nil, err
		}
		result.Adjustments = append(result.Adjustments, adj)
		result.Warnings = append(result.Warnings, warnings...)

		total, err := result.TotalAdjustments.Add(adj.Amount)
		if err != nil {
			return nil, err
		}
		result.TotalAdjustments = total
	}
	return result, nil
}

func (c *Calculator) beneficiaryAdjustment(beneficiaryID uuid.UUID, input Input, method AdjustmentMethod, exemptedIDs map[uuid.UUID]bool) (Adjustment, []string, error) {
	currency := input.NetEstateValue.Currency()
	total := money.Zero(currency)
	adjusted := money.Zero(currency)
	var warnings []string

	counted := 0
	exemptOnly := true
	for _, g := range input.Gifts {
		if g.BeneficiaryID != beneficiaryID || !g.Advancement || !g.HotchpotSubject {
			continue
		}
		counted++

		if g.CustomaryLawExemption || exemptedIDs[g.ID] || g.Status() == StatusExempted {
			continue
		}
		exemptOnly = false

		sum, err := total.Add(g.Value)
		if err != nil {
			return Adjustment{}, nil, err
		}
		total = sum

		value, err := c.giftValue(g, input, method)
		if err != nil {
			return Adjustment{}, nil, err
		}
		grown, err := adjusted.Add(value)
		if err != nil {
			return Adjustment{}, nil, err
		}
		adjusted = grown
	}

	adj := Adjustment{
		BeneficiaryID:     beneficiaryID,
		TotalAdvancements: total,
		Amount:            adjusted,
		Status:            StatusCalculated,
	}

	switch {
	case counted == 0:
		adj.Status = StatusPending
		adj.ImpactPercentage = money.Percentage{}
		return adj, nil, nil
	case exemptOnly:
		adj.Amount = money.Zero(currency)
		adj.Status = StatusExempted
		return adj, nil, nil
	case !input.MinimumAdjustmentThreshold.IsZero() && adjusted.LessThan(input.MinimumAdjustmentThreshold):
		warnings = append(warnings, fmt.Sprintf(
			"adjustment %s for beneficiary %s is below threshold %s; waived",
			adjusted, beneficiaryID, input.MinimumAdjustmentThreshold))
		adj.Amount = money.Zero(currency)
		adj.Status = StatusWaived
		return adj, warnings, nil
	}

	impact := adj.Amount.Amount().Div(input.NetEstateValue.Amount()).Mul(decimal.NewFromInt(100))
	if impact.GreaterThan(decimal.NewFromInt(100)) {
		warnings = append(warnings, fmt.Sprintf(
			"adjustment for beneficiary %s exceeds the net estate; impact capped at 100%%", beneficiaryID))
		impact = decimal.NewFromInt(100)
	}
	pct, err := money.NewPercentage(impact)
	if err != nil {
		return Adjustment{}, nil, err
	}
	adj.ImpactPercentage = pct
	return adj, warnings, nil
}

// giftValue restates one gift without mutating it.
func (c *Calculator) giftValue(g *Gift, input Input, method AdjustmentMethod) (money.Money, error) {
	if method == MethodCurrentMarketValue {
		if g.MarketValue != nil {
			return *g.MarketValue, nil
		}
		// Fall back to the base formula when no valuation was supplied.
		method = MethodFixedInflation
	}
	r, err := money.NewDateRange(g.GiftDate, input.DateOfDeath)
	if err != nil {
		return money.Money{}, err
	}
	return adjust(g.Value, input.InflationRate, r.CalendarYears())
}
