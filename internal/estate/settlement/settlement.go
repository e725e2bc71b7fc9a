// Package settlement plans the payment of estate debts in statutory priority
// order before any distribution to beneficiaries.
package settlement

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/debt"
	"github.com/mirathi/mirathi/internal/money"
)

// Allocation is the planned payment against one debt.
type Allocation struct {
	DebtID    uuid.UUID   `json:"debtId"`
	Creditor  string      `json:"creditorName"`
	Tier      debt.Tier   `json:"tier"`
	Claimed   money.Money `json:"claimedAmount"`
	Allocated money.Money `json:"allocatedAmount"`
	Shortfall money.Money `json:"shortfall"`
}

// Plan is the ordered settlement of an estate's enforceable debts.
type Plan struct {
	PlanID           uuid.UUID    `json:"planId"`
	CalculatedAt     time.Time    `json:"calculatedAt"`
	NetEstateValue   money.Money  `json:"netEstateValue"`
	Allocations      []Allocation `json:"allocations"`
	TotalAllocated   money.Money  `json:"totalAllocated"`
	TotalShortfall   money.Money  `json:"totalShortfall"`
	Residue          money.Money  `json:"residue"`
	Insolvent        bool         `json:"insolvent"`
	ExcludedDebtIDs  []uuid.UUID  `json:"excludedDebtIds,omitempty"`
	Warnings         []string     `json:"warnings,omitempty"`
}

// Planner builds settlement plans. Pure over its input snapshot: debts are
// read, never mutated, so the nightly sweep remains the only writer of
// statute-bar status.
type Planner struct{}

// NewPlanner builds a Planner.
func NewPlanner() *Planner { return &Planner{} }

// barredBy reports whether the limitation period has run without touching
// the debt's status.
func barredBy(d *debt.Debt, asOf time.Time) bool {
	return asOf.After(d.IncurredAt.AddDate(d.LimitationYears(), 0, 0))
}

// Build allocates the net estate across enforceable debts in tier order,
// oldest debts first within a tier, until the estate is exhausted.
func (p *Planner) Build(netEstateValue money.Money, debts []*debt.Debt, asOf time.Time) (*Plan, error) {
	currency := netEstateValue.Currency()

	var verr estate.ValidationErrors
	if netEstateValue.Amount().IsNegative() {
		verr.Add("netEstateValue", "net estate value must not be negative")
	}
	for i, d := range debts {
		if d == nil {
			verr.Addf("debts", "debt at index %d is nil", i)
			continue
		}
		if d.Outstanding.Currency() != currency {
			verr.Addf("debts", "debt %s currency %s does not match estate currency %s",
				d.ID, d.Outstanding.Currency(), currency)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	plan := &Plan{
		PlanID:         uuid.New(),
		CalculatedAt:   time.Now(),
		NetEstateValue: netEstateValue,
		TotalAllocated: money.Zero(currency),
		TotalShortfall: money.Zero(currency),
		Residue:        netEstateValue,
	}

	payable := make([]*debt.Debt, 0, len(debts))
	for _, d := range debts {
		if !d.Payable() {
			plan.ExcludedDebtIDs = append(plan.ExcludedDebtIDs, d.ID)
			continue
		}
		if barredBy(d, asOf) {
			plan.ExcludedDebtIDs = append(plan.ExcludedDebtIDs, d.ID)
			plan.Warnings = append(plan.Warnings,
				"claim by "+d.Creditor+" is statute-barred and was excluded from the plan")
			continue
		}
		payable = append(payable, d)
	}

	// Tier order first, then oldest claims, with the ID as a stable final
	// key so identical snapshots plan identically.
	sort.SliceStable(payable, func(i, j int) bool {
		if payable[i].Tier != payable[j].Tier {
			return payable[i].Tier.Order() < payable[j].Tier.Order()
		}
		if !payable[i].IncurredAt.Equal(payable[j].IncurredAt) {
			return payable[i].IncurredAt.Before(payable[j].IncurredAt)
		}
		return payable[i].ID.String() < payable[j].ID.String()
	})

	remaining := netEstateValue
	for _, d := range payable {
		claimed, err := d.MaximumPayable(asOf)
		if err != nil {
			return nil, err
		}

		allocated := claimed.Min(remaining)
		shortfall, err := claimed.Sub(allocated)
		if err != nil {
			return nil, err
		}
		remaining, err = remaining.Sub(allocated)
		if err != nil {
			return nil, err
		}

		plan.Allocations = append(plan.Allocations, Allocation{
			DebtID:    d.ID,
			Creditor:  d.Creditor,
			Tier:      d.Tier,
			Claimed:   claimed,
			Allocated: allocated,
			Shortfall: shortfall,
		})

		plan.TotalAllocated, err = plan.TotalAllocated.Add(allocated)
		if err != nil {
			return nil, err
		}
		plan.TotalShortfall, err = plan.TotalShortfall.Add(shortfall)
		if err != nil {
			return nil, err
		}
	}

	plan.Residue = remaining
	if !plan.TotalShortfall.IsZero() {
		plan.Insolvent = true
		plan.Warnings = append(plan.Warnings,
			"the estate cannot satisfy all enforceable debts; lower-priority creditors abate")
	}
	return plan, nil
}
