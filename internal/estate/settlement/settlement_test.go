package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/debt"
	"github.com/mirathi/mirathi/internal/money"
)

func kes(t *testing.T, amount float64) money.Money {
	t.Helper()
	m, err := money.NewFromFloat(amount, money.KES)
	require.NoError(t, err)
	return m
}

func newDebt(t *testing.T, debtType debt.Type, creditor string, principal float64, incurredYearsAgo int) *debt.Debt {
	t.Helper()
	input := debt.CreateInput{
		EstateID:    uuid.New(),
		Type:        debtType,
		Creditor:    creditor,
		Description: "claim lodged by " + creditor,
		Principal:   kes(t, principal),
		IncurredAt:  time.Now().AddDate(-incurredYearsAgo, 0, 0),
	}
	if debtType == debt.TypeMortgage {
		input.SecurityDetails = "Title LR 209/1234 Nairobi"
	}
	if debtType.IsTax() {
		input.KRAPin = "A012345678Z"
		input.TaxType = "income tax"
	}
	d, err := debt.New(input)
	require.NoError(t, err)
	return d
}

func TestBuildPaysTiersInOrder(t *testing.T) {
	funeral := newDebt(t, debt.TypeFuneralExpense, "funeral home", 100000, 1)
	mortgage := newDebt(t, debt.TypeMortgage, "KCB", 300000, 3)
	tax := newDebt(t, debt.TypeTaxObligation, "KRA", 80000, 2)
	loan := newDebt(t, debt.TypePersonalLoan, "Equity Bank", 200000, 2)

	// deliberately unsorted
	plan, err := NewPlanner().Build(kes(t, 1000000),
		[]*debt.Debt{loan, tax, funeral, mortgage}, time.Now())
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 4)
	require.Equal(t, funeral.ID, plan.Allocations[0].DebtID)
	require.Equal(t, mortgage.ID, plan.Allocations[1].DebtID)
	require.Equal(t, tax.ID, plan.Allocations[2].DebtID)
	require.Equal(t, loan.ID, plan.Allocations[3].DebtID)

	require.False(t, plan.Insolvent)
	require.True(t, plan.TotalShortfall.IsZero())
	require.True(t, plan.TotalAllocated.Equal(kes(t, 680000)),
		"allocated %s", plan.TotalAllocated)
	require.True(t, plan.Residue.Equal(kes(t, 320000)), "residue %s", plan.Residue)
}

func TestBuildAbatesLowerTiersWhenInsolvent(t *testing.T) {
	funeral := newDebt(t, debt.TypeFuneralExpense, "funeral home", 150000, 1)
	loan := newDebt(t, debt.TypePersonalLoan, "Equity Bank", 400000, 2)

	plan, err := NewPlanner().Build(kes(t, 250000),
		[]*debt.Debt{loan, funeral}, time.Now())
	require.NoError(t, err)

	require.True(t, plan.Insolvent)
	require.True(t, plan.Residue.IsZero())

	// the funeral claim is paid in full; the loan takes what remains
	require.True(t, plan.Allocations[0].Allocated.Equal(kes(t, 150000)))
	require.True(t, plan.Allocations[0].Shortfall.IsZero())
	require.True(t, plan.Allocations[1].Allocated.Equal(kes(t, 100000)))
	require.True(t, plan.Allocations[1].Shortfall.Equal(kes(t, 300000)),
		"shortfall %s", plan.Allocations[1].Shortfall)
	require.NotEmpty(t, plan.Warnings)
}

func TestBuildOrdersByIncurredDateWithinTier(t *testing.T) {
	older := newDebt(t, debt.TypePersonalLoan, "older creditor", 100000, 4)
	newer := newDebt(t, debt.TypePersonalLoan, "newer creditor", 100000, 1)

	plan, err := NewPlanner().Build(kes(t, 150000),
		[]*debt.Debt{newer, older}, time.Now())
	require.NoError(t, err)

	require.Equal(t, older.ID, plan.Allocations[0].DebtID)
	require.True(t, plan.Allocations[0].Allocated.Equal(kes(t, 100000)))
	require.True(t, plan.Allocations[1].Allocated.Equal(kes(t, 50000)))
}

func TestBuildExcludesUnenforceableClaims(t *testing.T) {
	active := newDebt(t, debt.TypePersonalLoan, "Equity Bank", 100000, 1)

	settled := newDebt(t, debt.TypePersonalLoan, "paid creditor", 50000, 1)
	_, err := settled.RecordPayment(debt.PaymentInput{
		Amount: kes(t, 50000),
		PaidAt: time.Now().AddDate(0, -1, 0),
	})
	require.NoError(t, err)

	disputed := newDebt(t, debt.TypePersonalLoan, "contested creditor", 70000, 1)
	require.NoError(t, disputed.RaiseDispute("amount overstated", "administrator"))

	barred := newDebt(t, debt.TypePersonalLoan, "dormant creditor", 60000, 7)

	plan, err := NewPlanner().Build(kes(t, 500000),
		[]*debt.Debt{active, settled, disputed, barred}, time.Now())
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 1)
	require.Equal(t, active.ID, plan.Allocations[0].DebtID)
	require.ElementsMatch(t,
		[]uuid.UUID{settled.ID, disputed.ID, barred.ID}, plan.ExcludedDebtIDs)

	// the planner reads the barred debt without flipping its status
	require.Equal(t, debt.StatusOutstanding, barred.Status)
}

func TestBuildSecuredDebtSurvivesSixYearMark(t *testing.T) {
	mortgage := newDebt(t, debt.TypeMortgage, "KCB", 300000, 8)

	plan, err := NewPlanner().Build(kes(t, 500000),
		[]*debt.Debt{mortgage}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 1)
	require.Empty(t, plan.ExcludedDebtIDs)
}

func TestBuildValidatesInput(t *testing.T) {
	usd, err := money.NewFromFloat(100, money.USD)
	require.NoError(t, err)
	mismatched := newDebt(t, debt.TypePersonalLoan, "Equity Bank", 100000, 1)

	_, err = NewPlanner().Build(usd, []*debt.Debt{mismatched, nil}, time.Now())
	require.True(t, estate.IsValidation(err))
	require.Contains(t, err.Error(), "does not match estate currency")
	require.Contains(t, err.Error(), "is nil")
}

func TestBuildDeterministic(t *testing.T) {
	debts := []*debt.Debt{
		newDebt(t, debt.TypeFuneralExpense, "funeral home", 90000, 1),
		newDebt(t, debt.TypePersonalLoan, "Equity Bank", 200000, 2),
	}
	asOf := time.Now()

	a, err := NewPlanner().Build(kes(t, 150000), debts, asOf)
	require.NoError(t, err)
	b, err := NewPlanner().Build(kes(t, 150000), debts, asOf)
	require.NoError(t, err)

	require.Len(t, b.Allocations, len(a.Allocations))
	for i := range a.Allocations {
		require.Equal(t, a.Allocations[i].DebtID, b.Allocations[i].DebtID)
		require.True(t, a.Allocations[i].Allocated.Equal(b.Allocations[i].Allocated))
	}
}
