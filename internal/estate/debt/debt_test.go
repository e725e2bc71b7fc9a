package debt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/money"
)

func kes(t *testing.T, amount float64) money.Money {
	t.Helper()
	m, err := money.NewFromFloat(amount, money.KES)
	require.NoError(t, err)
	return m
}

func validInput(t *testing.T) CreateInput {
	t.Helper()
	return CreateInput{
		EstateID:    uuid.New(),
		Type:        TypePersonalLoan,
		Creditor:    "Equity Bank",
		Description: "Personal loan taken in 2021",
		Principal:   kes(t, 200000),
		IncurredAt:  time.Now().AddDate(-2, 0, 0),
	}
}

func TestNewDebtDerivesTierAndPriority(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*CreateInput)
		tier    Tier
		order   int
		mandate bool
	}{
		{"funeral expense", func(in *CreateInput) { in.Type = TypeFuneralExpense }, TierFuneralTestamentary, 1, true},
		{"mortgage", func(in *CreateInput) {
			in.Type = TypeMortgage
			in.SecurityDetails = "Title LR 209/1234 Nairobi"
		}, TierSecured, 2, true},
		{"unpaid wages", func(in *CreateInput) { in.Type = TypeUnpaidWages }, TierTaxesRatesWages, 3, true},
		{"personal loan", func(in *CreateInput) {}, TierUnsecuredGeneral, 4, false},
		{"secured flag on general debt", func(in *CreateInput) {
			in.Secured = true
			in.SecurityDetails = "Motor vehicle KDA 123A"
		}, TierSecured, 2, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput(t)
			tc.mutate(&input)
			d, err := New(input)
			require.NoError(t, err)
			require.Equal(t, tc.tier, d.Tier)
			require.Equal(t, tc.order, d.PriorityOrder())
			require.Equal(t, tc.mandate, d.Tier.MandatoryPayment())
		})
	}
}

func TestNewDebtJoinsValidationFailures(t *testing.T) {
	_, err := New(CreateInput{
		Type:        Type("BOGUS"),
		Description: "abc",
		IncurredAt:  time.Now().AddDate(0, 0, 1),
	})
	require.Error(t, err)
	require.True(t, estate.IsValidation(err))

	var verr *estate.ValidationErrors
	require.ErrorAs(t, err, &verr)
	require.GreaterOrEqual(t, len(verr.Fields()), 5)
	require.Contains(t, err.Error(), "principal must be positive")
	require.Contains(t, err.Error(), "incurred date must not be in the future")
}

func TestTaxDebtRequiresKRAPin(t *testing.T) {
	input := validInput(t)
	input.Type = TypeTaxObligation
	input.Principal = kes(t, 50000)
	input.TaxType = "INCOME_TAX"

	_, err := New(input)
	require.Error(t, err)
	require.Contains(t, err.Error(), "KRA PIN required")
}

func TestTaxDebtMissingPeriodIsWarningOnly(t *testing.T) {
	input := validInput(t)
	input.Type = TypeTaxObligation
	input.KRAPin = "A012345678Z"
	input.TaxType = "INCOME_TAX"

	d, err := New(input)
	require.NoError(t, err)
	require.Len(t, d.Warnings, 1)
	require.Contains(t, d.Warnings[0], "tax period")
}

func TestSecuredDebtRequiresSecurityDetails(t *testing.T) {
	input := validInput(t)
	input.Type = TypeSecuredLoan

	_, err := New(input)
	require.Error(t, err)
	require.Contains(t, err.Error(), "security details required")
}

func TestRecordPaymentReducesBalanceAndSettlesAtZero(t *testing.T) {
	d, err := New(validInput(t))
	require.NoError(t, err)

	paidAt := time.Now().AddDate(0, -1, 0)
	receipt, err := d.RecordPayment(PaymentInput{Amount: kes(t, 80000), PaidAt: paidAt, Method: "MPESA"})
	require.NoError(t, err)
	require.Empty(t, receipt.Warning)
	require.Equal(t, StatusPartiallyPaid, d.Status)
	require.True(t, d.Outstanding.Equal(kes(t, 120000)))

	_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 120000), PaidAt: paidAt, Method: "CHEQUE"})
	require.NoError(t, err)
	require.Equal(t, StatusSettled, d.Status)
	require.True(t, d.Outstanding.IsZero())
	require.Len(t, d.Payments, 2)
}

func TestRecordPaymentClampsOverpaymentWithWarning(t *testing.T) {
	d, err := New(validInput(t))
	require.NoError(t, err)

	receipt, err := d.RecordPayment(PaymentInput{
		Amount: kes(t, 250000),
		PaidAt: time.Now().AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, receipt.Warning)
	require.True(t, receipt.Payment.Amount.Equal(kes(t, 200000)))
	require.Equal(t, StatusSettled, d.Status)
	require.True(t, d.Outstanding.IsZero())
}

func TestRecordPaymentRejectsInvalidInput(t *testing.T) {
	d, err := New(validInput(t))
	require.NoError(t, err)

	_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 0), PaidAt: time.Now()})
	require.True(t, estate.IsValidation(err))

	_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 100), PaidAt: time.Now().AddDate(0, 0, 2)})
	require.True(t, estate.IsValidation(err))
	require.Contains(t, err.Error(), "must not be in the future")
}

func TestPayingSettledDebtViolatesInvariant(t *testing.T) {
	d, err := New(validInput(t))
	require.NoError(t, err)
	_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 200000), PaidAt: time.Now().AddDate(0, 0, -1)})
	require.NoError(t, err)

	_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 10), PaidAt: time.Now().AddDate(0, 0, -1)})
	require.ErrorIs(t, err, estate.ErrInvariant)
}

func TestStatuteBarBoundaryUnsecured(t *testing.T) {
	input := validInput(t)
	input.IncurredAt = time.Date(2015, 1, 10, 0, 0, 0, 0, time.UTC)
	d, err := New(input)
	require.NoError(t, err)

	deadline := input.IncurredAt.AddDate(LimitationYearsUnsecured, 0, 0)
	require.False(t, d.CheckStatuteBarred(deadline.AddDate(0, 0, -1)))
	require.Equal(t, StatusOutstanding, d.Status)

	require.True(t, d.CheckStatuteBarred(deadline.AddDate(0, 0, 1)))
	require.Equal(t, StatusStatuteBarred, d.Status)

	// idempotent
	require.True(t, d.CheckStatuteBarred(deadline.AddDate(1, 0, 0)))

	_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 100), PaidAt: time.Now().AddDate(0, 0, -1)})
	require.ErrorIs(t, err, estate.ErrInvariant)
}

func TestStatuteBarBoundarySecured(t *testing.T) {
	input := validInput(t)
	input.Type = TypeMortgage
	input.SecurityDetails = "Title LR 209/1234"
	input.IncurredAt = time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC)
	d, err := New(input)
	require.NoError(t, err)
	require.Equal(t, LimitationYearsSecured, d.LimitationYears())

	deadline := input.IncurredAt.AddDate(LimitationYearsSecured, 0, 0)
	require.False(t, d.CheckStatuteBarred(deadline.AddDate(0, 0, -1)))
	require.True(t, d.CheckStatuteBarred(deadline.AddDate(0, 0, 1)))
}

func TestWriteOffRules(t *testing.T) {
	t.Run("funeral expenses are non-waivable", func(t *testing.T) {
		input := validInput(t)
		input.Type = TypeFuneralExpense
		d, err := New(input)
		require.NoError(t, err)
		err = d.WriteOff("creditor untraceable", "", "admin")
		require.True(t, estate.IsValidation(err))
		require.Contains(t, err.Error(), "cannot be written off")
	})

	t.Run("tax write-off needs approval reference", func(t *testing.T) {
		input := validInput(t)
		input.Type = TypeTaxObligation
		input.KRAPin = "A012345678Z"
		input.TaxType = "VAT"
		input.TaxPeriod = "2023-Q4"
		d, err := New(input)
		require.NoError(t, err)

		err = d.WriteOff("hardship", "", "admin")
		require.True(t, estate.IsValidation(err))

		err = d.WriteOff("hardship", "KRA/WAIVER/2024/001", "admin")
		require.NoError(t, err)
		require.Equal(t, StatusWrittenOff, d.Status)
	})

	t.Run("written-off debt cannot be written off again", func(t *testing.T) {
		d, err := New(validInput(t))
		require.NoError(t, err)
		require.NoError(t, d.WriteOff("uncollectible", "", "admin"))
		err = d.WriteOff("again", "", "admin")
		require.ErrorIs(t, err, estate.ErrInvariant)
	})
}

func TestDisputeLifecycle(t *testing.T) {
	t.Run("upheld dispute rejects claim and zeroes balance", func(t *testing.T) {
		d, err := New(validInput(t))
		require.NoError(t, err)
		require.NoError(t, d.RaiseDispute("claim not supported by documents", "administrator"))
		require.Equal(t, StatusDisputed, d.Status)

		_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 100), PaidAt: time.Now().AddDate(0, 0, -1)})
		require.True(t, estate.IsValidation(err))

		require.NoError(t, d.ResolveDispute(DisputeUpheld, "no valid loan agreement produced"))
		require.Equal(t, StatusClaimRejected, d.Status)
		require.True(t, d.Outstanding.IsZero())
	})

	t.Run("dismissed dispute restores prior status", func(t *testing.T) {
		d, err := New(validInput(t))
		require.NoError(t, err)
		_, err = d.RecordPayment(PaymentInput{Amount: kes(t, 50000), PaidAt: time.Now().AddDate(0, 0, -3)})
		require.NoError(t, err)
		require.NoError(t, d.RaiseDispute("interest rate contested", "heir"))
		require.NoError(t, d.ResolveDispute(DisputeDismissed, "rate per signed agreement"))
		require.Equal(t, StatusPartiallyPaid, d.Status)
	})

	t.Run("settled outcome settles the claim", func(t *testing.T) {
		d, err := New(validInput(t))
		require.NoError(t, err)
		require.NoError(t, d.RaiseDispute("amount contested", "heir"))
		require.NoError(t, d.ResolveDispute(DisputeSettled, "creditor accepted reduced sum"))
		require.Equal(t, StatusSettled, d.Status)
		require.True(t, d.Outstanding.IsZero())
	})

	t.Run("resolving without open dispute violates invariant", func(t *testing.T) {
		d, err := New(validInput(t))
		require.NoError(t, err)
		err = d.ResolveDispute(DisputeUpheld, "")
		require.ErrorIs(t, err, estate.ErrInvariant)
	})
}

func TestReclassifyTierOneIsForbidden(t *testing.T) {
	input := validInput(t)
	input.Type = TypeTestamentaryExpense
	d, err := New(input)
	require.NoError(t, err)

	err = d.Reclassify(TierUnsecuredGeneral)
	require.True(t, estate.IsValidation(err))

	general, err := New(validInput(t))
	require.NoError(t, err)
	require.NoError(t, general.Reclassify(TierTaxesRatesWages))
	require.Equal(t, TierTaxesRatesWages, general.Tier)
}

func TestSimpleInterestAccrual(t *testing.T) {
	rate, err := money.NewPercentageFromFloat(10)
	require.NoError(t, err)
	terms := Terms{
		Principal:    kes(t, 100000),
		InterestRate: &rate,
		InterestType: InterestSimple,
	}

	from := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := from.AddDate(2, 0, 0)
	interest, err := terms.AccruedInterest(from, asOf)
	require.NoError(t, err)
	// 100,000 × 10% × ~2 years, within a shilling of 20,000 for leap-day drift.
	diff := interest.Amount().Sub(kes(t, 20000).Amount()).Abs()
	require.True(t, diff.LessThanOrEqual(kes(t, 55).Amount()), "interest %s", interest)
}

func TestCompoundInterestAccrual(t *testing.T) {
	rate, err := money.NewPercentageFromFloat(12)
	require.NoError(t, err)
	terms := Terms{
		Principal:    kes(t, 100000),
		InterestRate: &rate,
		InterestType: InterestCompound,
		Compounding:  CompoundAnnually,
	}

	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	total, err := terms.TotalPayable(from, from.AddDate(2, 0, 1))
	require.NoError(t, err)
	// 100,000 × 1.12² = 125,440
	require.True(t, total.Equal(kes(t, 125440)), "total %s", total)
}

func TestNoInterestTermsAccrueNothing(t *testing.T) {
	terms := Terms{Principal: kes(t, 5000), InterestType: InterestNone}
	interest, err := terms.AccruedInterest(time.Now().AddDate(-1, 0, 0), time.Now())
	require.NoError(t, err)
	require.True(t, interest.IsZero())
}

func TestMaximumPayableIsLesserOfClaimAndAccrued(t *testing.T) {
	rate, err := money.NewPercentageFromFloat(10)
	require.NoError(t, err)
	input := validInput(t)
	input.InterestRate = &rate
	input.InterestType = InterestCompound
	input.Compounding = CompoundAnnually
	claimed := kes(t, 205000)
	input.Claimed = &claimed

	d, err := New(input)
	require.NoError(t, err)

	max, err := d.MaximumPayable(input.IncurredAt.AddDate(5, 0, 0))
	require.NoError(t, err)
	require.True(t, max.Equal(claimed), "max payable %s", max)

	early, err := d.MaximumPayable(input.IncurredAt.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.True(t, early.Equal(kes(t, 200000)), "early max %s", early)
}
