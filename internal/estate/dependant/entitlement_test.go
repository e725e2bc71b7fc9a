package dependant

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

func pct(t *testing.T, v float64) money.Percentage {
	t.Helper()
	p, err := money.NewPercentageFromFloat(v)
	require.NoError(t, err)
	return p
}

var asOf = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func minorChild(t *testing.T) Dependant {
	t.Helper()
	return Dependant{
		ID:                    uuid.New(),
		Name:                  "Wanjiku",
		Relationship:          estate.RelationshipChild,
		DateOfBirth:           time.Date(2014, 3, 10, 0, 0, 0, 0, time.UTC),
		DependencyPercentage:  pct(t, 100),
		MonthlyLivingExpenses: kes(t, 20000),
		EvidenceStrength:      90,
	}
}

func adultSibling(t *testing.T) Dependant {
	t.Helper()
	return Dependant{
		ID:                    uuid.New(),
		Name:                  "Otieno",
		Relationship:          estate.RelationshipSibling,
		DateOfBirth:           time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC),
		DependencyPercentage:  pct(t, 30),
		MonthlyLivingExpenses: kes(t, 15000),
		MonthlyOtherSupport:   kes(t, 10000),
		EvidenceStrength:      60,
	}
}

func baseInput(t *testing.T, deps ...Dependant) Input {
	t.Helper()
	return Input{
		NetEstateValue:      kes(t, 5000000),
		TotalDebts:          kes(t, 500000),
		FuneralExpenses:     kes(t, 200000),
		Dependants:          deps,
		MinimumProvisionPct: pct(t, 1),
		MaximumProvisionPct: pct(t, 30),
		AsOf:                asOf,
	}
}

func TestAgeAndMinorDetection(t *testing.T) {
	d := minorChild(t)
	require.Equal(t, 10, d.Age(asOf))
	require.True(t, d.IsMinor(asOf))

	justBefore := time.Date(2032, 3, 9, 0, 0, 0, 0, time.UTC)
	require.True(t, d.IsMinor(justBefore))
	require.False(t, d.IsMinor(justBefore.AddDate(0, 0, 1)))
}

func TestAssessNeedMinorRunsToMajority(t *testing.T) {
	calc := NewCalculator()
	d := minorChild(t)

	need, err := calc.AssessNeed(d, asOf)
	require.NoError(t, err)
	// 20,000 × 12 × 8 years to majority × 100% dependency
	require.True(t, need.Equal(kes(t, 1920000)), "need %s", need)
}

func TestAssessNeedNetsOutOtherSupport(t *testing.T) {
	calc := NewCalculator()
	d := adultSibling(t)

	need, err := calc.AssessNeed(d, asOf)
	require.NoError(t, err)
	// (15,000 − 10,000) × 12 × 1 year × 30%
	require.True(t, need.Equal(kes(t, 18000)), "need %s", need)
}

func TestAssessNeedStudentRunsToGraduation(t *testing.T) {
	grad := time.Date(2027, 11, 30, 0, 0, 0, 0, time.UTC)
	d := Dependant{
		ID:                    uuid.New(),
		Name:                  "Njeri",
		Relationship:          estate.RelationshipChild,
		DateOfBirth:           time.Date(2003, 5, 1, 0, 0, 0, 0, time.UTC),
		IsStudent:             true,
		ExpectedGraduation:    &grad,
		DependencyPercentage:  pct(t, 80),
		MonthlyLivingExpenses: kes(t, 25000),
		EvidenceStrength:      75,
	}

	need, err := NewCalculator().AssessNeed(d, asOf)
	require.NoError(t, err)
	// 25,000 × 12 × 3 years to graduation × 80%
	require.True(t, need.Equal(kes(t, 720000)), "need %s", need)
}

func TestAssessNeedIncludesSpecialNeedsCosts(t *testing.T) {
	d := adultSibling(t)
	d.AnnualSpecialNeedsCosts = kes(t, 60000)

	need, err := NewCalculator().AssessNeed(d, asOf)
	require.NoError(t, err)
	// ((15,000−10,000)×12 + 60,000) × 1 × 30% = 36,000
	require.True(t, need.Equal(kes(t, 36000)), "need %s", need)
}

func TestEntitlementScoreWeights(t *testing.T) {
	child := minorChild(t)
	// child 30 + dependency 25 + minor 15 + evidence 13 = 83
	require.Equal(t, 83, child.EntitlementScore(asOf))

	sibling := adultSibling(t)
	// sibling 10 + dependency 7 + evidence 9 = 26
	require.Equal(t, 26, sibling.EntitlementScore(asOf))

	widow := Dependant{
		Relationship:         estate.RelationshipSpouse,
		RegisteredMarriage:   true,
		DateOfBirth:          time.Date(1955, 1, 1, 0, 0, 0, 0, time.UTC),
		DependencyPercentage: pct(t, 100),
		HasDisability:        true,
		EvidenceStrength:     100,
	}
	// spouse 30 + dependency 25 + disability 15 + elderly 10 + evidence 15 = 95
	require.Equal(t, 95, widow.EntitlementScore(asOf))
}

func TestUrgencyScoreCapsAt100(t *testing.T) {
	d := minorChild(t)
	d.ImmediateNeeds = []ImmediateNeed{NeedMedical, NeedHousing, NeedFood, NeedEducation}
	require.Equal(t, 100, d.UrgencyScore())

	d.ImmediateNeeds = []ImmediateNeed{NeedMedical, NeedEducation}
	require.Equal(t, 50, d.UrgencyScore())
}

func TestCalculateProvisionWithinBounds(t *testing.T) {
	child := minorChild(t)
	input := baseInput(t, child)

	calc, err := NewCalculator().Calculate(input)
	require.NoError(t, err)
	require.Len(t, calc.Assessments, 1)

	a := calc.Assessments[0]
	require.Equal(t, StatusEligible, a.Status)
	// available = 5,000,000 − 500,000 − 200,000 = 4,300,000
	require.True(t, calc.AvailableForDependants.Equal(kes(t, 4300000)))

	// clamp ceiling: 30% of available = 1,290,000
	ceiling := kes(t, 1290000)
	require.False(t, a.RecommendedProvision.GreaterThan(ceiling),
		"provision %s above ceiling %s", a.RecommendedProvision, ceiling)
	require.False(t, a.RecommendedProvision.GreaterThan(calc.AvailableForDependants))
	require.False(t, a.RecommendedProvision.IsZero())
}

func TestCalculateDilutesWeakerClaims(t *testing.T) {
	child := minorChild(t)
	sibling := adultSibling(t)
	input := baseInput(t, child, sibling)

	calc, err := NewCalculator().Calculate(input)
	require.NoError(t, err)
	require.Len(t, calc.Assessments, 2)

	var childA, siblingA Assessment
	for _, a := range calc.Assessments {
		switch a.DependantID {
		case child.ID:
			childA = a
		case sibling.ID:
			siblingA = a
		}
	}

	require.Greater(t, childA.EntitlementScore, siblingA.EntitlementScore)

	// the sibling faces one stronger claim: provision halves after clamping
	solo, err := NewCalculator().Calculate(baseInput(t, sibling))
	require.NoError(t, err)
	expected, err := solo.Assessments[0].RecommendedProvision.Div(twoHundred.Div(decimal100))
	require.NoError(t, err)
	require.True(t, siblingA.RecommendedProvision.Equal(expected),
		"diluted %s, expected %s", siblingA.RecommendedProvision, expected)
}

func TestCourtApprovalTriggers(t *testing.T) {
	t.Run("minor dependant", func(t *testing.T) {
		calc, err := NewCalculator().Calculate(baseInput(t, minorChild(t)))
		require.NoError(t, err)
		a := calc.Assessments[0]
		require.True(t, a.RequiresCourtApproval)
		require.Contains(t, a.ApprovalReasons, "dependant is a minor")
	})

	t.Run("unregistered cohabiting spouse", func(t *testing.T) {
		partner := Dependant{
			ID:                    uuid.New(),
			Name:                  "Akinyi",
			Relationship:          estate.RelationshipCohabitingSpouse,
			DateOfBirth:           time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
			DependencyPercentage:  pct(t, 70),
			MonthlyLivingExpenses: kes(t, 30000),
			EvidenceStrength:      80,
		}
		calc, err := NewCalculator().Calculate(baseInput(t, partner))
		require.NoError(t, err)
		a := calc.Assessments[0]
		require.True(t, a.RequiresCourtApproval)
		require.Contains(t, a.ApprovalReasons, "unregistered cohabiting spouse")
	})

	t.Run("weak evidence", func(t *testing.T) {
		sibling := adultSibling(t)
		sibling.EvidenceStrength = 20
		calc, err := NewCalculator().Calculate(baseInput(t, sibling))
		require.NoError(t, err)
		a := calc.Assessments[0]
		require.True(t, a.RequiresCourtApproval)
		require.Contains(t, a.ApprovalReasons, "evidence strength below confidence threshold")
	})
}

func TestZeroNeedIsIneligible(t *testing.T) {
	d := adultSibling(t)
	d.MonthlyLivingExpenses = kes(t, 10000)
	// support equals expenses; no special needs

	calc, err := NewCalculator().Calculate(baseInput(t, d))
	require.NoError(t, err)
	a := calc.Assessments[0]
	require.Equal(t, StatusIneligible, a.Status)
	require.True(t, a.RecommendedProvision.IsZero())
}

func TestAssessmentStatusTransitions(t *testing.T) {
	a := Assessment{Status: StatusEligible}
	require.NoError(t, a.Grant())
	require.Equal(t, StatusProvisionGranted, a.Status)
	require.Error(t, a.Grant())

	b := Assessment{Status: StatusEligible}
	require.Error(t, b.Deny(""))
	require.NoError(t, b.Deny("needs met from trust income"))
	require.Equal(t, StatusProvisionDenied, b.Status)
	require.NoError(t, b.Appeal())
	require.Equal(t, StatusAppealPending, b.Status)
	require.NoError(t, b.Grant())
}

func TestCalculateValidatesInput(t *testing.T) {
	_, err := NewCalculator().Calculate(Input{
		Dependants:          []Dependant{{Name: "no id"}},
		MinimumProvisionPct: pct(t, 20),
		MaximumProvisionPct: pct(t, 10),
	})
	require.True(t, estate.IsValidation(err))
	require.Contains(t, err.Error(), "net estate value must be positive")
	require.Contains(t, err.Error(), "missing ID")
	require.Contains(t, err.Error(), "must not be below minimum")
}
