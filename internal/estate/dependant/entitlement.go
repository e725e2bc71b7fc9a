package dependant

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/money"
)

// Court approval triggers.
const (
	courtApprovalEstatePct      = 20
	evidenceConfidenceThreshold = 40
)

var (
	twelve      = decimal.NewFromInt(12)
	twoHundred  = decimal.NewFromInt(200)
	decimalOne  = decimal.NewFromInt(1)
	decimal100  = decimal.NewFromInt(100)
)

// Input is the S29 calculation snapshot.
type Input struct {
	NetEstateValue       money.Money
	TotalDebts           money.Money
	FuneralExpenses      money.Money
	Dependants           []Dependant
	MinimumProvisionPct  money.Percentage
	MaximumProvisionPct  money.Percentage
	AsOf                 time.Time
}

// Assessment is the per-dependant provision result.
type Assessment struct {
	DependantID           uuid.UUID   `json:"dependantId"`
	Name                  string      `json:"name"`
	AssessedNeed          money.Money `json:"assessedNeed"`
	RecommendedProvision  money.Money `json:"recommendedProvision"`
	EntitlementScore      int         `json:"legalEntitlementScore"`
	UrgencyScore          int         `json:"urgencyScore"`
	RequiresCourtApproval bool        `json:"requiresCourtApproval"`
	ApprovalReasons       []string    `json:"approvalReasons,omitempty"`
	Status                Status      `json:"status"`
	DenialReason          string      `json:"denialReason,omitempty"`
}

// Grant confirms the recommended provision.
func (a *Assessment) Grant() error {
	if a.Status != StatusEligible && a.Status != StatusAppealPending {
		var verr estate.ValidationErrors
		verr.Addf("status", "cannot grant provision from status %s", a.Status)
		return verr.Err()
	}
	a.Status = StatusProvisionGranted
	return nil
}

// Deny refuses the provision with a reason.
func (a *Assessment) Deny(reason string) error {
	if a.Status != StatusEligible && a.Status != StatusAppealPending {
		var verr estate.ValidationErrors
		verr.Addf("status", "cannot deny provision from status %s", a.Status)
		return verr.Err()
	}
	if reason == "" {
		var verr estate.ValidationErrors
		verr.Add("reason", "denial reason required")
		return verr.Err()
	}
	a.Status = StatusProvisionDenied
	a.DenialReason = reason
	return nil
}

// Appeal reopens a denied provision.
func (a *Assessment) Appeal() error {
	if a.Status != StatusProvisionDenied {
		var verr estate.ValidationErrors
		verr.Addf("status", "only denied provisions can be appealed; status is %s", a.Status)
		return verr.Err()
	}
	a.Status = StatusAppealPending
	return nil
}

// Calculation is the immutable result of one S29 run.
type Calculation struct {
	CalculationID          uuid.UUID    `json:"calculationId"`
	CalculatedAt           time.Time    `json:"calculatedAt"`
	NetEstateValue         money.Money  `json:"netEstateValue"`
	AvailableForDependants money.Money  `json:"availableForDependants"`
	Assessments            []Assessment `json:"assessments"`
	TotalRecommended       money.Money  `json:"totalRecommended"`
	Warnings               []string     `json:"warnings,omitempty"`
}

// Calculator computes dependant provisions. Pure over its input snapshot.
type Calculator struct{}

// NewCalculator builds a Calculator.
func NewCalculator() *Calculator { return &Calculator{} }

// Calculate assesses every dependant and recommends provisions.
func (c *Calculator) Calculate(input Input) (*Calculation, error) {
	var verr estate.ValidationErrors
	if !input.NetEstateValue.Amount().IsPositive() {
		verr.Add("netEstateValue", "net estate value must be positive")
	}
	currency := input.NetEstateValue.Currency()
	if !input.TotalDebts.IsZero() && input.TotalDebts.Currency() != currency {
		verr.Add("totalDebts", "debt total currency must match estate currency")
	}
	if !input.FuneralExpenses.IsZero() && input.FuneralExpenses.Currency() != currency {
		verr.Add("funeralExpenses", "funeral expense currency must match estate currency")
	}
	if input.MaximumProvisionPct.Value().LessThan(input.MinimumProvisionPct.Value()) {
		verr.Add("maximumProvisionPct", "maximum provision percentage must not be below minimum")
	}
	for i, d := range input.Dependants {
		if d.ID == uuid.Nil {
			verr.Addf("dependants", "dependant at index %d missing ID", i)
		}
		if d.DateOfBirth.IsZero() {
			verr.Addf("dependants", "dependant %s missing date of birth", d.Name)
		}
		if !d.MonthlyLivingExpenses.IsZero() && d.MonthlyLivingExpenses.Currency() != currency {
			verr.Addf("dependants", "dependant %s expense currency %s does not match estate currency %s",
				d.Name, d.MonthlyLivingExpenses.Currency(), currency)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	available := c.availableForDependants(input)

	calc := &Calculation{
		CalculationID:          uuid.New(),
		CalculatedAt:           time.Now(),
		NetEstateValue:         input.NetEstateValue,
		AvailableForDependants: available,
		TotalRecommended:       money.Zero(currency),
	}

	scores := make([]int, len(input.Dependants))
	for i, d := range input.Dependants {
		scores[i] = d.EntitlementScore(asOf)
	}

	for i, d := range input.Dependants {
		stronger := 0
		for j, s := range scores {
			if j != i && s > scores[i] {
				stronger++
			}
		}

		a, warnings, err := c.assess(d, input, available, asOf, scores[i], stronger)
		if err != nil {
			return nil, err
		}
		calc.Assessments = append(calc.Assessments, a)
		calc.Warnings = append(calc.Warnings, warnings...)

		total, err := calc.TotalRecommended.Add(a.RecommendedProvision)
		if err != nil {
			return nil, err
		}
		calc.TotalRecommended = total
	}

	if calc.TotalRecommended.GreaterThan(available) {
		calc.Warnings = append(calc.Warnings, fmt.Sprintf(
			"total recommended provision %s exceeds the amount available for dependants %s; court apportionment required",
			calc.TotalRecommended, available))
	}
	return calc, nil
}

// availableForDependants is the estate net of debts and funeral expenses,
// floored at zero.
func (c *Calculator) availableForDependants(input Input) money.Money {
	available := input.NetEstateValue
	for _, deduction := range []money.Money{input.TotalDebts, input.FuneralExpenses} {
		if deduction.IsZero() {
			continue
		}
		reduced, err := available.Sub(deduction)
		if err != nil {
			return money.Zero(input.NetEstateValue.Currency())
		}
		available = reduced
	}
	return available
}

// AssessNeed computes the annualized need for one dependant: living expenses
// net of other support, plus special-needs costs, over the estimated
// duration, scaled by the dependency percentage.
func (c *Calculator) AssessNeed(d Dependant, asOf time.Time) (money.Money, error) {
	currency := d.MonthlyLivingExpenses.Currency()

	annualExpenses, err := d.MonthlyLivingExpenses.Mul(twelve)
	if err != nil {
		return money.Money{}, err
	}
	annualSupport := money.Zero(currency)
	if !d.MonthlyOtherSupport.IsZero() {
		annualSupport, err = d.MonthlyOtherSupport.Mul(twelve)
		if err != nil {
			return money.Money{}, err
		}
	}

	netAnnual := money.Zero(currency)
	if annualExpenses.GreaterThan(annualSupport) {
		netAnnual, err = annualExpenses.Sub(annualSupport)
		if err != nil {
			return money.Money{}, err
		}
	}
	if !d.AnnualSpecialNeedsCosts.IsZero() {
		netAnnual, err = netAnnual.Add(d.AnnualSpecialNeedsCosts)
		if err != nil {
			return money.Money{}, err
		}
	}

	duration := decimal.NewFromInt(int64(d.durationYears(asOf)))
	need, err := netAnnual.Mul(duration)
	if err != nil {
		return money.Money{}, err
	}
	return need.Percent(d.DependencyPercentage), nil
}

func (c *Calculator) assess(d Dependant, input Input, available money.Money, asOf time.Time, score, strongerClaims int) (Assessment, []string, error) {
	need, err := c.AssessNeed(d, asOf)
	if err != nil {
		return Assessment{}, nil, err
	}

	a := Assessment{
		DependantID:      d.ID,
		Name:             d.Name,
		AssessedNeed:     need,
		EntitlementScore: score,
		UrgencyScore:     d.UrgencyScore(),
		Status:           StatusEligible,
	}

	if need.IsZero() || d.DependencyPercentage.IsZero() || available.IsZero() {
		a.Status = StatusIneligible
		a.RecommendedProvision = money.Zero(input.NetEstateValue.Currency())
		return a, nil, nil
	}

	// Scale need by entitlement, boost by urgency, clamp to the configured
	// share of the available estate, then dilute across stronger claims.
	entitlementFactor := decimal.NewFromInt(int64(score)).Div(decimal100)
	urgencyFactor := decimalOne.Add(decimal.NewFromInt(int64(a.UrgencyScore)).Div(twoHundred))

	provision, err := need.Mul(entitlementFactor.Mul(urgencyFactor))
	if err != nil {
		return Assessment{}, nil, err
	}

	var warnings []string
	floor := available.Percent(input.MinimumProvisionPct)
	ceiling := available.Percent(input.MaximumProvisionPct)
	if !ceiling.IsZero() && provision.GreaterThan(ceiling) {
		provision = ceiling
	}
	if provision.LessThan(floor) {
		provision = floor
	}

	if strongerClaims > 0 {
		provision, err = provision.Div(decimalOne.Add(decimal.NewFromInt(int64(strongerClaims))))
		if err != nil {
			return Assessment{}, nil, err
		}
	}

	if provision.GreaterThan(available) {
		warnings = append(warnings, fmt.Sprintf(
			"provision for %s clamped to the available estate", d.Name))
		provision = available
	}
	a.RecommendedProvision = provision

	if pct := input.NetEstateValue.Percent(mustPct(courtApprovalEstatePct)); provision.GreaterThan(pct) {
		a.RequiresCourtApproval = true
		a.ApprovalReasons = append(a.ApprovalReasons, "provision exceeds 20% of the net estate")
	}
	if d.IsMinor(asOf) {
		a.RequiresCourtApproval = true
		a.ApprovalReasons = append(a.ApprovalReasons, "dependant is a minor")
	}
	if d.UnregisteredSpouse() {
		a.RequiresCourtApproval = true
		a.ApprovalReasons = append(a.ApprovalReasons, "unregistered cohabiting spouse")
	}
	if d.EvidenceStrength < evidenceConfidenceThreshold {
		a.RequiresCourtApproval = true
		a.ApprovalReasons = append(a.ApprovalReasons, "evidence strength below confidence threshold")
	}
	return a, warnings, nil
}

func mustPct(v float64) money.Percentage {
	return money.MustPercentage(v)
}
