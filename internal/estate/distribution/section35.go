package distribution

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/gift"
	"github.com/mirathi/mirathi/internal/money"
)

// S35Rule names the sub-rule applied, determined by who survives.
type S35Rule string

const (
	RuleSpouseAndChildren S35Rule = "SPOUSE_AND_CHILDREN"
	RuleSpouseOnly        S35Rule = "SPOUSE_ONLY"
	RuleChildrenOnly      S35Rule = "CHILDREN_ONLY"
	RuleNextOfKin         S35Rule = "NO_SPOUSE_NO_CHILDREN"
)

// DefaultSpouseResidueFraction is the spousal share of the residue when the
// input does not configure one.
var DefaultSpouseResidueFraction = money.MustPercentage(33.33)

// lifeInterestHorizonYears estimates the duration of the surviving spouse's
// life interest in the matrimonial home.
const lifeInterestHorizonYears = 30

// S35Input is the monogamous intestate distribution snapshot.
type S35Input struct {
	NetEstateValue        money.Money
	PersonalChattelsValue money.Money
	DateOfDeath           time.Time
	Spouse                *estate.Beneficiary
	Children              []estate.Beneficiary
	LifetimeGifts         []*gift.Gift
	InflationRate         money.Percentage
	AdjustmentMethod      gift.AdjustmentMethod

	// SpouseResidueFraction overrides the default spousal residue share.
	SpouseResidueFraction *money.Percentage

	// MatrimonialHomeValue, when set, creates a life interest for the
	// surviving spouse instead of transferring the home absolutely.
	MatrimonialHomeValue *money.Money
}

// S35Result is the immutable outcome of a section 35 distribution.
type S35Result struct {
	CalculationID    uuid.UUID     `json:"calculationId"`
	CalculatedAt     time.Time     `json:"calculatedAt"`
	Rule             S35Rule       `json:"rule"`
	NetEstateValue   money.Money   `json:"netEstateValue"`
	Residue          money.Money   `json:"residue"`
	SpouseShare      *Share        `json:"spouseShare,omitempty"`
	ChildrenShares   []Share       `json:"childrenShares,omitempty"`
	LifeInterest     *LifeInterest `json:"lifeInterest,omitempty"`
	TotalDistributed money.Money   `json:"totalDistributed"`
	Undistributed    money.Money   `json:"undistributed"`
	Warnings         []string      `json:"warnings,omitempty"`
}

// S35Calculator distributes a monogamous intestate estate. Pure: identical
// inputs produce identical results and no input state is mutated.
type S35Calculator struct{}

// NewS35Calculator builds an S35Calculator.
func NewS35Calculator() *S35Calculator { return &S35Calculator{} }

// Calculate applies section 35 to the input snapshot.
func (c *S35Calculator) Calculate(input S35Input) (*S35Result, error) {
	currency := input.NetEstateValue.Currency()

	var verr estate.ValidationErrors
	if !input.NetEstateValue.Amount().IsPositive() {
		verr.Add("netEstateValue", "net estate value must be positive")
	}
	if input.DateOfDeath.IsZero() {
		verr.Add("dateOfDeath", "date of death required")
	}
	if !input.PersonalChattelsValue.IsZero() {
		if input.PersonalChattelsValue.Currency() != currency {
			verr.Add("personalChattelsValue", "chattels currency must match estate currency")
		} else if input.PersonalChattelsValue.GreaterThan(input.NetEstateValue) {
			verr.Add("personalChattelsValue", "chattels value cannot exceed the net estate")
		}
	}
	if input.Spouse != nil && !input.Spouse.Alive {
		verr.Add("spouse", "a predeceased spouse cannot take under section 35")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	children := eligibleChildren(input.Children)
	residue, err := input.NetEstateValue.Sub(input.PersonalChattelsValue)
	if err != nil {
		return nil, err
	}

	result := &S35Result{
		CalculationID:    uuid.New(),
		CalculatedAt:     time.Now(),
		NetEstateValue:   input.NetEstateValue,
		Residue:          residue,
		TotalDistributed: money.Zero(currency),
		Undistributed:    money.Zero(currency),
	}

	hotchpot, err := hotchpotFor(input.NetEstateValue, input.DateOfDeath, children,
		input.LifetimeGifts, input.InflationRate, input.AdjustmentMethod)
	if err != nil {
		return nil, err
	}
	if hotchpot != nil {
		result.Warnings = append(result.Warnings, hotchpot.Warnings...)
	}

	switch {
	case input.Spouse != nil && len(children) > 0:
		result.Rule = RuleSpouseAndChildren
		err = c.spouseAndChildren(input, children, residue, hotchpot, result)
	case input.Spouse != nil:
		result.Rule = RuleSpouseOnly
		err = c.spouseOnly(input, residue, result)
	case len(children) > 0:
		result.Rule = RuleChildrenOnly
		err = c.childrenOnly(input, children, residue, hotchpot, result)
	default:
		result.Rule = RuleNextOfKin
		result.Undistributed = input.NetEstateValue
		result.Warnings = append(result.Warnings,
			"no surviving spouse or children: estate devolves on next of kin under section 39")
	}
	if err != nil {
		return nil, err
	}

	if err := c.total(result); err != nil {
		return nil, err
	}
	if result.TotalDistributed.GreaterThan(input.NetEstateValue) &&
		!withinTolerance(result.TotalDistributed, input.NetEstateValue) {
		return nil, estate.Invariant("section 35 distributed %s against a net estate of %s",
			result.TotalDistributed, input.NetEstateValue)
	}
	return result, nil
}

func (c *S35Calculator) spouseFraction(input S35Input) money.Percentage {
	if input.SpouseResidueFraction != nil {
		return *input.SpouseResidueFraction
	}
	return DefaultSpouseResidueFraction
}

// spouseAndChildren: chattels wholly to the spouse, a fixed fraction of the
// residue to the spouse, and the remainder equally among the children, each
// reduced by their own hotchpot adjustment.
func (c *S35Calculator) spouseAndChildren(input S35Input, children []estate.Beneficiary, residue money.Money, hotchpot *gift.Result, result *S35Result) error {
	spouseResidue := residue.Percent(c.spouseFraction(input))
	childrenResidue, err := residue.Sub(spouseResidue)
	if err != nil {
		return err
	}

	spouseTotal, err := input.PersonalChattelsValue.Add(spouseResidue)
	if err != nil {
		return err
	}
	result.SpouseShare = &Share{
		BeneficiaryID:     input.Spouse.ID,
		Name:              input.Spouse.Name,
		Role:              RoleSpouse,
		ChattelsShare:     input.PersonalChattelsValue,
		ResidueShare:      spouseResidue,
		HotchpotDeduction: money.Zero(residue.Currency()),
		Total:             spouseTotal,
	}
	c.lifeInterest(input, result)

	shares, err := equalSplit(childrenResidue, len(children))
	if err != nil {
		return err
	}
	result.ChildrenShares, err = c.childShares(children, nil, shares, hotchpot)
	return err
}

// spouseOnly: the whole estate passes to the surviving spouse absolutely.
func (c *S35Calculator) spouseOnly(input S35Input, residue money.Money, result *S35Result) error {
	total, err := input.PersonalChattelsValue.Add(residue)
	if err != nil {
		return err
	}
	result.SpouseShare = &Share{
		BeneficiaryID:     input.Spouse.ID,
		Name:              input.Spouse.Name,
		Role:              RoleSpouse,
		ChattelsShare:     input.PersonalChattelsValue,
		ResidueShare:      residue,
		HotchpotDeduction: money.Zero(residue.Currency()),
		Total:             total,
	}
	c.lifeInterest(input, result)
	return nil
}

// childrenOnly: chattels and residue both split equally among the children.
func (c *S35Calculator) childrenOnly(input S35Input, children []estate.Beneficiary, residue money.Money, hotchpot *gift.Result, result *S35Result) error {
	chattelShares, err := equalSplit(input.PersonalChattelsValue, len(children))
	if err != nil {
		return err
	}
	residueShares, err := equalSplit(residue, len(children))
	if err != nil {
		return err
	}
	result.ChildrenShares, err = c.childShares(children, chattelShares, residueShares, hotchpot)
	return err
}

func (c *S35Calculator) childShares(children []estate.Beneficiary, chattelShares, residueShares []money.Money, hotchpot *gift.Result) ([]Share, error) {
	shares := make([]Share, 0, len(children))
	for i, child := range children {
		chattels := money.Zero(residueShares[i].Currency())
		if chattelShares != nil {
			chattels = chattelShares[i]
		}

		residue := residueShares[i]
		deduction := money.Zero(residue.Currency())
		if hotchpot != nil {
			adjusted, applied, err := deductHotchpot(residue, hotchpot.AdjustmentFor(child.ID))
			if err != nil {
				return nil, err
			}
			residue = adjusted
			deduction = applied
		}

		total, err := chattels.Add(residue)
		if err != nil {
			return nil, err
		}
		shares = append(shares, Share{
			BeneficiaryID:     child.ID,
			Name:              child.Name,
			Role:              RoleChild,
			ChattelsShare:     chattels,
			ResidueShare:      residue,
			HotchpotDeduction: deduction,
			Total:             total,
			ByRepresentation:  child.Represents(),
		})
	}
	return shares, nil
}

// lifeInterest creates the spouse's life interest in the matrimonial home,
// estimated to run for a multi-decade horizon and determining on remarriage.
func (c *S35Calculator) lifeInterest(input S35Input, result *S35Result) {
	if input.MatrimonialHomeValue == nil || input.Spouse == nil {
		return
	}
	result.LifeInterest = &LifeInterest{
		HolderID:               input.Spouse.ID,
		PropertyValue:          *input.MatrimonialHomeValue,
		EstimatedEndDate:       input.DateOfDeath.AddDate(lifeInterestHorizonYears, 0, 0),
		TerminatesOnRemarriage: true,
	}
}

func (c *S35Calculator) total(result *S35Result) error {
	total := money.Zero(result.NetEstateValue.Currency())
	var err error
	if result.SpouseShare != nil {
		total, err = total.Add(result.SpouseShare.Total)
		if err != nil {
			return err
		}
	}
	for _, s := range result.ChildrenShares {
		total, err = total.Add(s.Total)
		if err != nil {
			return err
		}
	}
	result.TotalDistributed = total
	return nil
}
