package distribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/gift"
	"github.com/mirathi/mirathi/internal/money"
)

// HouseAllocation names how the house-level split was determined.
type HouseAllocation string

const (
	AllocationEqual        HouseAllocation = "EQUAL_SPLIT"
	AllocationPercentage   HouseAllocation = "EXPLICIT_PERCENTAGE"
	AllocationCourtOrdered HouseAllocation = "COURT_ORDERED"
)

// spouseHouseFraction is the intra-house spousal share: one third of the
// house share, the children dividing the remainder equally.
var spouseHouseFraction = decimal.NewFromInt(3)

var decimal100 = decimal.NewFromInt(100)

// House is one spousal unit in a polygamous estate.
type House struct {
	ID       uuid.UUID
	Name     string
	Spouse   *estate.Beneficiary
	Children []estate.Beneficiary

	// ExplicitPercentage overrides the equal split when every house
	// carries one.
	ExplicitPercentage *money.Percentage

	// CourtOrderedAmount fixes the house share exactly, taking precedence
	// over percentages and equal splitting.
	CourtOrderedAmount *money.Money

	// BridePriceValue and CustomaryAdjustmentFactor together form a
	// customary-law adjustment added to the house share after hotchpot.
	BridePriceValue           *money.Money
	CustomaryAdjustmentFactor *money.Percentage
}

// HouseShare is the final allocation for one house.
type HouseShare struct {
	HouseID             uuid.UUID       `json:"houseId"`
	Name                string          `json:"name"`
	Allocation          HouseAllocation `json:"allocation"`
	GrossShare          money.Money     `json:"grossShare"`
	HotchpotDeduction   money.Money     `json:"hotchpotDeduction"`
	CustomaryAdjustment money.Money     `json:"customaryAdjustment"`
	NetShare            money.Money     `json:"netShare"`
	SpouseShare         *Share          `json:"spouseShare,omitempty"`
	ChildrenShares      []Share         `json:"childrenShares,omitempty"`
}

// S40Input is the polygamous intestate distribution snapshot.
type S40Input struct {
	NetEstateValue   money.Money
	DateOfDeath      time.Time
	Houses           []House
	LifetimeGifts    []*gift.Gift
	InflationRate    money.Percentage
	AdjustmentMethod gift.AdjustmentMethod
}

// S40Result is the immutable outcome of a section 40 distribution.
type S40Result struct {
	CalculationID    uuid.UUID    `json:"calculationId"`
	CalculatedAt     time.Time    `json:"calculatedAt"`
	NetEstateValue   money.Money  `json:"netEstateValue"`
	HouseShares      []HouseShare `json:"houseShares"`
	TotalDistributed money.Money  `json:"totalDistributed"`
	Warnings         []string     `json:"warnings,omitempty"`
}

// S40Calculator distributes a polygamous intestate estate house by house.
// Pure: identical inputs produce identical results.
type S40Calculator struct{}

// NewS40Calculator builds an S40Calculator.
func NewS40Calculator() *S40Calculator { return &S40Calculator{} }

// Calculate applies section 40 to the input snapshot.
func (c *S40Calculator) Calculate(input S40Input) (*S40Result, error) {
	currency := input.NetEstateValue.Currency()

	if err := c.validate(input); err != nil {
		return nil, err
	}

	result := &S40Result{
		CalculationID:    uuid.New(),
		CalculatedAt:     time.Now(),
		NetEstateValue:   input.NetEstateValue,
		TotalDistributed: money.Zero(currency),
	}

	grossShares, allocation, err := c.houseShares(input)
	if err != nil {
		return nil, err
	}

	hotchpot, err := c.hotchpot(input)
	if err != nil {
		return nil, err
	}
	if hotchpot != nil {
		result.Warnings = append(result.Warnings, hotchpot.Warnings...)
	}

	for i, house := range input.Houses {
		share, err := c.distributeHouse(house, grossShares[i], allocation[i], hotchpot, currency)
		if err != nil {
			return nil, err
		}
		result.HouseShares = append(result.HouseShares, share)

		total, err := result.TotalDistributed.Add(share.NetShare)
		if err != nil {
			return nil, err
		}
		result.TotalDistributed = total
	}

	if err := c.checkCompliance(input, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *S40Calculator) validate(input S40Input) error {
	currency := input.NetEstateValue.Currency()

	var verr estate.ValidationErrors
	if !input.NetEstateValue.Amount().IsPositive() {
		verr.Add("netEstateValue", "net estate value must be positive")
	}
	if input.DateOfDeath.IsZero() {
		verr.Add("dateOfDeath", "date of death required")
	}
	if len(input.Houses) == 0 {
		verr.Add("houses", "at least one house required")
	}

	withPercentage := 0
	percentageTotal := decimal.Zero
	for i, house := range input.Houses {
		if house.ID == uuid.Nil {
			verr.Addf("houses", "house at index %d missing ID", i)
		}
		if house.Spouse == nil && len(eligibleChildren(house.Children)) == 0 {
			verr.Addf("houses", "house %s has neither a spouse nor eligible children", house.Name)
		}
		if house.ExplicitPercentage != nil {
			withPercentage++
			percentageTotal = percentageTotal.Add(house.ExplicitPercentage.Value())
		}
		if house.CourtOrderedAmount != nil && house.CourtOrderedAmount.Currency() != currency {
			verr.Addf("houses", "house %s court-ordered amount currency must match estate currency", house.Name)
		}
		if house.BridePriceValue != nil && house.BridePriceValue.Currency() != currency {
			verr.Addf("houses", "house %s bride price currency must match estate currency", house.Name)
		}
		if house.CustomaryAdjustmentFactor != nil && house.BridePriceValue == nil {
			verr.Addf("houses", "house %s has a customary adjustment factor but no bride price value", house.Name)
		}
	}
	if withPercentage > 0 {
		if withPercentage != len(input.Houses) {
			verr.Add("houses", "explicit percentages must be set on every house or none")
		} else if !percentageTotal.Equal(decimal100) {
			verr.Addf("houses", "explicit house percentages sum to %s, expected 100", percentageTotal)
		}
	}
	return verr.Err()
}

// houseShares computes each house's gross share before hotchpot and
// customary adjustments. Court-ordered amounts win over percentages, which
// win over the equal split.
func (c *S40Calculator) houseShares(input S40Input) ([]money.Money, []HouseAllocation, error) {
	n := len(input.Houses)
	shares := make([]money.Money, n)
	allocation := make([]HouseAllocation, n)

	courtOrderedTotal := money.Zero(input.NetEstateValue.Currency())
	withoutOrder := make([]int, 0, n)
	for i, house := range input.Houses {
		if house.CourtOrderedAmount == nil {
			withoutOrder = append(withoutOrder, i)
			continue
		}
		shares[i] = *house.CourtOrderedAmount
		allocation[i] = AllocationCourtOrdered
		total, err := courtOrderedTotal.Add(*house.CourtOrderedAmount)
		if err != nil {
			return nil, nil, err
		}
		courtOrderedTotal = total
	}

	if len(withoutOrder) == 0 {
		return shares, allocation, nil
	}

	remaining, err := input.NetEstateValue.Sub(courtOrderedTotal)
	if err != nil {
		var verr estate.ValidationErrors
		verr.Add("houses", "court-ordered amounts exceed the net estate")
		return nil, nil, verr.Err()
	}

	if input.Houses[withoutOrder[0]].ExplicitPercentage != nil {
		for _, i := range withoutOrder {
			shares[i] = remaining.Percent(*input.Houses[i].ExplicitPercentage)
			allocation[i] = AllocationPercentage
		}
		return shares, allocation, nil
	}

	equal, err := equalSplit(remaining, len(withoutOrder))
	if err != nil {
		return nil, nil, err
	}
	for j, i := range withoutOrder {
		shares[i] = equal[j]
		allocation[i] = AllocationEqual
	}
	return shares, allocation, nil
}

func (c *S40Calculator) hotchpot(input S40Input) (*gift.Result, error) {
	if len(input.LifetimeGifts) == 0 {
		return nil, nil
	}
	beneficiaries := make([]estate.Beneficiary, 0)
	for _, house := range input.Houses {
		if house.Spouse != nil {
			beneficiaries = append(beneficiaries, *house.Spouse)
		}
		beneficiaries = append(beneficiaries, house.Children...)
	}
	return hotchpotFor(input.NetEstateValue, input.DateOfDeath, beneficiaries,
		input.LifetimeGifts, input.InflationRate, input.AdjustmentMethod)
}

// distributeHouse nets the house share of its aggregate hotchpot, applies the
// customary adjustment, and divides the result intra-house.
func (c *S40Calculator) distributeHouse(house House, gross money.Money, allocation HouseAllocation, hotchpot *gift.Result, currency money.Currency) (HouseShare, error) {
	share := HouseShare{
		HouseID:             house.ID,
		Name:                house.Name,
		Allocation:          allocation,
		GrossShare:          gross,
		HotchpotDeduction:   money.Zero(currency),
		CustomaryAdjustment: money.Zero(currency),
	}

	net := gross
	if hotchpot != nil {
		aggregate, err := c.houseHotchpot(house, hotchpot, currency)
		if err != nil {
			return HouseShare{}, err
		}
		net, share.HotchpotDeduction, err = deductHotchpot(net, aggregate)
		if err != nil {
			return HouseShare{}, err
		}
	}

	// The customary term is computed in isolation from the bride price and
	// its factor, then added after the hotchpot deduction. The factor never
	// scales the already-reduced house share.
	adjustment, err := customaryAdjustment(house, currency)
	if err != nil {
		return HouseShare{}, err
	}
	if !adjustment.IsZero() {
		share.CustomaryAdjustment = adjustment
		net, err = net.Add(adjustment)
		if err != nil {
			return HouseShare{}, err
		}
	}
	share.NetShare = net

	if err := c.splitIntraHouse(house, &share); err != nil {
		return HouseShare{}, err
	}
	return share, nil
}

// houseHotchpot sums the adjustments of every beneficiary in the house.
func (c *S40Calculator) houseHotchpot(house House, hotchpot *gift.Result, currency money.Currency) (money.Money, error) {
	total := money.Zero(currency)
	members := house.Children
	if house.Spouse != nil {
		members = append([]estate.Beneficiary{*house.Spouse}, members...)
	}
	for _, m := range members {
		adj := hotchpot.AdjustmentFor(m.ID)
		if adj.IsZero() {
			continue
		}
		sum, err := total.Add(adj)
		if err != nil {
			return money.Money{}, err
		}
		total = sum
	}
	return total, nil
}

// customaryAdjustment is the bride price scaled by the adjustment factor, or
// the bride price itself when no factor is set.
func customaryAdjustment(house House, currency money.Currency) (money.Money, error) {
	if house.BridePriceValue == nil {
		return money.Zero(currency), nil
	}
	if house.CustomaryAdjustmentFactor == nil {
		return *house.BridePriceValue, nil
	}
	return house.BridePriceValue.Percent(*house.CustomaryAdjustmentFactor), nil
}

// splitIntraHouse gives the house spouse one third of the net share and
// divides the remainder equally among the eligible children. A house with no
// spouse splits everything among the children; a house with no children gives
// everything to the spouse.
func (c *S40Calculator) splitIntraHouse(house House, share *HouseShare) error {
	children := eligibleChildren(house.Children)
	currency := share.NetShare.Currency()

	switch {
	case house.Spouse != nil && len(children) > 0:
		spousePart, err := share.NetShare.Div(spouseHouseFraction)
		if err != nil {
			return err
		}
		childrenPart, err := share.NetShare.Sub(spousePart)
		if err != nil {
			return err
		}
		share.SpouseShare = &Share{
			BeneficiaryID:     house.Spouse.ID,
			Name:              house.Spouse.Name,
			Role:              RoleSpouse,
			ChattelsShare:     money.Zero(currency),
			ResidueShare:      spousePart,
			HotchpotDeduction: money.Zero(currency),
			Total:             spousePart,
		}
		return c.childIntraShares(children, childrenPart, share)
	case house.Spouse != nil:
		share.SpouseShare = &Share{
			BeneficiaryID:     house.Spouse.ID,
			Name:              house.Spouse.Name,
			Role:              RoleSpouse,
			ChattelsShare:     money.Zero(currency),
			ResidueShare:      share.NetShare,
			HotchpotDeduction: money.Zero(currency),
			Total:             share.NetShare,
		}
		return nil
	default:
		return c.childIntraShares(children, share.NetShare, share)
	}
}

func (c *S40Calculator) childIntraShares(children []estate.Beneficiary, total money.Money, share *HouseShare) error {
	parts, err := equalSplit(total, len(children))
	if err != nil {
		return err
	}
	currency := total.Currency()
	for i, child := range children {
		share.ChildrenShares = append(share.ChildrenShares, Share{
			BeneficiaryID:     child.ID,
			Name:              child.Name,
			Role:              RoleChild,
			ChattelsShare:     money.Zero(currency),
			ResidueShare:      parts[i],
			HotchpotDeduction: money.Zero(currency),
			Total:             parts[i],
			ByRepresentation:  child.Represents(),
		})
	}
	return nil
}

// checkCompliance enforces the post-distribution invariants: non-negative
// house shares, an exact match for court-ordered amounts, and a distributed
// total within tolerance of the net estate.
func (c *S40Calculator) checkCompliance(input S40Input, result *S40Result) error {
	for i, share := range result.HouseShares {
		if share.NetShare.Amount().IsNegative() {
			return estate.Invariant("house %s received a negative share %s", share.Name, share.NetShare)
		}
		ordered := input.Houses[i].CourtOrderedAmount
		if ordered != nil && !share.GrossShare.Amount().Equal(ordered.Amount()) {
			return estate.Invariant("house %s gross share %s does not match the court-ordered amount %s",
				share.Name, share.GrossShare, ordered)
		}
	}

	adjustments := money.Zero(input.NetEstateValue.Currency())
	for _, share := range result.HouseShares {
		sum, err := adjustments.Add(share.CustomaryAdjustment)
		if err != nil {
			return err
		}
		adjustments = sum
	}
	ceiling, err := input.NetEstateValue.Add(adjustments)
	if err != nil {
		return err
	}
	if result.TotalDistributed.GreaterThan(ceiling) &&
		!withinTolerance(result.TotalDistributed, ceiling) {
		return estate.Invariant("section 40 distributed %s against a ceiling of %s",
			result.TotalDistributed, ceiling)
	}
	return nil
}
