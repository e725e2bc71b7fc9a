package calculation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/dependant"
	"github.com/mirathi/mirathi/internal/estate/distribution"
	"github.com/mirathi/mirathi/internal/estate/gift"
	"github.com/mirathi/mirathi/internal/money"
)

// MoneyDTO is the wire form of a monetary amount.
type MoneyDTO struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,len=3"`
}

// ToMoney validates and converts the wire amount.
func (m MoneyDTO) ToMoney() (money.Money, error) {
	return money.New(m.Amount, money.Currency(m.Currency))
}

func optionalMoney(dto *MoneyDTO, field string, verr *estate.ValidationErrors) *money.Money {
	if dto == nil {
		return nil
	}
	m, err := dto.ToMoney()
	if err != nil {
		verr.Addf(field, "invalid amount: %v", err)
		return nil
	}
	return &m
}

func optionalPercentage(value *float64, field string, verr *estate.ValidationErrors) *money.Percentage {
	if value == nil {
		return nil
	}
	p, err := money.NewPercentageFromFloat(*value)
	if err != nil {
		verr.Addf(field, "invalid percentage: %v", err)
		return nil
	}
	return &p
}

// BeneficiaryDTO identifies one person entitled to share in the estate.
// IDs are client-supplied so gifts can reference their recipients.
type BeneficiaryDTO struct {
	ID           uuid.UUID  `json:"id" validate:"required"`
	Name         string     `json:"name" validate:"required"`
	Relationship string     `json:"relationship,omitempty"`
	Alive        *bool      `json:"alive,omitempty"`
	RepresentsID *uuid.UUID `json:"representsId,omitempty"`
}

func (b BeneficiaryDTO) toBeneficiary(fallback estate.Relationship) estate.Beneficiary {
	alive := true
	if b.Alive != nil {
		alive = *b.Alive
	}
	rel := estate.Relationship(b.Relationship)
	if rel == "" {
		rel = fallback
	}
	return estate.Beneficiary{
		ID:           b.ID,
		Name:         b.Name,
		Relationship: rel,
		Alive:        alive,
		RepresentsID: b.RepresentsID,
	}
}

func toChildren(dtos []BeneficiaryDTO) []estate.Beneficiary {
	out := make([]estate.Beneficiary, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toBeneficiary(estate.RelationshipChild))
	}
	return out
}

// GiftDTO describes one lifetime gift for hotchpot purposes.
type GiftDTO struct {
	BeneficiaryID         uuid.UUID `json:"beneficiaryId" validate:"required"`
	Description           string    `json:"description" validate:"required"`
	Value                 MoneyDTO  `json:"value" validate:"required"`
	GiftDate              time.Time `json:"giftDate" validate:"required"`
	Advancement           bool      `json:"advancement"`
	HotchpotSubject       bool      `json:"hotchpotSubject"`
	CustomaryLawExemption bool      `json:"customaryLawExemption,omitempty"`
	CourtOrderRef         string    `json:"courtOrderRef,omitempty"`
	MarketValue           *MoneyDTO `json:"marketValue,omitempty"`

	// Exempted excludes the gift from hotchpot by administrator decision.
	Exempted bool `json:"exempted,omitempty"`
}

// toGifts converts the wire gifts, returning alongside the IDs of gifts
// flagged exempt so the calculator can skip them.
func toGifts(dtos []GiftDTO) ([]*gift.Gift, []uuid.UUID, error) {
	var verr estate.ValidationErrors
	gifts := make([]*gift.Gift, 0, len(dtos))
	var exempted []uuid.UUID

	for i, dto := range dtos {
		value, err := dto.Value.ToMoney()
		if err != nil {
			verr.Addf("gifts", "gift at index %d: invalid value: %v", i, err)
			continue
		}
		marketValue := optionalMoney(dto.MarketValue, "gifts", &verr)

		g, err := gift.New(gift.CreateInput{
			BeneficiaryID:         dto.BeneficiaryID,
			Description:           dto.Description,
			Value:                 value,
			GiftDate:              dto.GiftDate,
			Advancement:           dto.Advancement,
			HotchpotSubject:       dto.HotchpotSubject,
			CustomaryLawExemption: dto.CustomaryLawExemption,
			CourtOrderRef:         dto.CourtOrderRef,
			MarketValue:           marketValue,
		})
		if err != nil {
			verr.Addf("gifts", "gift at index %d: %v", i, err)
			continue
		}
		gifts = append(gifts, g)
		if dto.Exempted {
			exempted = append(exempted, g.ID)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, nil, err
	}
	return gifts, exempted, nil
}

// DependantDTO describes one claimed dependant for a section 29 assessment.
type DependantDTO struct {
	ID                 uuid.UUID  `json:"id" validate:"required"`
	Name               string     `json:"name" validate:"required"`
	Relationship       string     `json:"relationship" validate:"required"`
	RegisteredMarriage bool       `json:"registeredMarriage,omitempty"`
	DateOfBirth        time.Time  `json:"dateOfBirth" validate:"required"`
	IsStudent          bool       `json:"isStudent,omitempty"`
	ExpectedGraduation *time.Time `json:"expectedGraduation,omitempty"`
	HasDisability      bool       `json:"hasDisability,omitempty"`

	DependencyPct           float64   `json:"dependencyPct" validate:"min=0,max=100"`
	MonthlyLivingExpenses   MoneyDTO  `json:"monthlyLivingExpenses" validate:"required"`
	MonthlyOtherSupport     *MoneyDTO `json:"monthlyOtherSupport,omitempty"`
	AnnualSpecialNeedsCosts *MoneyDTO `json:"annualSpecialNeedsCosts,omitempty"`

	EvidenceStrength int      `json:"evidenceStrength" validate:"min=0,max=100"`
	ImmediateNeeds   []string `json:"immediateNeeds,omitempty"`
}

func toDependants(dtos []DependantDTO, currency money.Currency) ([]dependant.Dependant, error) {
	var verr estate.ValidationErrors
	out := make([]dependant.Dependant, 0, len(dtos))

	for i, dto := range dtos {
		pct, err := money.NewPercentageFromFloat(dto.DependencyPct)
		if err != nil {
			verr.Addf("dependants", "dependant at index %d: invalid dependency percentage: %v", i, err)
			continue
		}
		expenses, err := dto.MonthlyLivingExpenses.ToMoney()
		if err != nil {
			verr.Addf("dependants", "dependant at index %d: invalid living expenses: %v", i, err)
			continue
		}
		support := money.Zero(currency)
		if m := optionalMoney(dto.MonthlyOtherSupport, "dependants", &verr); m != nil {
			support = *m
		}
		specialNeeds := money.Zero(currency)
		if m := optionalMoney(dto.AnnualSpecialNeedsCosts, "dependants", &verr); m != nil {
			specialNeeds = *m
		}

		needs := make([]dependant.ImmediateNeed, 0, len(dto.ImmediateNeeds))
		for _, n := range dto.ImmediateNeeds {
			needs = append(needs, dependant.ImmediateNeed(n))
		}

		out = append(out, dependant.Dependant{
			ID:                      dto.ID,
			Name:                    dto.Name,
			Relationship:            estate.Relationship(dto.Relationship),
			RegisteredMarriage:      dto.RegisteredMarriage,
			DateOfBirth:             dto.DateOfBirth,
			IsStudent:               dto.IsStudent,
			ExpectedGraduation:      dto.ExpectedGraduation,
			HasDisability:           dto.HasDisability,
			DependencyPercentage:    pct,
			MonthlyLivingExpenses:   expenses,
			MonthlyOtherSupport:     support,
			AnnualSpecialNeedsCosts: specialNeeds,
			EvidenceStrength:        dto.EvidenceStrength,
			ImmediateNeeds:          needs,
		})
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HouseDTO describes one house of a polygamous family.
type HouseDTO struct {
	ID       uuid.UUID        `json:"id" validate:"required"`
	Name     string           `json:"name" validate:"required"`
	Spouse   *BeneficiaryDTO  `json:"spouse,omitempty"`
	Children []BeneficiaryDTO `json:"children,omitempty" validate:"dive"`

	ExplicitPercentagePct        *float64  `json:"explicitPercentagePct,omitempty"`
	CourtOrderedAmount           *MoneyDTO `json:"courtOrderedAmount,omitempty"`
	BridePriceValue              *MoneyDTO `json:"bridePriceValue,omitempty"`
	CustomaryAdjustmentFactorPct *float64  `json:"customaryAdjustmentFactorPct,omitempty"`
}

func toHouses(dtos []HouseDTO) ([]distribution.House, error) {
	var verr estate.ValidationErrors
	out := make([]distribution.House, 0, len(dtos))

	for _, dto := range dtos {
		house := distribution.House{
			ID:                        dto.ID,
			Name:                      dto.Name,
			Children:                  toChildren(dto.Children),
			ExplicitPercentage:        optionalPercentage(dto.ExplicitPercentagePct, "houses", &verr),
			CourtOrderedAmount:        optionalMoney(dto.CourtOrderedAmount, "houses", &verr),
			BridePriceValue:           optionalMoney(dto.BridePriceValue, "houses", &verr),
			CustomaryAdjustmentFactor: optionalPercentage(dto.CustomaryAdjustmentFactorPct, "houses", &verr),
		}
		if dto.Spouse != nil {
			spouse := dto.Spouse.toBeneficiary(estate.RelationshipSpouse)
			house.Spouse = &spouse
		}
		out = append(out, house)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HotchpotRequest runs a standalone section 35(3) hotchpot aggregation.
type HotchpotRequest struct {
	EstateID       uuid.UUID `json:"estateId" validate:"required"`
	NetEstateValue MoneyDTO  `json:"netEstateValue" validate:"required"`
	DateOfDeath    time.Time `json:"dateOfDeath" validate:"required"`

	Beneficiaries []BeneficiaryDTO `json:"beneficiaries" validate:"required,min=1,dive"`
	Gifts         []GiftDTO        `json:"gifts" validate:"dive"`

	InflationRatePct           *float64  `json:"inflationRatePct,omitempty"`
	Method                     string    `json:"method,omitempty"`
	MinimumAdjustmentThreshold *MoneyDTO `json:"minimumAdjustmentThreshold,omitempty"`
}

// DependantsRequest runs a section 29 dependency assessment.
type DependantsRequest struct {
	EstateID        uuid.UUID `json:"estateId" validate:"required"`
	NetEstateValue  MoneyDTO  `json:"netEstateValue" validate:"required"`
	TotalDebts      *MoneyDTO `json:"totalDebts,omitempty"`
	FuneralExpenses *MoneyDTO `json:"funeralExpenses,omitempty"`

	Dependants []DependantDTO `json:"dependants" validate:"required,min=1,dive"`

	MinimumProvisionPct *float64   `json:"minimumProvisionPct,omitempty"`
	MaximumProvisionPct *float64   `json:"maximumProvisionPct,omitempty"`
	AsOf                *time.Time `json:"asOf,omitempty"`
}

// Section35Request runs a monogamous intestate distribution.
type Section35Request struct {
	EstateID              uuid.UUID `json:"estateId" validate:"required"`
	NetEstateValue        MoneyDTO  `json:"netEstateValue" validate:"required"`
	PersonalChattelsValue *MoneyDTO `json:"personalChattelsValue,omitempty"`
	DateOfDeath           time.Time `json:"dateOfDeath" validate:"required"`

	Spouse   *BeneficiaryDTO  `json:"spouse,omitempty"`
	Children []BeneficiaryDTO `json:"children,omitempty" validate:"dive"`
	Gifts    []GiftDTO        `json:"gifts,omitempty" validate:"dive"`

	InflationRatePct         *float64  `json:"inflationRatePct,omitempty"`
	AdjustmentMethod         string    `json:"adjustmentMethod,omitempty"`
	SpouseResidueFractionPct *float64  `json:"spouseResidueFractionPct,omitempty"`
	MatrimonialHomeValue     *MoneyDTO `json:"matrimonialHomeValue,omitempty"`
}

// Section40Request runs a polygamous intestate distribution.
type Section40Request struct {
	EstateID       uuid.UUID `json:"estateId" validate:"required"`
	NetEstateValue MoneyDTO  `json:"netEstateValue" validate:"required"`
	DateOfDeath    time.Time `json:"dateOfDeath" validate:"required"`

	Houses []HouseDTO `json:"houses" validate:"required,min=1,dive"`
	Gifts  []GiftDTO  `json:"gifts,omitempty" validate:"dive"`

	InflationRatePct *float64 `json:"inflationRatePct,omitempty"`
	AdjustmentMethod string   `json:"adjustmentMethod,omitempty"`
}

// SettlementRequest builds the debt settlement waterfall for an estate.
type SettlementRequest struct {
	EstateID       uuid.UUID  `json:"estateId" validate:"required"`
	NetEstateValue MoneyDTO   `json:"netEstateValue" validate:"required"`
	AsOf           *time.Time `json:"asOf,omitempty"`
}
