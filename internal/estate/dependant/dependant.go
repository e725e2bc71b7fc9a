// Package dependant implements the needs-based provision calculator for
// statutory dependants under section 29.
package dependant

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/money"
)

// Status is the assessment state of one dependant's claim.
type Status string

const (
	StatusPendingAssessment Status = "PENDING_ASSESSMENT"
	StatusEligible          Status = "ELIGIBLE"
	StatusIneligible        Status = "INELIGIBLE"
	StatusProvisionGranted  Status = "PROVISION_GRANTED"
	StatusProvisionDenied   Status = "PROVISION_DENIED"
	StatusAppealPending     Status = "APPEAL_PENDING"
)

// ImmediateNeed flags a dependant circumstance that raises urgency.
type ImmediateNeed string

const (
	NeedMedical   ImmediateNeed = "MEDICAL"
	NeedHousing   ImmediateNeed = "HOUSING"
	NeedFood      ImmediateNeed = "FOOD"
	NeedEducation ImmediateNeed = "EDUCATION"
)

// Ages used by duration and scoring rules.
const (
	ageOfMajority = 18
	elderlyAge    = 65
)

// Dependant is the input snapshot describing one claimed dependant.
type Dependant struct {
	ID                 uuid.UUID
	Name               string
	Relationship       estate.Relationship
	RegisteredMarriage bool
	DateOfBirth        time.Time

	IsStudent          bool
	ExpectedGraduation *time.Time

	HasDisability        bool
	DependencyPercentage money.Percentage

	MonthlyLivingExpenses   money.Money
	MonthlyOtherSupport     money.Money
	AnnualSpecialNeedsCosts money.Money

	EvidenceStrength int
	ImmediateNeeds   []ImmediateNeed
}

// Age returns the dependant's whole-year age at the given date.
func (d Dependant) Age(asOf time.Time) int {
	years := asOf.Year() - d.DateOfBirth.Year()
	if asOf.Month() < d.DateOfBirth.Month() ||
		(asOf.Month() == d.DateOfBirth.Month() && asOf.Day() < d.DateOfBirth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// IsMinor reports whether the dependant is under the age of majority.
func (d Dependant) IsMinor(asOf time.Time) bool {
	return d.Age(asOf) < ageOfMajority
}

// UnregisteredSpouse reports whether the dependant claims as a cohabiting
// spouse without a registered marriage.
func (d Dependant) UnregisteredSpouse() bool {
	return d.Relationship == estate.RelationshipCohabitingSpouse ||
		(d.Relationship == estate.RelationshipSpouse && !d.RegisteredMarriage)
}

// durationYears estimates how long provision must last: to majority for
// minors, to expected graduation for students, one year otherwise.
func (d Dependant) durationYears(asOf time.Time) int {
	if d.IsMinor(asOf) {
		years := ageOfMajority - d.Age(asOf)
		if d.IsStudent && d.ExpectedGraduation != nil {
			if grad := yearsUntil(asOf, *d.ExpectedGraduation); grad > years {
				return grad
			}
		}
		return years
	}
	if d.IsStudent && d.ExpectedGraduation != nil {
		if years := yearsUntil(asOf, *d.ExpectedGraduation); years > 0 {
			return years
		}
	}
	return 1
}

func yearsUntil(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	years := to.Year() - from.Year()
	if years == 0 {
		return 1
	}
	return years
}

// Entitlement score weights. Additive on a 0-100 scale.
const (
	weightSpouse           = 30
	weightChild            = 30
	weightCohabitingSpouse = 20
	weightParent           = 15
	weightSiblingGrand     = 10
	weightOtherRelation    = 5

	weightDependencyMax = 25
	weightDisability    = 15
	weightMinor         = 15
	weightElderly       = 10
	weightEvidenceMax   = 15
)

// EntitlementScore combines relationship, dependency level, disability, age
// band, and evidence strength into a 0-100 score.
func (d Dependant) EntitlementScore(asOf time.Time) int {
	score := 0
	switch d.Relationship {
	case estate.RelationshipSpouse:
		if d.RegisteredMarriage {
			score += weightSpouse
		} else {
			score += weightCohabitingSpouse
		}
	case estate.RelationshipCohabitingSpouse:
		score += weightCohabitingSpouse
	case estate.RelationshipChild:
		score += weightChild
	case estate.RelationshipParent:
		score += weightParent
	case estate.RelationshipSibling, estate.RelationshipGrandchild:
		score += weightSiblingGrand
	default:
		score += weightOtherRelation
	}

	dep, _ := d.DependencyPercentage.Fraction().Float64()
	score += int(dep * weightDependencyMax)

	if d.HasDisability {
		score += weightDisability
	}
	if d.IsMinor(asOf) {
		score += weightMinor
	} else if d.Age(asOf) >= elderlyAge {
		score += weightElderly
	}

	evidence := d.EvidenceStrength
	if evidence > 100 {
		evidence = 100
	}
	if evidence < 0 {
		evidence = 0
	}
	score += evidence * weightEvidenceMax / 100

	if score > 100 {
		score = 100
	}
	return score
}

// Urgency weights per immediate-need indicator.
var urgencyWeights = map[ImmediateNeed]int{
	NeedMedical:   40,
	NeedHousing:   30,
	NeedFood:      20,
	NeedEducation: 10,
}

// UrgencyScore sums immediate-need indicators on a 0-100 scale.
func (d Dependant) UrgencyScore() int {
	score := 0
	for _, n := range d.ImmediateNeeds {
		score += urgencyWeights[n]
	}
	if score > 100 {
		score = 100
	}
	return score
}
