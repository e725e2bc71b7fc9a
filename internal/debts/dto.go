package debts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/debt"
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

// RegisterDebtRequest creates a new claim.
type RegisterDebtRequest struct {
	EstateID    uuid.UUID `json:"estateId" validate:"required"`
	Type        string    `json:"type" validate:"required"`
	Creditor    string    `json:"creditor" validate:"required"`
	Description string    `json:"description" validate:"required,min=5,max=500"`
	Principal   MoneyDTO  `json:"principal" validate:"required"`
	Claimed     *MoneyDTO `json:"claimed,omitempty"`
	IncurredAt  time.Time `json:"incurredAt" validate:"required"`

	InterestRatePct       *float64   `json:"interestRatePct,omitempty"`
	InterestType          string     `json:"interestType,omitempty"`
	Compounding           string     `json:"compounding,omitempty"`
	DueDate               *time.Time `json:"dueDate,omitempty"`
	Secured               bool       `json:"secured,omitempty"`
	SecurityDetails       string     `json:"securityDetails,omitempty"`
	RequiresCourtApproval bool       `json:"requiresCourtApproval,omitempty"`

	KRAPin    string `json:"kraPin,omitempty"`
	TaxType   string `json:"taxType,omitempty"`
	TaxPeriod string `json:"taxPeriod,omitempty"`
}

// ToInput converts the wire request into aggregate factory input.
func (r RegisterDebtRequest) ToInput() (debt.CreateInput, error) {
	var verr estate.ValidationErrors

	principal, err := r.Principal.ToMoney()
	if err != nil {
		verr.Addf("principal", "invalid amount: %v", err)
	}
	var claimed *money.Money
	if r.Claimed != nil {
		c, err := r.Claimed.ToMoney()
		if err != nil {
			verr.Addf("claimed", "invalid amount: %v", err)
		} else {
			claimed = &c
		}
	}
	var rate *money.Percentage
	if r.InterestRatePct != nil {
		p, err := money.NewPercentageFromFloat(*r.InterestRatePct)
		if err != nil {
			verr.Addf("interestRatePct", "invalid rate: %v", err)
		} else {
			rate = &p
		}
	}
	if err := verr.Err(); err != nil {
		return debt.CreateInput{}, err
	}

	return debt.CreateInput{
		EstateID:              r.EstateID,
		Type:                  debt.Type(r.Type),
		Creditor:              r.Creditor,
		Description:           r.Description,
		Principal:             principal,
		Claimed:               claimed,
		IncurredAt:            r.IncurredAt,
		InterestRate:          rate,
		InterestType:          debt.InterestType(r.InterestType),
		Compounding:           debt.CompoundingFrequency(r.Compounding),
		DueDate:               r.DueDate,
		Secured:               r.Secured,
		SecurityDetails:       r.SecurityDetails,
		RequiresCourtApproval: r.RequiresCourtApproval,
		KRAPin:                r.KRAPin,
		TaxType:               r.TaxType,
		TaxPeriod:             r.TaxPeriod,
	}, nil
}

// RecordPaymentRequest applies a payment to a claim.
type RecordPaymentRequest struct {
	Amount    MoneyDTO  `json:"amount" validate:"required"`
	PaidAt    time.Time `json:"paidAt" validate:"required"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// WriteOffRequest removes a claim from settlement.
type WriteOffRequest struct {
	Reason            string `json:"reason" validate:"required"`
	ApprovalReference string `json:"approvalReference,omitempty"`
	WrittenOffBy      string `json:"writtenOffBy" validate:"required"`
}

// DisputeRequest opens a dispute.
type DisputeRequest struct {
	Reason   string `json:"reason" validate:"required"`
	RaisedBy string `json:"raisedBy" validate:"required"`
}

// ResolveDisputeRequest closes an open dispute.
type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=UPHELD DISMISSED SETTLED"`
	Notes   string `json:"notes,omitempty"`
}

// VerifyRequest marks a claim verified.
type VerifyRequest struct {
	VerifiedBy string `json:"verifiedBy" validate:"required"`
}

// RejectRequest refuses a claim.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ReclassifyRequest moves a claim to another tier.
type ReclassifyRequest struct {
	Tier int `json:"tier" validate:"required,min=1,max=4"`
}

// DebtResponse is the wire form of a claim.
type DebtResponse struct {
	debt.Record
	PriorityOrder    int    `json:"priorityOrder"`
	TierName         string `json:"tierName"`
	MandatoryPayment bool   `json:"mandatoryPayment"`
}

// NewDebtResponse builds the response for one claim.
func NewDebtResponse(d *debt.Debt) DebtResponse {
	return DebtResponse{
		Record:           d.Record(),
		PriorityOrder:    d.PriorityOrder(),
		TierName:         d.Tier.String(),
		MandatoryPayment: d.Tier.MandatoryPayment(),
	}
}
