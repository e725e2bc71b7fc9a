package debt

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/money"
)

// Status is the lifecycle state of a debt claim against the estate.
type Status string

const (
	StatusOutstanding   Status = "OUTSTANDING"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusSettled       Status = "SETTLED"
	StatusWrittenOff    Status = "WRITTEN_OFF"
	StatusDisputed      Status = "DISPUTED"
	StatusStatuteBarred Status = "STATUTE_BARRED"
	StatusClaimRejected Status = "CLAIM_REJECTED"
)

// VerificationStatus tracks whether the claim has been verified by the
// administrator before settlement.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING_VERIFICATION"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// DisputeOutcome is the result of resolving a disputed claim.
type DisputeOutcome string

const (
	DisputeUpheld    DisputeOutcome = "UPHELD"
	DisputeDismissed DisputeOutcome = "DISMISSED"
	DisputeSettled   DisputeOutcome = "SETTLED"
)

// Limitation periods under the Limitation of Actions Act.
const (
	LimitationYearsSecured   = 12
	LimitationYearsUnsecured = 6
)

// Payment is one entry in the append-only payment history.
type Payment struct {
	ID         uuid.UUID   `json:"id"`
	Amount     money.Money `json:"amount"`
	PaidAt     time.Time   `json:"paidAt"`
	Method     string      `json:"method"`
	Reference  string      `json:"reference"`
	Note       string      `json:"note"`
	RecordedAt time.Time   `json:"recordedAt"`
}

// Dispute records the metadata of a disputed claim.
type Dispute struct {
	Reason          string          `json:"reason"`
	RaisedBy        string          `json:"raisedBy"`
	RaisedAt        time.Time       `json:"raisedAt"`
	Outcome         *DisputeOutcome `json:"outcome,omitempty"`
	ResolvedAt      *time.Time      `json:"resolvedAt,omitempty"`
	ResolutionNotes string          `json:"resolutionNotes,omitempty"`
}

// Debt is a liability claim against the estate. It is mutated only through
// the named operations below and is never hard-deleted; terminal states are
// reached through status transitions while audit notes accumulate.
type Debt struct {
	ID           uuid.UUID
	EstateID     uuid.UUID
	Type         Type
	Creditor     string
	Description  string
	Terms        Terms
	Tier         Tier
	Status       Status
	Verification VerificationStatus
	Outstanding  money.Money
	Claimed      money.Money

	KRAPin            string
	TaxType           string
	TaxPeriod         string
	WriteOffReason    string
	ApprovalReference string

	IncurredAt time.Time
	Dispute    *Dispute

	Payments   []Payment
	AuditNotes []string
	Warnings   []string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64

	statusBeforeDispute Status
}

// CreateInput carries everything needed to register a debt claim.
type CreateInput struct {
	EstateID    uuid.UUID
	Type        Type
	Creditor    string
	Description string
	Principal   money.Money
	Claimed     *money.Money
	IncurredAt  time.Time

	InterestRate          *money.Percentage
	InterestType          InterestType
	Compounding           CompoundingFrequency
	DueDate               *time.Time
	Secured               bool
	SecurityDetails       string
	RequiresCourtApproval bool

	KRAPin    string
	TaxType   string
	TaxPeriod string
}

const (
	descriptionMinLen = 5
	descriptionMaxLen = 500
)

// New validates the input and constructs a debt claim. Validation failures
// are joined so callers see every problem at once; a missing tax period is a
// warning, not a failure.
func New(input CreateInput) (*Debt, error) {
	var verr estate.ValidationErrors

	if input.EstateID == uuid.Nil {
		verr.Add("estateId", "estate ID required")
	}
	if !input.Type.Valid() {
		verr.Addf("type", "unknown debt type %q", input.Type)
	}
	if strings.TrimSpace(input.Creditor) == "" {
		verr.Add("creditor", "creditor name required")
	}
	if l := len(strings.TrimSpace(input.Description)); l < descriptionMinLen || l > descriptionMaxLen {
		verr.Addf("description", "description must be between %d and %d characters", descriptionMinLen, descriptionMaxLen)
	}
	if !input.Principal.Amount().IsPositive() {
		verr.Add("principal", "principal must be positive")
	}
	if input.IncurredAt.IsZero() {
		verr.Add("incurredAt", "incurred date required")
	} else if input.IncurredAt.After(time.Now()) {
		verr.Add("incurredAt", "incurred date must not be in the future")
	}
	if input.InterestType == InterestSimple || input.InterestType == InterestCompound {
		if input.InterestRate == nil {
			verr.Add("interestRate", "interest rate required when interest accrues")
		}
	}

	var warnings []string
	if input.Type.IsTax() {
		if strings.TrimSpace(input.KRAPin) == "" {
			verr.Add("kraPin", "KRA PIN required for tax obligations")
		}
		if strings.TrimSpace(input.TaxType) == "" {
			verr.Add("taxType", "tax type required for tax obligations")
		}
		if strings.TrimSpace(input.TaxPeriod) == "" {
			warnings = append(warnings, "tax period not provided; verify against iTax records")
		}
	}

	secured := input.Secured || input.Type == TypeSecuredLoan || input.Type == TypeMortgage
	if secured && strings.TrimSpace(input.SecurityDetails) == "" {
		verr.Add("securityDetails", "security details required for secured debts")
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	claimed := input.Principal
	if input.Claimed != nil {
		claimed = *input.Claimed
	}

	interestType := input.InterestType
	if interestType == "" {
		interestType = InterestNone
	}

	now := time.Now()
	d := &Debt{
		ID:          uuid.New(),
		EstateID:    input.EstateID,
		Type:        input.Type,
		Creditor:    strings.TrimSpace(input.Creditor),
		Description: strings.TrimSpace(input.Description),
		Terms: Terms{
			Principal:             input.Principal,
			InterestRate:          input.InterestRate,
			InterestType:          interestType,
			Compounding:           input.Compounding,
			DueDate:               input.DueDate,
			Secured:               secured,
			RequiresCourtApproval: input.RequiresCourtApproval,
			SecurityDetails:       strings.TrimSpace(input.SecurityDetails),
		},
		Tier:         TierFor(input.Type, secured),
		Status:       StatusOutstanding,
		Verification: VerificationPending,
		Outstanding:  claimed,
		Claimed:      claimed,
		KRAPin:       strings.TrimSpace(input.KRAPin),
		TaxType:      strings.TrimSpace(input.TaxType),
		TaxPeriod:    strings.TrimSpace(input.TaxPeriod),
		IncurredAt:   input.IncurredAt,
		Warnings:     warnings,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	d.note("claim registered by creditor %s for %s", d.Creditor, claimed)
	return d, nil
}

// PriorityOrder returns the numeric settlement order derived from the tier.
func (d *Debt) PriorityOrder() int { return d.Tier.Order() }

// MaximumPayable is the most the estate will pay on this claim as of the
// given date: the lesser of the claimed amount and principal plus accrued
// interest.
func (d *Debt) MaximumPayable(asOf time.Time) (money.Money, error) {
	payable, err := d.Terms.TotalPayable(d.IncurredAt, asOf)
	if err != nil {
		return money.Money{}, err
	}
	return d.Claimed.Min(payable), nil
}

// Payable reports whether the claim can still receive payments.
func (d *Debt) Payable() bool {
	return d.Status == StatusOutstanding || d.Status == StatusPartiallyPaid
}

// PaymentInput describes a payment against the claim.
type PaymentInput struct {
	Amount    money.Money
	PaidAt    time.Time
	Method    string
	Reference string
	Note      string
}

// PaymentReceipt reports a recorded payment. Warning is non-empty when the
// payment was clamped to the remaining balance.
type PaymentReceipt struct {
	Payment Payment
	Warning string
}

// RecordPayment applies a payment to the outstanding balance. Paying a
// settled, written-off, or statute-barred claim is an invariant violation;
// overpayment is clamped to the balance with a warning.
func (d *Debt) RecordPayment(input PaymentInput) (PaymentReceipt, error) {
	switch d.Status {
	case StatusSettled, StatusWrittenOff, StatusStatuteBarred:
		return PaymentReceipt{}, estate.Invariant("cannot record payment on %s debt %s", d.Status, d.ID)
	case StatusDisputed:
		var verr estate.ValidationErrors
		verr.Add("status", "debt is under dispute; resolve the dispute before recording payments")
		return PaymentReceipt{}, verr.Err()
	case StatusClaimRejected:
		var verr estate.ValidationErrors
		verr.Add("status", "claim has been rejected and cannot receive payments")
		return PaymentReceipt{}, verr.Err()
	}

	var verr estate.ValidationErrors
	if !input.Amount.Amount().IsPositive() {
		verr.Add("amount", "payment amount must be positive")
	}
	if input.Amount.Currency() != d.Outstanding.Currency() {
		verr.Addf("amount", "payment currency %s does not match debt currency %s",
			input.Amount.Currency(), d.Outstanding.Currency())
	}
	if input.PaidAt.IsZero() {
		verr.Add("paidAt", "payment date required")
	} else if input.PaidAt.After(time.Now()) {
		verr.Add("paidAt", "payment date must not be in the future")
	}
	if err := verr.Err(); err != nil {
		return PaymentReceipt{}, err
	}

	amount := input.Amount
	var warning string
	if amount.GreaterThan(d.Outstanding) {
		warning = fmt.Sprintf("payment %s exceeds outstanding balance %s; clamped to balance",
			amount, d.Outstanding)
		amount = d.Outstanding
	}

	payment := Payment{
		ID:         uuid.New(),
		Amount:     amount,
		PaidAt:     input.PaidAt,
		Method:     input.Method,
		Reference:  input.Reference,
		Note:       input.Note,
		RecordedAt: time.Now(),
	}

	remaining, err := d.Outstanding.Sub(amount)
	if err != nil {
		return PaymentReceipt{}, err
	}
	d.Outstanding = remaining
	d.Payments = append(d.Payments, payment)
	if remaining.IsZero() {
		d.Status = StatusSettled
		d.note("final payment %s received; claim settled", amount)
	} else {
		d.Status = StatusPartiallyPaid
		d.note("payment %s received; %s outstanding", amount, remaining)
	}
	d.touch()
	return PaymentReceipt{Payment: payment, Warning: warning}, nil
}

// LimitationYears returns the applicable limitation period.
func (d *Debt) LimitationYears() int {
	if d.Terms.Secured {
		return LimitationYearsSecured
	}
	return LimitationYearsUnsecured
}

// CheckStatuteBarred marks the claim statute-barred once asOf passes the
// limitation deadline. Idempotent; settled and written-off claims are left
// untouched.
func (d *Debt) CheckStatuteBarred(asOf time.Time) bool {
	if d.Status == StatusStatuteBarred {
		return true
	}
	if d.Status == StatusSettled || d.Status == StatusWrittenOff || d.Status == StatusClaimRejected {
		return false
	}
	deadline := d.IncurredAt.AddDate(d.LimitationYears(), 0, 0)
	if !asOf.After(deadline) {
		return false
	}
	d.Status = StatusStatuteBarred
	d.note("claim statute-barred: limitation period of %d years expired on %s",
		d.LimitationYears(), deadline.Format(time.DateOnly))
	d.touch()
	return true
}

// WriteOff removes the claim from settlement. Funeral and testamentary
// expenses are a non-waivable priority class, and tax write-offs need a
// regulatory approval reference.
func (d *Debt) WriteOff(reason, approvalReference, writtenOffBy string) error {
	if d.Status == StatusSettled || d.Status == StatusWrittenOff {
		return estate.Invariant("cannot write off %s debt %s", d.Status, d.ID)
	}

	var verr estate.ValidationErrors
	if strings.TrimSpace(reason) == "" {
		verr.Add("reason", "write-off reason required")
	}
	if d.Tier == TierFuneralTestamentary {
		verr.Add("tier", "funeral and testamentary expenses cannot be written off")
	}
	if d.Type.IsTax() && strings.TrimSpace(approvalReference) == "" {
		verr.Add("approvalReference", "regulatory approval reference required to write off a tax debt")
	}
	if err := verr.Err(); err != nil {
		return err
	}

	d.Status = StatusWrittenOff
	d.WriteOffReason = strings.TrimSpace(reason)
	d.ApprovalReference = strings.TrimSpace(approvalReference)
	d.note("claim written off by %s: %s", writtenOffBy, reason)
	d.touch()
	return nil
}

// RaiseDispute moves a payable claim into DISPUTED.
func (d *Debt) RaiseDispute(reason, raisedBy string) error {
	if !d.Payable() {
		var verr estate.ValidationErrors
		verr.Addf("status", "only outstanding or partially paid debts can be disputed; debt is %s", d.Status)
		return verr.Err()
	}
	if strings.TrimSpace(reason) == "" {
		var verr estate.ValidationErrors
		verr.Add("reason", "dispute reason required")
		return verr.Err()
	}
	d.statusBeforeDispute = d.Status
	d.Status = StatusDisputed
	d.Dispute = &Dispute{
		Reason:   strings.TrimSpace(reason),
		RaisedBy: raisedBy,
		RaisedAt: time.Now(),
	}
	d.note("dispute raised by %s: %s", raisedBy, reason)
	d.touch()
	return nil
}

// ResolveDispute closes an open dispute. An upheld dispute rejects the claim
// and zeroes the balance; a dismissed one restores the prior status; a
// settled one marks the claim settled.
func (d *Debt) ResolveDispute(outcome DisputeOutcome, notes string) error {
	if d.Status != StatusDisputed || d.Dispute == nil {
		return estate.Invariant("cannot resolve dispute on %s debt %s", d.Status, d.ID)
	}

	now := time.Now()
	d.Dispute.Outcome = &outcome
	d.Dispute.ResolvedAt = &now
	d.Dispute.ResolutionNotes = notes

	switch outcome {
	case DisputeUpheld:
		d.Outstanding = money.Zero(d.Outstanding.Currency())
		d.Status = StatusClaimRejected
	case DisputeDismissed:
		restored := d.statusBeforeDispute
		if restored == "" {
			restored = StatusOutstanding
		}
		d.Status = restored
	case DisputeSettled:
		d.Outstanding = money.Zero(d.Outstanding.Currency())
		d.Status = StatusSettled
	default:
		var verr estate.ValidationErrors
		verr.Addf("outcome", "unknown dispute outcome %q", outcome)
		return verr.Err()
	}
	d.note("dispute resolved as %s: %s", outcome, notes)
	d.touch()
	return nil
}

// Verify marks the claim as verified for settlement.
func (d *Debt) Verify(verifiedBy string) error {
	if d.Verification == VerificationRejected {
		return estate.Invariant("cannot verify rejected claim %s", d.ID)
	}
	d.Verification = VerificationVerified
	d.note("claim verified by %s", verifiedBy)
	d.touch()
	return nil
}

// RejectClaim refuses the claim outright.
func (d *Debt) RejectClaim(reason string) error {
	if d.Status == StatusSettled || d.Status == StatusWrittenOff {
		return estate.Invariant("cannot reject %s debt %s", d.Status, d.ID)
	}
	if strings.TrimSpace(reason) == "" {
		var verr estate.ValidationErrors
		verr.Add("reason", "rejection reason required")
		return verr.Err()
	}
	d.Verification = VerificationRejected
	d.Status = StatusClaimRejected
	d.Outstanding = money.Zero(d.Outstanding.Currency())
	d.note("claim rejected: %s", reason)
	d.touch()
	return nil
}

// Reclassify moves the claim to a different statutory tier. Tier 1 claims
// are immutable once set.
func (d *Debt) Reclassify(tier Tier) error {
	if d.Tier == TierFuneralTestamentary {
		var verr estate.ValidationErrors
		verr.Add("tier", "funeral and testamentary tier cannot be reclassified")
		return verr.Err()
	}
	if tier < TierFuneralTestamentary || tier > TierUnsecuredGeneral {
		var verr estate.ValidationErrors
		verr.Addf("tier", "unknown tier %d", tier)
		return verr.Err()
	}
	old := d.Tier
	d.Tier = tier
	d.note("tier reclassified from %s to %s", old, tier)
	d.touch()
	return nil
}

func (d *Debt) note(format string, args ...any) {
	d.AuditNotes = append(d.AuditNotes,
		time.Now().Format(time.RFC3339)+" "+fmt.Sprintf(format, args...))
}

func (d *Debt) touch() {
	d.UpdatedAt = time.Now()
	d.Version++
}
