package debt

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/money"
)

// Record is the storage representation of a Debt. It carries the
// dispute-restore status that the aggregate otherwise keeps private, so a
// claim reloaded mid-dispute still resolves back to its prior state.
type Record struct {
	ID           uuid.UUID          `json:"id"`
	EstateID     uuid.UUID          `json:"estateId"`
	Type         Type               `json:"type"`
	Creditor     string             `json:"creditor"`
	Description  string             `json:"description"`
	Terms        Terms              `json:"terms"`
	Tier         Tier               `json:"tier"`
	Status       Status             `json:"status"`
	Verification VerificationStatus `json:"verification"`
	Outstanding  money.Money        `json:"outstanding"`
	Claimed      money.Money        `json:"claimed"`

	KRAPin            string `json:"kraPin,omitempty"`
	TaxType           string `json:"taxType,omitempty"`
	TaxPeriod         string `json:"taxPeriod,omitempty"`
	WriteOffReason    string `json:"writeOffReason,omitempty"`
	ApprovalReference string `json:"approvalReference,omitempty"`

	IncurredAt time.Time `json:"incurredAt"`
	Dispute    *Dispute  `json:"dispute,omitempty"`

	Payments   []Payment `json:"payments,omitempty"`
	AuditNotes []string  `json:"auditNotes,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`

	StatusBeforeDispute Status `json:"statusBeforeDispute,omitempty"`
}

// Record snapshots the aggregate for persistence.
func (d *Debt) Record() Record {
	return Record{
		ID:                  d.ID,
		EstateID:            d.EstateID,
		Type:                d.Type,
		Creditor:            d.Creditor,
		Description:         d.Description,
		Terms:               d.Terms,
		Tier:                d.Tier,
		Status:              d.Status,
		Verification:        d.Verification,
		Outstanding:         d.Outstanding,
		Claimed:             d.Claimed,
		KRAPin:              d.KRAPin,
		TaxType:             d.TaxType,
		TaxPeriod:           d.TaxPeriod,
		WriteOffReason:      d.WriteOffReason,
		ApprovalReference:   d.ApprovalReference,
		IncurredAt:          d.IncurredAt,
		Dispute:             d.Dispute,
		Payments:            d.Payments,
		AuditNotes:          d.AuditNotes,
		Warnings:            d.Warnings,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		Version:             d.Version,
		StatusBeforeDispute: d.statusBeforeDispute,
	}
}

// FromRecord rehydrates an aggregate from storage.
func FromRecord(rec Record) *Debt {
	return &Debt{
		ID:                  rec.ID,
		EstateID:            rec.EstateID,
		Type:                rec.Type,
		Creditor:            rec.Creditor,
		Description:         rec.Description,
		Terms:               rec.Terms,
		Tier:                rec.Tier,
		Status:              rec.Status,
		Verification:        rec.Verification,
		Outstanding:         rec.Outstanding,
		Claimed:             rec.Claimed,
		KRAPin:              rec.KRAPin,
		TaxType:             rec.TaxType,
		TaxPeriod:           rec.TaxPeriod,
		WriteOffReason:      rec.WriteOffReason,
		ApprovalReference:   rec.ApprovalReference,
		IncurredAt:          rec.IncurredAt,
		Dispute:             rec.Dispute,
		Payments:            rec.Payments,
		AuditNotes:          rec.AuditNotes,
		Warnings:            rec.Warnings,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
		Version:             rec.Version,
		statusBeforeDispute: rec.StatusBeforeDispute,
	}
}
