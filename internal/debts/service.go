// Package debts is the application layer over the debt aggregate: it loads
// claims from storage, applies the aggregate operations, and persists the
// result with optimistic concurrency.
package debts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/estate/debt"
	"github.com/mirathi/mirathi/internal/estate/settlement"
	"github.com/mirathi/mirathi/internal/money"
)

// RepositoryPort defines data access for debt claims.
type RepositoryPort interface {
	Create(ctx context.Context, d *debt.Debt) error
	Get(ctx context.Context, id uuid.UUID) (*debt.Debt, error)
	// Update persists the aggregate, matching on the version it was loaded
	// at; a stale version yields httpx.ErrVersionConflict.
	Update(ctx context.Context, d *debt.Debt, loadedVersion int64) error
	ListByEstate(ctx context.Context, estateID uuid.UUID) ([]*debt.Debt, error)
	ListPayable(ctx context.Context) ([]*debt.Debt, error)
}

// Service handles debt business logic.
type Service struct {
	repo    RepositoryPort
	logger  *slog.Logger
	planner *settlement.Planner
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, planner: settlement.NewPlanner()}
}

// Register validates and stores a new debt claim.
func (s *Service) Register(ctx context.Context, input debt.CreateInput) (*debt.Debt, error) {
	d, err := debt.New(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("debt registered",
		slog.String("debt_id", d.ID.String()),
		slog.String("estate_id", d.EstateID.String()),
		slog.String("tier", d.Tier.String()))
	return d, nil
}

// Get loads one claim.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*debt.Debt, error) {
	return s.repo.Get(ctx, id)
}

// ListByEstate returns all claims lodged against an estate.
func (s *Service) ListByEstate(ctx context.Context, estateID uuid.UUID) ([]*debt.Debt, error) {
	return s.repo.ListByEstate(ctx, estateID)
}

// mutate loads, applies, and persists a claim under optimistic concurrency.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, apply func(*debt.Debt) error) (*debt.Debt, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	loaded := d.Version
	if err := apply(d); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d, loaded); err != nil {
		return nil, err
	}
	return d, nil
}

// RecordPayment applies a payment to a claim.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, input debt.PaymentInput) (*debt.Debt, debt.PaymentReceipt, error) {
	var receipt debt.PaymentReceipt
	d, err := s.mutate(ctx, id, func(d *debt.Debt) error {
		var err error
		receipt, err = d.RecordPayment(input)
		return err
	})
	if err != nil {
		return nil, debt.PaymentReceipt{}, err
	}
	if receipt.Warning != "" {
		s.logger.Warn("payment clamped",
			slog.String("debt_id", id.String()), slog.String("warning", receipt.Warning))
	}
	return d, receipt, nil
}

// Verify marks a claim verified for settlement.
func (s *Service) Verify(ctx context.Context, id uuid.UUID, verifiedBy string) (*debt.Debt, error) {
	return s.mutate(ctx, id, func(d *debt.Debt) error {
		return d.Verify(verifiedBy)
	})
}

// WriteOff removes a claim from settlement.
func (s *Service) WriteOff(ctx context.Context, id uuid.UUID, reason, approvalReference, writtenOffBy string) (*debt.Debt, error) {
	return s.mutate(ctx, id, func(d *debt.Debt) error {
		return d.WriteOff(reason, approvalReference, writtenOffBy)
	})
}

// RaiseDispute opens a dispute on a payable claim.
func (s *Service) RaiseDispute(ctx context.Context, id uuid.UUID, reason, raisedBy string) (*debt.Debt, error) {
	return s.mutate(ctx, id, func(d *debt.Debt) error {
		return d.RaiseDispute(reason, raisedBy)
	})
}

// ResolveDispute closes an open dispute.
func (s *Service) ResolveDispute(ctx context.Context, id uuid.UUID, outcome debt.DisputeOutcome, notes string) (*debt.Debt, error) {
	return s.mutate(ctx, id, func(d *debt.Debt) error {
		return d.ResolveDispute(outcome, notes)
	})
}

// RejectClaim refuses a claim outright.
func (s *Service) RejectClaim(ctx context.Context, id uuid.UUID, reason string) (*debt.Debt, error) {
	return s.mutate(ctx, id, func(d *debt.Debt) error {
		return d.RejectClaim(reason)
	})
}

// Reclassify moves a claim to a different statutory tier.
func (s *Service) Reclassify(ctx context.Context, id uuid.UUID, tier debt.Tier) (*debt.Debt, error) {
	return s.mutate(ctx, id, func(d *debt.Debt) error {
		return d.Reclassify(tier)
	})
}

// SettlementPlan builds the priority waterfall for an estate's claims.
func (s *Service) SettlementPlan(ctx context.Context, estateID uuid.UUID, netEstateValue money.Money, asOf time.Time) (*settlement.Plan, error) {
	claims, err := s.repo.ListByEstate(ctx, estateID)
	if err != nil {
		return nil, err
	}
	return s.planner.Build(netEstateValue, claims, asOf)
}

// SweepStatuteBarred flips every payable claim whose limitation period has
// run. It returns the number of claims barred; persistence failures on one
// claim do not stop the sweep.
func (s *Service) SweepStatuteBarred(ctx context.Context, asOf time.Time) (int, error) {
	claims, err := s.repo.ListPayable(ctx)
	if err != nil {
		return 0, err
	}

	barred := 0
	for _, d := range claims {
		loaded := d.Version
		if !d.CheckStatuteBarred(asOf) {
			continue
		}
		if err := s.repo.Update(ctx, d, loaded); err != nil {
			s.logger.Error("persist statute-barred claim",
				slog.String("debt_id", d.ID.String()), slog.Any("error", err))
			continue
		}
		barred++
		s.logger.Info("claim statute-barred",
			slog.String("debt_id", d.ID.String()),
			slog.String("creditor", d.Creditor))
	}
	return barred, nil
}
