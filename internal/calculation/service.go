// Package calculation is the application layer over the pure calculators:
// it converts wire requests into calculator snapshots, caches results, and
// keeps an audit trail of every computed outcome.
package calculation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/dependant"
	"github.com/mirathi/mirathi/internal/estate/distribution"
	"github.com/mirathi/mirathi/internal/estate/gift"
	"github.com/mirathi/mirathi/internal/estate/settlement"
	"github.com/mirathi/mirathi/internal/money"
	"github.com/mirathi/mirathi/internal/observability"
)

// Calculation kinds as they appear in cache keys, snapshots, and metrics.
const (
	KindHotchpot   = "hotchpot"
	KindDependants = "dependants"
	KindSection35  = "section35"
	KindSection40  = "section40"
	KindSettlement = "settlement"
)

// SnapshotStore persists calculation outcomes for the audit trail.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	ListByEstate(ctx context.Context, estateID uuid.UUID, kind string) ([]Snapshot, error)
}

// SettlementPort builds the settlement waterfall from live claim state.
type SettlementPort interface {
	SettlementPlan(ctx context.Context, estateID uuid.UUID, netEstateValue money.Money, asOf time.Time) (*settlement.Plan, error)
}

// Service coordinates calculator execution with caching and persistence.
type Service struct {
	cache       *Cache
	store       SnapshotStore
	settlements SettlementPort
	logger      *slog.Logger
	metrics     *observability.Metrics

	defaultInflation money.Percentage

	hotchpot   *gift.Calculator
	dependants *dependant.Calculator
	s35        *distribution.S35Calculator
	s40        *distribution.S40Calculator

	group singleflight.Group
}

// NewService wires the calculators with their cache and snapshot store.
func NewService(cache *Cache, store SnapshotStore, settlements SettlementPort, logger *slog.Logger, metrics *observability.Metrics, defaultInflation money.Percentage) *Service {
	return &Service{
		cache:            cache,
		store:            store,
		settlements:      settlements,
		logger:           logger,
		metrics:          metrics,
		defaultInflation: defaultInflation,
		hotchpot:         gift.NewCalculator(),
		dependants:       dependant.NewCalculator(),
		s35:              distribution.NewS35Calculator(),
		s40:              distribution.NewS40Calculator(),
	}
}

// run executes one calculation behind the cache and a singleflight group, so
// identical concurrent requests compute once. Results unmarshal into dest.
func (s *Service) run(ctx context.Context, kind string, estateID uuid.UUID, req, dest interface{}, compute func(context.Context) (interface{}, error)) error {
	start := time.Now()
	err := s.runCached(ctx, kind, estateID, req, dest, compute)
	s.metrics.ObserveCalculation(kind, err, time.Since(start))
	return err
}

func (s *Service) runCached(ctx context.Context, kind string, estateID uuid.UUID, req, dest interface{}, compute func(context.Context) (interface{}, error)) error {
	digest, err := requestDigest(req)
	if err != nil {
		return err
	}
	key, err := s.cache.BuildKey(ctx, "calc", kind, estateID.String(), digest)
	if err != nil {
		return err
	}

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (interface{}, error) {
			value, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			s.persistSnapshot(ctx, kind, estateID, value)
			return value, nil
		})
		return raw, err
	})

	var raw json.RawMessage
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		raw = res.Val.(json.RawMessage)
	}
	return json.Unmarshal(raw, dest)
}

// persistSnapshot records the outcome for the audit trail. Snapshot failures
// do not fail the calculation.
func (s *Service) persistSnapshot(ctx context.Context, kind string, estateID uuid.UUID, value interface{}) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("marshal calculation snapshot", slog.Any("error", err))
		return
	}
	snap := Snapshot{
		ID:           uuid.New(),
		EstateID:     estateID,
		Kind:         kind,
		Result:       raw,
		CalculatedAt: time.Now(),
	}
	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.Error("persist calculation snapshot",
			slog.String("kind", kind),
			slog.String("estate_id", estateID.String()),
			slog.Any("error", err))
	}
}

// Invalidate bumps the cache version so subsequent calculations recompute.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// History returns prior calculation snapshots for an estate, newest first.
func (s *Service) History(ctx context.Context, estateID uuid.UUID, kind string) ([]Snapshot, error) {
	return s.store.ListByEstate(ctx, estateID, kind)
}

func (s *Service) inflation(pct *float64, verr *estate.ValidationErrors) money.Percentage {
	if pct == nil {
		return s.defaultInflation
	}
	p, err := money.NewPercentageFromFloat(*pct)
	if err != nil {
		verr.Addf("inflationRatePct", "invalid rate: %v", err)
		return s.defaultInflation
	}
	return p
}

// Hotchpot runs a standalone gift aggregation under section 35(3).
func (s *Service) Hotchpot(ctx context.Context, req HotchpotRequest) (*gift.Result, error) {
	var result gift.Result
	err := s.run(ctx, KindHotchpot, req.EstateID, req, &result, func(ctx context.Context) (interface{}, error) {
		var verr estate.ValidationErrors

		netEstate, err := req.NetEstateValue.ToMoney()
		if err != nil {
			verr.Addf("netEstateValue", "invalid amount: %v", err)
		}
		threshold := money.Zero(netEstate.Currency())
		if m := optionalMoney(req.MinimumAdjustmentThreshold, "minimumAdjustmentThreshold", &verr); m != nil {
			threshold = *m
		}
		inflation := s.inflation(req.InflationRatePct, &verr)
		if err := verr.Err(); err != nil {
			return nil, err
		}

		gifts, exempted, err := toGifts(req.Gifts)
		if err != nil {
			return nil, err
		}

		beneficiaries := make([]estate.Beneficiary, 0, len(req.Beneficiaries))
		for _, b := range req.Beneficiaries {
			beneficiaries = append(beneficiaries, b.toBeneficiary(estate.RelationshipChild))
		}

		return s.hotchpot.Calculate(gift.Input{
			NetEstateValue:             netEstate,
			DateOfDeath:                req.DateOfDeath,
			Beneficiaries:              beneficiaries,
			Gifts:                      gifts,
			InflationRate:              inflation,
			Method:                     gift.AdjustmentMethod(req.Method),
			MinimumAdjustmentThreshold: threshold,
			ExemptedGiftIDs:            exempted,
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Dependants runs a section 29 dependency assessment.
func (s *Service) Dependants(ctx context.Context, req DependantsRequest) (*dependant.Calculation, error) {
	var result dependant.Calculation
	err := s.run(ctx, KindDependants, req.EstateID, req, &result, func(ctx context.Context) (interface{}, error) {
		var verr estate.ValidationErrors

		netEstate, err := req.NetEstateValue.ToMoney()
		if err != nil {
			verr.Addf("netEstateValue", "invalid amount: %v", err)
		}
		currency := netEstate.Currency()

		totalDebts := money.Zero(currency)
		if m := optionalMoney(req.TotalDebts, "totalDebts", &verr); m != nil {
			totalDebts = *m
		}
		funeral := money.Zero(currency)
		if m := optionalMoney(req.FuneralExpenses, "funeralExpenses", &verr); m != nil {
			funeral = *m
		}

		minPct := money.Percentage{}
		if p := optionalPercentage(req.MinimumProvisionPct, "minimumProvisionPct", &verr); p != nil {
			minPct = *p
		}
		maxPct := money.Percentage{}
		if p := optionalPercentage(req.MaximumProvisionPct, "maximumProvisionPct", &verr); p != nil {
			maxPct = *p
		}
		if err := verr.Err(); err != nil {
			return nil, err
		}

		dependants, err := toDependants(req.Dependants, currency)
		if err != nil {
			return nil, err
		}

		asOf := time.Time{}
		if req.AsOf != nil {
			asOf = *req.AsOf
		}
		return s.dependants.Calculate(dependant.Input{
			NetEstateValue:      netEstate,
			TotalDebts:          totalDebts,
			FuneralExpenses:     funeral,
			Dependants:          dependants,
			MinimumProvisionPct: minPct,
			MaximumProvisionPct: maxPct,
			AsOf:                asOf,
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Section35 distributes a monogamous intestate estate.
func (s *Service) Section35(ctx context.Context, req Section35Request) (*distribution.S35Result, error) {
	var result distribution.S35Result
	err := s.run(ctx, KindSection35, req.EstateID, req, &result, func(ctx context.Context) (interface{}, error) {
		var verr estate.ValidationErrors

		netEstate, err := req.NetEstateValue.ToMoney()
		if err != nil {
			verr.Addf("netEstateValue", "invalid amount: %v", err)
		}
		chattels := money.Zero(netEstate.Currency())
		if m := optionalMoney(req.PersonalChattelsValue, "personalChattelsValue", &verr); m != nil {
			chattels = *m
		}
		home := optionalMoney(req.MatrimonialHomeValue, "matrimonialHomeValue", &verr)
		spouseFraction := optionalPercentage(req.SpouseResidueFractionPct, "spouseResidueFractionPct", &verr)
		inflation := s.inflation(req.InflationRatePct, &verr)
		if err := verr.Err(); err != nil {
			return nil, err
		}

		gifts, _, err := toGifts(req.Gifts)
		if err != nil {
			return nil, err
		}

		input := distribution.S35Input{
			NetEstateValue:        netEstate,
			PersonalChattelsValue: chattels,
			DateOfDeath:           req.DateOfDeath,
			Children:              toChildren(req.Children),
			LifetimeGifts:         gifts,
			InflationRate:         inflation,
			AdjustmentMethod:      gift.AdjustmentMethod(req.AdjustmentMethod),
			SpouseResidueFraction: spouseFraction,
			MatrimonialHomeValue:  home,
		}
		if req.Spouse != nil {
			spouse := req.Spouse.toBeneficiary(estate.RelationshipSpouse)
			input.Spouse = &spouse
		}
		return s.s35.Calculate(input)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Section40 distributes a polygamous intestate estate house by house.
func (s *Service) Section40(ctx context.Context, req Section40Request) (*distribution.S40Result, error) {
	var result distribution.S40Result
	err := s.run(ctx, KindSection40, req.EstateID, req, &result, func(ctx context.Context) (interface{}, error) {
		var verr estate.ValidationErrors

		netEstate, err := req.NetEstateValue.ToMoney()
		if err != nil {
			verr.Addf("netEstateValue", "invalid amount: %v", err)
		}
		inflation := s.inflation(req.InflationRatePct, &verr)
		if err := verr.Err(); err != nil {
			return nil, err
		}

		houses, err := toHouses(req.Houses)
		if err != nil {
			return nil, err
		}
		gifts, _, err := toGifts(req.Gifts)
		if err != nil {
			return nil, err
		}

		return s.s40.Calculate(distribution.S40Input{
			NetEstateValue:   netEstate,
			DateOfDeath:      req.DateOfDeath,
			Houses:           houses,
			LifetimeGifts:    gifts,
			InflationRate:    inflation,
			AdjustmentMethod: gift.AdjustmentMethod(req.AdjustmentMethod),
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Settlement builds the debt waterfall. Plans read live claim state, so they
// bypass the cache; every run is persisted to the audit trail.
func (s *Service) Settlement(ctx context.Context, req SettlementRequest) (*settlement.Plan, error) {
	start := time.Now()
	plan, err := s.settlement(ctx, req)
	s.metrics.ObserveCalculation(KindSettlement, err, time.Since(start))
	return plan, err
}

func (s *Service) settlement(ctx context.Context, req SettlementRequest) (*settlement.Plan, error) {
	netEstate, err := req.NetEstateValue.ToMoney()
	if err != nil {
		var verr estate.ValidationErrors
		verr.Addf("netEstateValue", "invalid amount: %v", err)
		return nil, verr.Err()
	}
	asOf := time.Now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	plan, err := s.settlements.SettlementPlan(ctx, req.EstateID, netEstate, asOf)
	if err != nil {
		return nil, err
	}
	s.persistSnapshot(ctx, KindSettlement, req.EstateID, plan)
	return plan, nil
}
