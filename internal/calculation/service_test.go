package calculation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mirathi/mirathi/internal/estate/settlement"
	"github.com/mirathi/mirathi/internal/money"
)

type memStore struct {
	snaps []Snapshot
	saves int
}

func (m *memStore) Save(ctx context.Context, snap Snapshot) error {
	m.saves++
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *memStore) ListByEstate(ctx context.Context, estateID uuid.UUID, kind string) ([]Snapshot, error) {
	var out []Snapshot
	for _, s := range m.snaps {
		if s.EstateID == estateID && (kind == "" || s.Kind == kind) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeSettlements struct {
	calls int
	plan  *settlement.Plan
}

func (f *fakeSettlements) SettlementPlan(ctx context.Context, estateID uuid.UUID, netEstateValue money.Money, asOf time.Time) (*settlement.Plan, error) {
	f.calls++
	return f.plan, nil
}

func newTestService(t *testing.T) (*Service, *memStore, *fakeSettlements) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &memStore{}
	settlements := &fakeSettlements{plan: &settlement.Plan{PlanID: uuid.New()}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(NewCache(client, time.Minute), store, settlements, logger, nil, money.MustPercentage(5))
	return svc, store, settlements
}

func kesDTO(amount int64) MoneyDTO {
	return MoneyDTO{Amount: decimal.NewFromInt(amount), Currency: "KES"}
}

func mustKES(t *testing.T, amount float64) money.Money {
	t.Helper()
	m, err := money.NewFromFloat(amount, money.KES)
	require.NoError(t, err)
	return m
}

func TestSection35CachesIdenticalRequests(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	chattels := kesDTO(100000)
	req := Section35Request{
		EstateID:              uuid.New(),
		NetEstateValue:        kesDTO(900000),
		PersonalChattelsValue: &chattels,
		DateOfDeath:           time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Spouse:                &BeneficiaryDTO{ID: uuid.New(), Name: "Wanjiku"},
		Children: []BeneficiaryDTO{
			{ID: uuid.New(), Name: "Njeri"},
			{ID: uuid.New(), Name: "Kamau"},
		},
	}

	first, err := svc.Section35(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "SPOUSE_AND_CHILDREN", string(first.Rule))
	require.True(t, first.SpouseShare.Total.Equal(mustKES(t, 366640)))
	require.Equal(t, 1, store.saves)

	second, err := svc.Section35(ctx, req)
	require.NoError(t, err)
	require.Equal(t, first.CalculationID, second.CalculationID)
	require.Equal(t, 1, store.saves)

	require.NoError(t, svc.Invalidate(ctx))
	third, err := svc.Section35(ctx, req)
	require.NoError(t, err)
	require.NotEqual(t, first.CalculationID, third.CalculationID)
	require.Equal(t, 2, store.saves)
}

func TestHotchpotAppliesDefaultInflation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	beneficiaryID := uuid.New()
	result, err := svc.Hotchpot(ctx, HotchpotRequest{
		EstateID:       uuid.New(),
		NetEstateValue: kesDTO(1000000),
		DateOfDeath:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Beneficiaries:  []BeneficiaryDTO{{ID: beneficiaryID, Name: "Otieno"}},
		Gifts: []GiftDTO{{
			BeneficiaryID:   beneficiaryID,
			Description:     "plot transfer in Kisumu",
			Value:           kesDTO(100000),
			GiftDate:        time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
			Advancement:     true,
			HotchpotSubject: true,
		}},
	})
	require.NoError(t, err)

	// 100,000 grown at the default 5% over two calendar years.
	require.True(t, result.AdjustmentFor(beneficiaryID).Equal(mustKES(t, 110250)))
	require.True(t, result.TotalAdjustments.Equal(mustKES(t, 110250)))
}

func TestHotchpotExemptedGiftSkipped(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	beneficiaryID := uuid.New()
	result, err := svc.Hotchpot(ctx, HotchpotRequest{
		EstateID:       uuid.New(),
		NetEstateValue: kesDTO(1000000),
		DateOfDeath:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Beneficiaries:  []BeneficiaryDTO{{ID: beneficiaryID, Name: "Otieno"}},
		Gifts: []GiftDTO{{
			BeneficiaryID:   beneficiaryID,
			Description:     "plot transfer in Kisumu",
			Value:           kesDTO(100000),
			GiftDate:        time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
			Advancement:     true,
			HotchpotSubject: true,
			Exempted:        true,
		}},
	})
	require.NoError(t, err)
	require.True(t, result.AdjustmentFor(beneficiaryID).IsZero())
}

func TestDependantsAssessesMinor(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Dependants(ctx, DependantsRequest{
		EstateID:       uuid.New(),
		NetEstateValue: kesDTO(2000000),
		Dependants: []DependantDTO{{
			ID:                    uuid.New(),
			Name:                  "Akinyi",
			Relationship:          "CHILD",
			DateOfBirth:           time.Date(2015, 4, 10, 0, 0, 0, 0, time.UTC),
			DependencyPct:         100,
			MonthlyLivingExpenses: kesDTO(15000),
			EvidenceStrength:      80,
		}},
		AsOf: &asOf,
	})
	require.NoError(t, err)
	require.Len(t, result.Assessments, 1)

	a := result.Assessments[0]
	require.True(t, a.AssessedNeed.Amount().IsPositive())
	require.True(t, a.RequiresCourtApproval)
	require.Contains(t, a.ApprovalReasons, "dependant is a minor")
}

func TestSettlementBypassesCache(t *testing.T) {
	svc, store, settlements := newTestService(t)
	ctx := context.Background()

	req := SettlementRequest{EstateID: uuid.New(), NetEstateValue: kesDTO(500000)}
	_, err := svc.Settlement(ctx, req)
	require.NoError(t, err)
	_, err = svc.Settlement(ctx, req)
	require.NoError(t, err)

	require.Equal(t, 2, settlements.calls)
	require.Equal(t, 2, store.saves)
}

func TestHistoryFiltersByKind(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	estateID := uuid.New()
	_, err := svc.Settlement(ctx, SettlementRequest{EstateID: estateID, NetEstateValue: kesDTO(500000)})
	require.NoError(t, err)

	snaps, err := svc.History(ctx, estateID, KindSettlement)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	snaps, err = svc.History(ctx, estateID, KindSection40)
	require.NoError(t, err)
	require.Empty(t, snaps)
}
