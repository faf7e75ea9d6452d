package guardrails

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var f = domain.Float

// demoContext is the ELEC-001 reference day: neutral inventory, KVI item.
func demoContext() domain.PricingContext {
	return domain.PricingContext{
		EntityID:        "ELEC-001",
		SegmentID:       "new",
		Date:            "2024-06-30",
		UnitCost:        50.0,
		MSRP:            f(120.0),
		MAPPrice:        f(79.99),
		YesterdayPrice:  f(99.99),
		CompetitorPrice: f(95.00),
		IsKVI:           true,
		PromoActive:     false,
		DaysOfCover:     f(10.0),
	}
}

func newTestPipeline() *Pipeline {
	return NewPipeline(domain.DefaultReasonCodes())
}

func TestPipeline_StageOrder(t *testing.T) {
	assert.Equal(t, []string{
		StagePromoLock,
		StageMarginFloor,
		StageMAPFloor,
		StageMSRPCeiling,
		StageMaxDailyChange,
		StageCompetitorCap,
		StageTrustVolatility,
	}, newTestPipeline().Stages())
}

func TestApply_MSRPThenDailyChange(t *testing.T) {
	p := policy.Default()
	pc := demoContext()

	result, err := newTestPipeline().Apply(130.00, pc, p)
	require.NoError(t, err)

	// 130 > MSRP 120 -> 120, then 120 > 99.99 × 1.10 -> clamp to the band ceiling
	expected := 99.99 * (1.0 + p.Guardrails.MaxDailyChange.DefaultPct)
	assert.Equal(t, expected, result.FinalPrice)
	assert.InDelta(t, 109.99, result.FinalPrice, 0.005)
	assert.Equal(t, []domain.ReasonCode{domain.ReasonMSRPCeiling, domain.ReasonMaxDailyChange}, result.Reasons)
}

func TestApply_PromoLock(t *testing.T) {
	pc := demoContext()
	pc.PromoActive = true
	pc.PromoPrice = f(59.99)

	for _, candidate := range []float64{200.00, 0.5, 59.99, 1e6} {
		result, err := newTestPipeline().Apply(candidate, pc, policy.Default())
		require.NoError(t, err)
		assert.Equal(t, 59.99, result.FinalPrice)
		assert.Equal(t, []domain.ReasonCode{domain.ReasonPromoLock}, result.Reasons)
	}
}

func TestApply_PromoLockDisabledIgnoresPromo(t *testing.T) {
	p := policy.Default()
	p.Guardrails.Promo.Enabled = false

	pc := demoContext()
	pc.PromoActive = true

	result, err := newTestPipeline().Apply(100.0, pc, p)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.FinalPrice)
	assert.Empty(t, result.Reasons)
}

func TestApply_PromoActiveWithoutPrice(t *testing.T) {
	pc := demoContext()
	pc.PromoActive = true
	pc.PromoPrice = nil

	_, err := newTestPipeline().Apply(100.0, pc, policy.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestApply_MarginFloorWithoutMSRP(t *testing.T) {
	p := policy.Default()
	p.Guardrails.PriceFloor.MinMarginPct = 0.20

	pc := domain.PricingContext{EntityID: "HOME-010", SegmentID: "loyal", UnitCost: 10.0}

	result, err := newTestPipeline().Apply(5.0, pc, p)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, result.FinalPrice, 1e-9)
	assert.Equal(t, []domain.ReasonCode{domain.ReasonMarginFloor}, result.Reasons)
}

func TestApply_InvalidCandidatePrice(t *testing.T) {
	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := newTestPipeline().Apply(price, demoContext(), policy.Default())
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "price %v", price)
	}
}

func TestApply_NonPositiveFinalPriceIsInvalidState(t *testing.T) {
	p := policy.Default()
	p.Guardrails.Competitor.MaxOverCompetitorPct = -1.0 // caps every KVI at zero

	_, err := newTestPipeline().Apply(100.0, demoContext(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageCompetitorCap, stageErr.Stage)
	assert.Contains(t, stageErr.Detail, "max_over_competitor_pct")
}

func TestApply_ZeroPromoPriceIsInvalidState(t *testing.T) {
	pc := demoContext()
	pc.PromoActive = true
	pc.PromoPrice = f(0)

	_, err := newTestPipeline().Apply(100.0, pc, policy.Default())

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePromoLock, stageErr.Stage)
}

func TestApply_MAPOverridesMarginFloor(t *testing.T) {
	p := policy.Default()
	pc := domain.PricingContext{UnitCost: 50.0, MAPPrice: f(79.99)}

	result, err := newTestPipeline().Apply(40.0, pc, p)
	require.NoError(t, err)
	assert.Equal(t, 79.99, result.FinalPrice)
	assert.Equal(t, []domain.ReasonCode{domain.ReasonMarginFloor, domain.ReasonMAPFloor}, result.Reasons)
}

func TestApply_CompetitorCapOnlyForKVI(t *testing.T) {
	p := policy.Default()
	p.Guardrails.MaxDailyChange.Enabled = false

	pc := demoContext()
	capped, err := newTestPipeline().Apply(119.0, pc, p)
	require.NoError(t, err)
	assert.InDelta(t, 95.0*1.2, capped.FinalPrice, 1e-9)
	assert.Equal(t, []domain.ReasonCode{domain.ReasonCompetitorCap}, capped.Reasons)

	pc.IsKVI = false
	free, err := newTestPipeline().Apply(119.0, pc, p)
	require.NoError(t, err)
	assert.Equal(t, 119.0, free.FinalPrice)
	assert.Empty(t, free.Reasons)
}

func TestApply_TrustStageIsInert(t *testing.T) {
	p := policy.Default()
	p.Guardrails.Trust.Enabled = true
	p.Guardrails.Trust.MaxWeeklyVolatilityPct = 0.01

	pc := demoContext()
	pc.RecentPrices = []float64{80, 120, 80, 120, 80, 120, 80}

	withHistory, err := newTestPipeline().Apply(101.0, pc, p)
	require.NoError(t, err)

	pc.RecentPrices = nil
	without, err := newTestPipeline().Apply(101.0, pc, p)
	require.NoError(t, err)

	assert.Equal(t, without, withHistory)
	assert.False(t, withHistory.HasReason(domain.ReasonTrustVolatility))
}

func TestApply_CustomVocabulary(t *testing.T) {
	reasons := domain.DefaultReasonCodes()
	reasons.MSRPCeiling = "CEIL"
	reasons.MaxDailyChange = "BAND"

	result, err := NewPipeline(reasons).Apply(130.0, demoContext(), policy.Default())
	require.NoError(t, err)
	assert.Equal(t, []domain.ReasonCode{"CEIL", "BAND"}, result.Reasons)
}

func TestApply_Idempotent(t *testing.T) {
	pl := newTestPipeline()
	p := policy.Default()

	for _, candidate := range []float64{30.0, 85.0, 101.0, 130.0, 500.0} {
		first, err := pl.Apply(candidate, demoContext(), p)
		require.NoError(t, err)

		second, err := pl.Apply(first.FinalPrice, demoContext(), p)
		require.NoError(t, err)

		assert.Equal(t, first.FinalPrice, second.FinalPrice, "candidate %v", candidate)
		assert.Empty(t, second.Reasons, "candidate %v", candidate)
	}
}

// randomContexts produces a deterministic spread of valid contexts.
func randomContexts(n int) []domain.PricingContext {
	rng := rand.New(rand.NewSource(42))
	maybe := func(v float64) *float64 {
		if rng.Float64() < 0.25 {
			return nil
		}
		return f(v)
	}

	out := make([]domain.PricingContext, n)
	for i := range out {
		cost := 5 + rng.Float64()*95
		out[i] = domain.PricingContext{
			EntityID:        "SKU",
			UnitCost:        cost,
			MSRP:            maybe(cost * (1.2 + rng.Float64())),
			MAPPrice:        maybe(cost * (1.0 + rng.Float64()*0.5)),
			CompetitorPrice: maybe(cost * (0.8 + rng.Float64())),
			YesterdayPrice:  maybe(cost * (0.9 + rng.Float64())),
			DaysOfCover:     maybe(rng.Float64() * 120),
			IsKVI:           rng.Float64() < 0.5,
		}
	}
	return out
}

// feasibleWindow intersects every active bound for pc. The window is empty
// (lo > hi) when the bounds conflict, for example a margin floor above MSRP.
func feasibleWindow(pc domain.PricingContext, p policy.Policy) (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	if p.Guardrails.PriceFloor.Enabled {
		lo = math.Max(lo, pc.UnitCost*(1.0+p.Guardrails.PriceFloor.MinMarginPct))
	}
	if p.MAPEnforced() && pc.MAPPrice != nil {
		lo = math.Max(lo, *pc.MAPPrice)
	}
	if p.Guardrails.PriceCeiling.Enabled && pc.MSRP != nil {
		hi = math.Min(hi, *pc.MSRP)
	}
	if band, ok := Band(pc, p); ok && p.Guardrails.MaxDailyChange.Enabled {
		lo = math.Max(lo, band.Min)
		hi = math.Min(hi, band.Max)
	}
	if cfg := p.Guardrails.Competitor; cfg.Enabled && pc.IsKVI && pc.CompetitorPrice != nil {
		hi = math.Min(hi, *pc.CompetitorPrice*(1.0+cfg.MaxOverCompetitorPct))
	}
	return lo, hi
}

func TestApply_IdempotentForConsistentBounds(t *testing.T) {
	pl := newTestPipeline()
	p := policy.Default()

	checked := 0
	for i, pc := range randomContexts(500) {
		lo, hi := feasibleWindow(pc, p)
		if lo > hi {
			continue
		}
		for _, mult := range []float64{0.3, 0.9, 1.0, 1.1, 3.0} {
			first, err := pl.Apply(pc.UnitCost*mult*1.5, pc, p)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, first.FinalPrice, lo, "context %d", i)
			assert.LessOrEqual(t, first.FinalPrice, hi, "context %d", i)

			second, err := pl.Apply(first.FinalPrice, pc, p)
			require.NoError(t, err)
			assert.Equal(t, first.FinalPrice, second.FinalPrice, "context %d mult %v", i, mult)
			assert.Empty(t, second.Reasons, "context %d mult %v", i, mult)
			checked++
		}
	}
	assert.Greater(t, checked, 100)
}

func TestFeasibleWindow_ConflictingBounds(t *testing.T) {
	pc := demoContext()
	pc.MSRP = f(40.0) // below the 57.50 margin floor

	lo, hi := feasibleWindow(pc, policy.Default())
	assert.Greater(t, lo, hi)
}

func TestApply_PositiveAndOrderedForAllValidContexts(t *testing.T) {
	pl := newTestPipeline()
	p := policy.Default()

	rank := make(map[domain.ReasonCode]int)
	for i, code := range domain.DefaultReasonCodes().Ordered() {
		rank[code] = i
	}

	for _, pc := range randomContexts(500) {
		for _, mult := range []float64{0.3, 0.9, 1.0, 1.1, 3.0} {
			candidate := pc.UnitCost * mult * 1.5
			result, err := pl.Apply(candidate, pc, p)
			require.NoError(t, err)
			assert.Greater(t, result.FinalPrice, 0.0)

			for j := 1; j < len(result.Reasons); j++ {
				assert.Less(t, rank[result.Reasons[j-1]], rank[result.Reasons[j]],
					"reasons out of stage order: %v", result.Reasons)
			}
		}
	}
}

func TestApply_MarginFloorHoldsWhenNoDownstreamStageFires(t *testing.T) {
	pl := newTestPipeline()
	p := policy.Default()
	minMargin := p.Guardrails.PriceFloor.MinMarginPct

	checked := 0
	for _, pc := range randomContexts(500) {
		for _, mult := range []float64{0.2, 0.5, 0.8, 1.0} {
			result, err := pl.Apply(pc.UnitCost*mult, pc, p)
			require.NoError(t, err)

			if result.HasReason(domain.ReasonMaxDailyChange) || result.HasReason(domain.ReasonCompetitorCap) {
				continue
			}
			checked++
			assert.GreaterOrEqual(t, result.FinalPrice, pc.UnitCost*(1.0+minMargin))
		}
	}
	assert.Greater(t, checked, 100)
}

func TestBand_InventoryAware(t *testing.T) {
	p := policy.Default()
	pc := demoContext()

	neutral, ok := Band(pc, p)
	require.True(t, ok)
	assert.Equal(t, "default", neutral.Regime)
	assert.Equal(t, neutral.UpPct, neutral.DownPct)

	pc.DaysOfCover = f(p.InventoryFlags.LowStockDaysOfCoverLT - 1)
	low, ok := Band(pc, p)
	require.True(t, ok)
	assert.Equal(t, "low_stock", low.Regime)
	assert.Less(t, low.UpPct, neutral.UpPct)
	assert.Less(t, low.DownPct, neutral.DownPct)
	assert.Less(t, low.Max, neutral.Max)
	assert.Greater(t, low.Min, neutral.Min)

	pc.DaysOfCover = f(p.InventoryFlags.OverstockDaysOfCoverGT + 1)
	over, ok := Band(pc, p)
	require.True(t, ok)
	assert.Equal(t, "overstock", over.Regime)
	assert.Equal(t, neutral.UpPct, over.UpPct)
	assert.Equal(t, neutral.Max, over.Max)
	assert.Greater(t, over.DownPct, neutral.DownPct)
	assert.Less(t, over.Min, neutral.Min)
}

func TestBand_NoYesterdayPrice(t *testing.T) {
	pc := demoContext()
	pc.YesterdayPrice = nil

	_, ok := Band(pc, policy.Default())
	assert.False(t, ok)
}

func TestMaxDailyChange_OnlyRecordsWhenClamped(t *testing.T) {
	stage := MaxDailyChange(domain.ReasonMaxDailyChange)
	p := policy.Default()
	pc := demoContext()

	tests := []struct {
		name     string
		price    float64
		expected float64
		fired    bool
	}{
		{"inside band", 100.0, 100.0, false},
		{"above band", 150.0, 99.99 * 1.10, true},
		{"below band", 50.0, 99.99 * 0.90, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := stage.Eval(tt.price, pc, p)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, out.Price, 1e-9)
			assert.Equal(t, tt.fired, out.Reason != "")
		})
	}
}

func TestMaxDailyChange_OverstockAllowsDeeperMarkdown(t *testing.T) {
	stage := MaxDailyChange(domain.ReasonMaxDailyChange)
	p := policy.Default()
	pc := demoContext()
	pc.DaysOfCover = f(90)

	out, err := stage.Eval(85.0, pc, p)
	require.NoError(t, err)
	assert.Equal(t, 85.0, out.Price)
	assert.Empty(t, out.Reason)

	out, err = stage.Eval(150.0, pc, p)
	require.NoError(t, err)
	assert.InDelta(t, 99.99*1.10, out.Price, 1e-9)
}

func TestStages_DisabledAreNoOps(t *testing.T) {
	p := policy.Default()
	p.Guardrails.PriceFloor.Enabled = false
	p.Guardrails.PriceCeiling.Enabled = false
	p.Guardrails.MaxDailyChange.Enabled = false
	p.Guardrails.Competitor.Enabled = false

	for _, price := range []float64{1.0, 130.0, 1000.0} {
		result, err := newTestPipeline().Apply(price, demoContext(), p)
		require.NoError(t, err)
		assert.Equal(t, price, result.FinalPrice)
		assert.Empty(t, result.Reasons)
	}
}
