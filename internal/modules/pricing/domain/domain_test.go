package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingContext_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cost    float64
		wantErr bool
	}{
		{"positive cost", 12.5, false},
		{"zero cost", 0, true},
		{"negative cost", -3, true},
		{"nan cost", math.NaN(), true},
		{"infinite cost", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := PricingContext{EntityID: "SKU-1", SegmentID: "new", Date: "2024-06-30", UnitCost: tt.cost}
			err := pc.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrContractViolation))
				assert.True(t, errors.Is(err, ErrInvalidInput))
				assert.Contains(t, err.Error(), "SKU-1/new/2024-06-30")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReasons_JoinSplit(t *testing.T) {
	reasons := []ReasonCode{ReasonMSRPCeiling, ReasonMaxDailyChange}
	joined := JoinReasons(reasons)

	assert.Equal(t, "MSRP_CEILING_APPLIED,MAX_DAILY_CHANGE_CLAMPED", joined)
	assert.Equal(t, reasons, SplitReasons(joined))
	assert.Empty(t, SplitReasons(""))
	assert.Equal(t, "", JoinReasons(nil))
}

func TestReasonCodes_Ordered(t *testing.T) {
	ordered := DefaultReasonCodes().Ordered()
	require.Len(t, ordered, 7)
	assert.Equal(t, ReasonPromoLock, ordered[0])
	assert.Equal(t, ReasonTrustVolatility, ordered[6])
}

func TestStageError_MatchesInvalidState(t *testing.T) {
	var err error = &StageError{Stage: "competitor_cap", Price: 0, Detail: "cap=0.0000"}
	wrapped := fmt.Errorf("context SKU-1: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidState))
	assert.False(t, errors.Is(wrapped, ErrInvalidInput))
	assert.Contains(t, err.Error(), "competitor_cap")
	assert.True(t, errors.Is(ErrOracleContract, ErrInvalidState))
}

func TestNewRecommendation_CopiesReasons(t *testing.T) {
	pc := PricingContext{EntityID: "ELEC-001", SegmentID: "new", Date: "2024-06-30", UnitCost: 50}
	best := Candidate{
		Index:          2,
		Multiplier:     1.0,
		RawPrice:       120,
		Result:         RuleResult{FinalPrice: 109.99, Reasons: []ReasonCode{ReasonMaxDailyChange}},
		ExpectedUnits:  3,
		ExpectedProfit: 179.97,
	}

	rec := NewRecommendation(pc, best)
	best.Result.Reasons[0] = ReasonPromoLock

	assert.Equal(t, "ELEC-001", rec.EntityID)
	assert.Equal(t, 109.99, rec.Price)
	assert.Equal(t, []ReasonCode{ReasonMaxDailyChange}, rec.Reasons)
}
