package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/features"
	"github.com/aristath/pricer/internal/modules/pricing/guardrails"
	"github.com/aristath/pricer/internal/modules/pricing/optimizer"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	opt, err := optimizer.New(optimizer.Options{
		Oracle: optimizer.OracleFunc(func(v features.Vector) (float64, error) {
			return 100 / v[features.PriceShown], nil
		}),
		Log: zerolog.Nop(),
	})
	require.NoError(t, err)
	return NewRunner(opt, workers, zerolog.Nop())
}

func makeContexts(n int) []domain.PricingContext {
	out := make([]domain.PricingContext, n)
	for i := range out {
		out[i] = domain.PricingContext{
			EntityID:  fmt.Sprintf("SKU-%03d", i),
			SegmentID: "new",
			Date:      "2024-06-30",
			UnitCost:  10 + float64(i),
			MSRP:      domain.Float(30 + 2*float64(i)),
		}
	}
	return out
}

func TestNewRunner_DefaultWorkers(t *testing.T) {
	assert.Equal(t, DefaultWorkers, newTestRunner(t, 0).Workers())
	assert.Equal(t, 3, newTestRunner(t, 3).Workers())
}

func TestRun_PreservesInputOrder(t *testing.T) {
	contexts := makeContexts(50)

	report, err := newTestRunner(t, 4).Run(context.Background(), contexts, policy.Default())
	require.NoError(t, err)
	require.Len(t, report.Recommendations, len(contexts))

	for i, rec := range report.Recommendations {
		assert.Equal(t, contexts[i].EntityID, rec.EntityID)
	}
	assert.Equal(t, len(contexts), report.Summary.N)
	assert.Empty(t, report.Failures)
	assert.Zero(t, report.SkippedCount())
}

func TestRun_MatchesSequentialOptimize(t *testing.T) {
	contexts := makeContexts(20)
	runner := newTestRunner(t, 8)

	report, err := runner.Run(context.Background(), contexts, policy.Default())
	require.NoError(t, err)

	for i, pc := range contexts {
		out, err := runner.optimizer.Optimize(pc, policy.Default())
		require.NoError(t, err)
		assert.Equal(t, domain.NewRecommendation(pc, *out.Best), report.Recommendations[i])
	}
}

func TestRun_CountsSkipped(t *testing.T) {
	contexts := makeContexts(5)
	contexts[1].MSRP = nil
	contexts[3].MSRP = domain.Float(0)

	report, err := newTestRunner(t, 2).Run(context.Background(), contexts, policy.Default())
	require.NoError(t, err)

	assert.Len(t, report.Recommendations, 3)
	require.Equal(t, 2, report.SkippedCount())
	assert.Equal(t, "SKU-001", report.Skipped[0].EntityID)
	assert.Equal(t, optimizer.SkipNoReference, report.Skipped[0].Reason)
	assert.Equal(t, "SKU-003", report.Skipped[1].EntityID)
	assert.Equal(t, optimizer.SkipInvalidReference, report.Skipped[1].Reason)
}

func TestRun_FailuresDoNotAbortOtherContexts(t *testing.T) {
	contexts := makeContexts(6)
	contexts[2].PromoActive = true // no promo price
	contexts[4].PromoActive = true
	contexts[4].PromoPrice = domain.Float(0)

	report, err := newTestRunner(t, 3).Run(context.Background(), contexts, policy.Default())
	require.NoError(t, err)

	assert.Len(t, report.Recommendations, 4)
	require.Len(t, report.Failures, 2)

	assert.Equal(t, "SKU-002", report.Failures[0].EntityID)
	assert.True(t, errors.Is(report.Failures[0].Err(), domain.ErrInvalidState))
	assert.Empty(t, report.Failures[0].Stage)

	assert.Equal(t, "SKU-004", report.Failures[1].EntityID)
	assert.Equal(t, guardrails.StagePromoLock, report.Failures[1].Stage)
	assert.Contains(t, report.Failures[1].Error, "promo_lock")
}

func TestRun_ContractViolationIsPerContext(t *testing.T) {
	tests := []struct {
		name string
		cost float64
	}{
		{"zero cost", 0},
		{"negative cost", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contexts := makeContexts(50)
			contexts[25].UnitCost = tt.cost

			report, err := newTestRunner(t, 4).Run(context.Background(), contexts, policy.Default())
			require.NoError(t, err)

			assert.Len(t, report.Recommendations, 49)
			require.Len(t, report.Failures, 1)
			assert.Equal(t, "SKU-025", report.Failures[0].EntityID)
			assert.Equal(t, StageContext, report.Failures[0].Stage)
			assert.True(t, errors.Is(report.Failures[0].Err(), domain.ErrContractViolation))
			assert.Contains(t, report.Failures[0].Error, "unit_cost")
			assert.Equal(t, 49, report.Summary.N)
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"candidate price", fmt.Errorf("%w: candidate_price must be > 0", domain.ErrInvalidInput), true},
		{"contract violation", fmt.Errorf("%w: unit_cost must be > 0", domain.ErrContractViolation), false},
		{"stage error", &domain.StageError{Stage: guardrails.StageCompetitorCap}, false},
		{"oracle", domain.ErrOracleContract, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isFatal(tt.err))
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(t, 4).Run(ctx, makeContexts(10), policy.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_Empty(t *testing.T) {
	report, err := newTestRunner(t, 4).Run(context.Background(), nil, policy.Default())
	require.NoError(t, err)
	assert.Empty(t, report.Recommendations)
	assert.Zero(t, report.Summary.N)
	assert.Len(t, report.Summary.ReasonCounts, 7)
}
