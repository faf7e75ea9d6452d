// Package guardrails converts a raw candidate price into a final, auditable
// price by folding an ordered list of constraint stages.
//
// Stage order is part of the contract: a price violating two constraints is
// resolved by whichever is evaluated last.
package guardrails

import (
	"fmt"
	"math"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
)

// Pipeline applies guardrail stages in fixed order. It holds no mutable
// state and is safe for concurrent use.
type Pipeline struct {
	stages []Stage
}

// NewPipeline builds the standard seven-stage pipeline emitting the given
// reason vocabulary.
func NewPipeline(reasons domain.ReasonCodes) *Pipeline {
	return &Pipeline{
		stages: []Stage{
			PromoLock(reasons.PromoLock),
			MarginFloor(reasons.MarginFloor),
			MAPFloor(reasons.MAPFloor),
			MSRPCeiling(reasons.MSRPCeiling),
			MaxDailyChange(reasons.MaxDailyChange),
			CompetitorCap(reasons.CompetitorCap),
			TrustVolatility(reasons.TrustVolatility),
		},
	}
}

// Stages returns the stage names in evaluation order.
func (pl *Pipeline) Stages() []string {
	names := make([]string, len(pl.stages))
	for i, s := range pl.stages {
		names[i] = s.Name
	}
	return names
}

// Apply runs candidatePrice through every stage and returns the final price
// with the reasons in stage order.
func (pl *Pipeline) Apply(candidatePrice float64, pc domain.PricingContext, p policy.Policy) (domain.RuleResult, error) {
	if !(candidatePrice > 0) || math.IsInf(candidatePrice, 1) {
		return domain.RuleResult{}, fmt.Errorf("%w: candidate_price must be > 0 (got %v)", domain.ErrInvalidInput, candidatePrice)
	}

	price := candidatePrice
	reasons := make([]domain.ReasonCode, 0, 2)
	lastStage, lastDetail := "input", ""

	for _, stage := range pl.stages {
		out, err := stage.Eval(price, pc, p)
		if err != nil {
			return domain.RuleResult{}, fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		if out.Price != price || out.Reason != "" {
			lastStage, lastDetail = stage.Name, out.Detail
		}
		price = out.Price
		if out.Reason != "" {
			reasons = append(reasons, out.Reason)
		}
		if out.Halt {
			break
		}
	}

	if !(price > 0) || math.IsInf(price, 0) {
		return domain.RuleResult{}, &domain.StageError{
			Stage:  lastStage,
			Price:  price,
			Detail: lastDetail,
		}
	}

	return domain.RuleResult{FinalPrice: price, Reasons: reasons}, nil
}
