// Package optimizer selects the profit-maximizing guardrailed price from a
// discrete set of candidate multipliers.
package optimizer

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/features"
	"github.com/aristath/pricer/internal/modules/pricing/guardrails"
	"github.com/aristath/pricer/internal/modules/pricing/objective"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/rs/zerolog"
)

// DefaultMultipliers is the standard discrete action space.
var DefaultMultipliers = []float64{0.90, 0.95, 1.00, 1.05, 1.10}

// Skip reasons
const (
	SkipNoReference      = "no_reference_price"
	SkipInvalidReference = "invalid_reference_price"
)

// Options configures an Optimizer. Zero values fall back to defaults except
// Oracle, which is required.
type Options struct {
	Multipliers []float64
	Reference   ReferenceSelector
	Projector   features.Projector
	Oracle      DemandOracle
	Pipeline    *guardrails.Pipeline
	Log         zerolog.Logger
}

// Outcome is the result of optimizing one context. Best is nil when the
// context was skipped.
type Outcome struct {
	Best       *domain.Candidate  `json:"best,omitempty"`
	Candidates []domain.Candidate `json:"candidates"`
	Skipped    bool               `json:"skipped"`
	SkipReason string             `json:"skip_reason,omitempty"`
}

// Optimizer scores every candidate multiplier for a context. It holds no
// mutable state and is safe for concurrent use.
type Optimizer struct {
	multipliers []float64
	reference   ReferenceSelector
	projector   features.Projector
	oracle      DemandOracle
	pipeline    *guardrails.Pipeline
	log         zerolog.Logger
}

// New validates opts and builds an Optimizer.
func New(opts Options) (*Optimizer, error) {
	if opts.Oracle == nil {
		return nil, errors.New("optimizer: demand oracle is required")
	}

	multipliers := opts.Multipliers
	if len(multipliers) == 0 {
		multipliers = DefaultMultipliers
	}
	for i, m := range multipliers {
		if !(m > 0) || math.IsInf(m, 1) {
			return nil, fmt.Errorf("%w: multiplier[%d] must be > 0 (got %v)", domain.ErrInvalidInput, i, m)
		}
	}

	o := &Optimizer{
		multipliers: append([]float64(nil), multipliers...),
		reference:   opts.Reference,
		projector:   opts.Projector,
		oracle:      opts.Oracle,
		pipeline:    opts.Pipeline,
		log:         opts.Log.With().Str("component", "optimizer").Logger(),
	}
	if o.reference == nil {
		o.reference = MSRPReference()
	}
	if o.projector == nil {
		o.projector = features.NewPriceProjector()
	}
	if o.pipeline == nil {
		o.pipeline = guardrails.NewPipeline(domain.DefaultReasonCodes())
	}
	return o, nil
}

// Multipliers returns a copy of the candidate multipliers in evaluation order.
func (o *Optimizer) Multipliers() []float64 {
	return append([]float64(nil), o.multipliers...)
}

// ReferenceName is the name of the configured reference price.
func (o *Optimizer) ReferenceName() string {
	return o.reference.Name()
}

// Pipeline returns the guardrail pipeline candidates are run through.
func (o *Optimizer) Pipeline() *guardrails.Pipeline {
	return o.pipeline
}

// Optimize evaluates every multiplier against the reference price and returns
// the candidate with the highest expected profit. Ties keep the lowest index.
//
// A context without a positive reference price is skipped, which is not an
// error. Guardrail and oracle failures are returned as errors.
func (o *Optimizer) Optimize(pc domain.PricingContext, p policy.Policy) (Outcome, error) {
	if err := pc.Validate(); err != nil {
		return Outcome{}, err
	}

	ref := o.reference.Reference(pc)
	if ref == nil {
		return Outcome{Skipped: true, SkipReason: SkipNoReference}, nil
	}
	if !(*ref > 0) || math.IsInf(*ref, 1) {
		return Outcome{Skipped: true, SkipReason: SkipInvalidReference}, nil
	}

	candidates := make([]domain.Candidate, 0, len(o.multipliers))
	best := -1

	for i, m := range o.multipliers {
		raw := *ref * m

		result, err := o.pipeline.Apply(raw, pc, p)
		if err != nil {
			return Outcome{}, fmt.Errorf("optimize %s multiplier %.2f: %w", pc.Key(), m, err)
		}

		units, err := o.oracle.Predict(o.projector.Project(pc, result.FinalPrice))
		if err != nil {
			return Outcome{}, fmt.Errorf("optimize %s multiplier %.2f: predict: %w", pc.Key(), m, err)
		}
		if err := checkUnits(units); err != nil {
			return Outcome{}, fmt.Errorf("optimize %s multiplier %.2f: %w", pc.Key(), m, err)
		}

		candidates = append(candidates, domain.Candidate{
			Index:          i,
			Multiplier:     m,
			RawPrice:       raw,
			Result:         result,
			ExpectedUnits:  units,
			ExpectedProfit: objective.ExpectedProfit(result.FinalPrice, pc.UnitCost, units),
		})

		if best < 0 || candidates[i].ExpectedProfit > candidates[best].ExpectedProfit {
			best = i
		}
	}

	winner := candidates[best]
	o.log.Debug().
		Str("context", pc.Key()).
		Int("candidate", winner.Index).
		Float64("price", winner.Result.FinalPrice).
		Float64("expected_profit", winner.ExpectedProfit).
		Msg("Selected candidate")

	return Outcome{Best: &winner, Candidates: candidates}, nil
}
