package domain

import "strings"

// RuleResult is the output of one guardrail evaluation: the final price and
// the reason codes in the order the stages fired.
type RuleResult struct {
	FinalPrice float64      `json:"final_price"`
	Reasons    []ReasonCode `json:"reasons"`
}

// HasReason reports whether code was recorded.
func (r RuleResult) HasReason(code ReasonCode) bool {
	for _, c := range r.Reasons {
		if c == code {
			return true
		}
	}
	return false
}

// JoinReasons renders reasons as the comma separated audit string stored with
// recommendations.
func JoinReasons(reasons []ReasonCode) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// SplitReasons parses an audit string written by JoinReasons.
func SplitReasons(s string) []ReasonCode {
	var out []ReasonCode
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, ReasonCode(part))
		}
	}
	return out
}

// Candidate is one scored point of the discrete action space.
type Candidate struct {
	Index          int        `json:"index"` // Position in the multiplier sequence
	Multiplier     float64    `json:"multiplier"`
	RawPrice       float64    `json:"raw_price"`
	Result         RuleResult `json:"result"`
	ExpectedUnits  float64    `json:"expected_units"`
	ExpectedProfit float64    `json:"expected_profit"`
}

// FinalPrice is the guardrailed price of the candidate.
func (c Candidate) FinalPrice() float64 {
	return c.Result.FinalPrice
}

// Recommendation is the best candidate of one context, ready for persistence.
type Recommendation struct {
	EntityID       string       `json:"entity_id"`
	SegmentID      string       `json:"segment_id"`
	Date           string       `json:"date"`
	Price          float64      `json:"recommended_price"`
	Multiplier     float64      `json:"multiplier"`
	RawPrice       float64      `json:"raw_price"`
	ExpectedUnits  float64      `json:"expected_units"`
	ExpectedProfit float64      `json:"expected_profit"`
	Reasons        []ReasonCode `json:"reasons"`
}

// NewRecommendation builds the persisted view of the winning candidate.
func NewRecommendation(pc PricingContext, best Candidate) Recommendation {
	reasons := make([]ReasonCode, len(best.Result.Reasons))
	copy(reasons, best.Result.Reasons)
	return Recommendation{
		EntityID:       pc.EntityID,
		SegmentID:      pc.SegmentID,
		Date:           pc.Date,
		Price:          best.Result.FinalPrice,
		Multiplier:     best.Multiplier,
		RawPrice:       best.RawPrice,
		ExpectedUnits:  best.ExpectedUnits,
		ExpectedProfit: best.ExpectedProfit,
		Reasons:        reasons,
	}
}
