package optimizer

import (
	"fmt"
	"strings"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
)

// ReferenceSelector picks the price the candidate multipliers scale. A nil
// result means the context has no reference price.
type ReferenceSelector interface {
	Name() string
	Reference(pc domain.PricingContext) *float64
}

type msrpReference struct{}

func (msrpReference) Name() string {
	return "msrp"
}

func (msrpReference) Reference(pc domain.PricingContext) *float64 {
	return pc.MSRP
}

type yesterdayReference struct{}

func (yesterdayReference) Name() string {
	return "yesterday"
}

func (yesterdayReference) Reference(pc domain.PricingContext) *float64 {
	return pc.YesterdayPrice
}

// MSRPReference scales candidates off the manufacturer's list price.
func MSRPReference() ReferenceSelector { return msrpReference{} }

// YesterdayReference scales candidates off the previous day's shown price.
func YesterdayReference() ReferenceSelector { return yesterdayReference{} }

// ParseReference resolves a selector by name ("msrp" or "yesterday").
func ParseReference(name string) (ReferenceSelector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "msrp":
		return MSRPReference(), nil
	case "yesterday", "yesterday_price":
		return YesterdayReference(), nil
	default:
		return nil, fmt.Errorf("unknown reference price %q (want msrp or yesterday)", name)
	}
}
