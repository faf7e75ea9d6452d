// Package domain provides pricing domain models.
package domain

import (
	"fmt"
	"math"
)

// PricingContext is the per-(entity, segment, day) snapshot of every fact
// needed to price one unit. It is built fresh for each run and passed by
// value; nothing in the pipeline mutates it.
//
// Optional facts are pointers: nil means the fact is absent for that day.
type PricingContext struct {
	// Identity (opaque to the core)
	EntityID  string `json:"entity_id"`
	SegmentID string `json:"segment_id"`
	Date      string `json:"date"`

	// Economics
	UnitCost float64  `json:"unit_cost"`           // Required, > 0
	MSRP     *float64 `json:"msrp,omitempty"`      // nil = no ceiling
	MAPPrice *float64 `json:"map_price,omitempty"` // nil = no MAP enforcement

	// Competitive signal
	CompetitorPrice *float64 `json:"competitor_price,omitempty"`

	// Promotional state. PromoPrice is authoritative when PromoActive is set.
	PromoActive bool     `json:"promo_active"`
	PromoPrice  *float64 `json:"promo_price,omitempty"`

	// Temporal signal, absent on an entity's first observed day
	YesterdayPrice *float64 `json:"yesterday_price,omitempty"`

	// Inventory signal, nil disables the inventory-aware bands
	DaysOfCover *float64 `json:"days_of_cover,omitempty"`

	// Classification: key-value items are subject to the competitor cap
	IsKVI bool `json:"is_kvi"`

	// Reserved for the trust/volatility stage. Not enforced yet.
	RecentPrices []float64 `json:"recent_prices,omitempty"`

	// Observed feature row for the day (sessions, inventory, calendar and the
	// logged price features). The feature projector holds the non-price
	// entries fixed and recomputes the price-derived ones per candidate.
	Observed map[string]float64 `json:"observed,omitempty"`
}

// Key returns the entity×segment×day identity used in logs and reports.
func (c PricingContext) Key() string {
	return fmt.Sprintf("%s/%s/%s", c.EntityID, c.SegmentID, c.Date)
}

// Validate checks the caller-supplied preconditions of a context.
func (c PricingContext) Validate() error {
	if !positive(c.UnitCost) {
		return fmt.Errorf("%w: unit_cost must be > 0 for %s (got %v)", ErrContractViolation, c.Key(), c.UnitCost)
	}
	return nil
}

// Float returns a pointer to v, for filling optional context fields.
func Float(v float64) *float64 {
	return &v
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
