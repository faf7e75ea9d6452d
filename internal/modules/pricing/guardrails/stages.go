package guardrails

import (
	"fmt"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
)

// Outcome is what one stage returns: the (possibly rewritten) working price,
// at most one reason code, and whether the pipeline stops here.
type Outcome struct {
	Price  float64
	Reason domain.ReasonCode // Empty when the stage did not fire
	Halt   bool
	Detail string // Thresholds in force, for diagnostics
}

// Stage is one pure constraint of the pipeline.
type Stage struct {
	Name string
	Eval func(price float64, pc domain.PricingContext, p policy.Policy) (Outcome, error)
}

// Stage names, in pipeline order
const (
	StagePromoLock       = "promo_lock"
	StageMarginFloor     = "margin_floor"
	StageMAPFloor        = "map_floor"
	StageMSRPCeiling     = "msrp_ceiling"
	StageMaxDailyChange  = "max_daily_change"
	StageCompetitorCap   = "competitor_cap"
	StageTrustVolatility = "trust_volatility"
)

func unchanged(price float64) Outcome {
	return Outcome{Price: price}
}

// PromoLock returns the promo price verbatim and stops the pipeline when a
// promotion is active.
func PromoLock(code domain.ReasonCode) Stage {
	return Stage{
		Name: StagePromoLock,
		Eval: func(price float64, pc domain.PricingContext, p policy.Policy) (Outcome, error) {
			if !p.Guardrails.Promo.Enabled || !pc.PromoActive {
				return unchanged(price), nil
			}
			if pc.PromoPrice == nil {
				return Outcome{}, fmt.Errorf("%w: promo_active is set but promo_price is missing for %s",
					domain.ErrInvalidState, pc.Key())
			}
			return Outcome{
				Price:  *pc.PromoPrice,
				Reason: code,
				Halt:   true,
				Detail: fmt.Sprintf("promo_price=%.4f", *pc.PromoPrice),
			}, nil
		},
	}
}

// MarginFloor raises the price to unit_cost × (1 + min_margin_pct).
func MarginFloor(code domain.ReasonCode) Stage {
	return Stage{
		Name: StageMarginFloor,
		Eval: func(price float64, pc domain.PricingContext, p policy.Policy) (Outcome, error) {
			cfg := p.Guardrails.PriceFloor
			if !cfg.Enabled {
				return unchanged(price), nil
			}
			floor := pc.UnitCost * (1.0 + cfg.MinMarginPct)
			if price < floor {
				return Outcome{
					Price:  floor,
					Reason: code,
					Detail: fmt.Sprintf("unit_cost=%.4f min_margin_pct=%.4f floor=%.4f", pc.UnitCost, cfg.MinMarginPct, floor),
				}, nil
			}
			return unchanged(price), nil
		},
	}
}

// MAPFloor raises the price to the minimum advertised price. It runs after
// the margin floor and only ever raises.
func MAPFloor(code domain.ReasonCode) Stage {
	return Stage{
		Name: StageMAPFloor,
		Eval: func(price float64, pc domain.PricingContext, p policy.Policy) (Outcome, error) {
			if !p.MAPEnforced() || pc.MAPPrice == nil {
				return unchanged(price), nil
			}
			if mapPrice := *pc.MAPPrice; price < mapPrice {
				return Outcome{
					Price:  mapPrice,
					Reason: code,
					Detail: fmt.Sprintf("map_price=%.4f", mapPrice),
				}, nil
			}
			return unchanged(price), nil
		},
	}
}

// MSRPCeiling clamps the price down to the MSRP.
func MSRPCeiling(code domain.ReasonCode) Stage {
	return Stage{
		Name: StageMSRPCeiling,
		Eval: func(price float64, pc domain.PricingContext, p policy.Policy) (Outcome, error) {
			if !p.Guardrails.PriceCeiling.Enabled || pc.MSRP == nil {
				return unchanged(price), nil
			}
			if msrp := *pc.MSRP; price > msrp {
				return Outcome{
					Price:  msrp,
					Reason: code,
					Detail: fmt.Sprintf("msrp=%.4f", msrp),
				}, nil
			}
			return unchanged(price), nil
		},
	}
}

// DailyBand is the allowed window around yesterday's price.
type DailyBand struct {
	UpPct   float64 `json:"up_pct"`
	DownPct float64 `json:"down_pct"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Regime  string  `json:"regime"` // default, low_stock or overstock
}

// Band computes the inventory-aware daily change window. ok is false when no
// prior-day price exists.
//
// Low stock tightens both directions to low_stock_pct. Overstock widens only
// the downward bound to overstock_pct; the upward bound stays at default.
func Band(pc domain.PricingContext, p policy.Policy) (DailyBand, bool) {
	if pc.YesterdayPrice == nil {
		return DailyBand{}, false
	}
	cfg := p.Guardrails.MaxDailyChange
	band := DailyBand{UpPct: cfg.DefaultPct, DownPct: cfg.DefaultPct, Regime: "default"}

	if doc := pc.DaysOfCover; doc != nil {
		switch {
		case *doc < p.InventoryFlags.LowStockDaysOfCoverLT:
			band.UpPct, band.DownPct = cfg.LowStockPct, cfg.LowStockPct
			band.Regime = "low_stock"
		case *doc > p.InventoryFlags.OverstockDaysOfCoverGT:
			band.DownPct = cfg.OverstockPct
			band.Regime = "overstock"
		}
	}

	y := *pc.YesterdayPrice
	band.Min = y * (1.0 - band.DownPct)
	band.Max = y * (1.0 + band.UpPct)
	return band, true
}

// MaxDailyChange clamps the price into the daily band around yesterday's
// price. The reason is recorded only when the clamp moved the value.
func MaxDailyChange(code domain.ReasonCode) Stage {
	return Stage{
		Name: StageMaxDailyChange,
		Eval: func(price float64, pc domain.PricingContext, p policy.Policy) (Outcome, error) {
			if !p.Guardrails.MaxDailyChange.Enabled {
				return unchanged(price), nil
			}
			band, ok := Band(pc, p)
			if !ok {
				return unchanged(price), nil
			}
			clamped := clamp(price, band.Min, band.Max)
			if clamped == price {
				return unchanged(price), nil
			}
			return Outcome{
				Price:  clamped,
				Reason: code,
				Detail: fmt.Sprintf("yesterday=%.4f regime=%s down_pct=%.4f up_pct=%.4f",
					*pc.YesterdayPrice, band.Regime, band.DownPct, band.UpPct),
			}, nil
		},
	}
}

// CompetitorCap caps key-value items at competitor × (1 + max_over_competitor_pct).
// Ordinary items are never capped by competitor price.
func CompetitorCap(code domain.ReasonCode) Stage {
	return Stage{
		Name: StageCompetitorCap,
		Eval: func(price float64, pc domain.PricingContext, p policy.Policy) (Outcome, error) {
			cfg := p.Guardrails.Competitor
			if !cfg.Enabled || !pc.IsKVI || pc.CompetitorPrice == nil {
				return unchanged(price), nil
			}
			limit := *pc.CompetitorPrice * (1.0 + cfg.MaxOverCompetitorPct)
			if price > limit {
				return Outcome{
					Price:  limit,
					Reason: code,
					Detail: fmt.Sprintf("competitor_price=%.4f max_over_competitor_pct=%.4f cap=%.4f",
						*pc.CompetitorPrice, cfg.MaxOverCompetitorPct, limit),
				}, nil
			}
			return unchanged(price), nil
		},
	}
}

// TrustVolatility is the reserved weekly volatility stage. It never alters
// the price or the reasons.
// TODO: enforce trust.max_weekly_volatility_pct over RecentPrices once the
// history window is settled.
func TrustVolatility(domain.ReasonCode) Stage {
	return Stage{
		Name: StageTrustVolatility,
		Eval: func(price float64, _ domain.PricingContext, _ policy.Policy) (Outcome, error) {
			return unchanged(price), nil
		},
	}
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		value = lo
	}
	if value > hi {
		value = hi
	}
	return value
}
