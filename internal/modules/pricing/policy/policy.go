// Package policy defines the pricing policy configuration consumed read-only
// by the guardrail pipeline, plus its YAML loader and validator.
package policy

// Policy is the full set of named thresholds and per-stage enable flags for a
// run. It is passed by value and never mutated while a run is in progress.
type Policy struct {
	Version        string         `yaml:"policy_version" json:"policy_version" validate:"required"`
	Guardrails     Guardrails     `yaml:"guardrails" json:"guardrails"`
	InventoryFlags InventoryFlags `yaml:"inventory_flags" json:"inventory_flags"`
}

// Guardrails groups the per-stage settings.
type Guardrails struct {
	Promo          PromoConfig          `yaml:"promo" json:"promo"`
	PriceFloor     PriceFloorConfig     `yaml:"price_floor" json:"price_floor"`
	PriceCeiling   PriceCeilingConfig   `yaml:"price_ceiling" json:"price_ceiling"`
	MaxDailyChange MaxDailyChangeConfig `yaml:"max_daily_change" json:"max_daily_change"`
	Competitor     CompetitorConfig     `yaml:"competitor" json:"competitor"`
	Trust          TrustConfig          `yaml:"trust" json:"trust"`
}

// PromoConfig controls the promo lock.
type PromoConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// PriceFloorConfig controls the cost-plus-margin floor.
type PriceFloorConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	MinMarginPct float64 `yaml:"min_margin_pct" json:"min_margin_pct" validate:"gte=0,lte=10"`
}

// PriceCeilingConfig controls the MSRP ceiling and, with EnforceMAP, the MAP
// floor.
type PriceCeilingConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	EnforceMAP bool `yaml:"enforce_map" json:"enforce_map"`
}

// MaxDailyChangeConfig holds the allowed day-over-day move, as fractions of
// yesterday's price.
type MaxDailyChangeConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	DefaultPct   float64 `yaml:"default_pct" json:"default_pct" validate:"gte=0,lt=1"`
	LowStockPct  float64 `yaml:"low_stock_pct" json:"low_stock_pct" validate:"gte=0,lt=1"`
	OverstockPct float64 `yaml:"overstock_pct" json:"overstock_pct" validate:"gte=0,lt=1"`
}

// CompetitorConfig caps key-value items relative to the competitor price.
type CompetitorConfig struct {
	Enabled              bool    `yaml:"enabled" json:"enabled"`
	MaxOverCompetitorPct float64 `yaml:"max_over_competitor_pct" json:"max_over_competitor_pct" validate:"gte=-1"`
}

// TrustConfig is reserved for the weekly volatility constraint. The stage is
// inert whatever these values are.
type TrustConfig struct {
	Enabled                bool    `yaml:"enabled" json:"enabled"`
	MaxWeeklyVolatilityPct float64 `yaml:"max_weekly_volatility_pct" json:"max_weekly_volatility_pct" validate:"gte=0"`
}

// InventoryFlags holds the days-of-cover thresholds that switch the daily
// change band.
type InventoryFlags struct {
	LowStockDaysOfCoverLT  float64 `yaml:"low_stock_days_of_cover_lt" json:"low_stock_days_of_cover_lt" validate:"gte=0"`
	OverstockDaysOfCoverGT float64 `yaml:"overstock_days_of_cover_gt" json:"overstock_days_of_cover_gt" validate:"gte=0"`
}

// Default returns the standard policy. Loaded YAML is applied on top of it.
func Default() Policy {
	return Policy{
		Version: "v1",
		Guardrails: Guardrails{
			Promo:      PromoConfig{Enabled: true},
			PriceFloor: PriceFloorConfig{Enabled: true, MinMarginPct: 0.15},
			PriceCeiling: PriceCeilingConfig{
				Enabled:    true,
				EnforceMAP: true,
			},
			MaxDailyChange: MaxDailyChangeConfig{
				Enabled:      true,
				DefaultPct:   0.10,
				LowStockPct:  0.05,
				OverstockPct: 0.20,
			},
			Competitor: CompetitorConfig{Enabled: true, MaxOverCompetitorPct: 0.20},
			Trust:      TrustConfig{Enabled: false},
		},
		InventoryFlags: InventoryFlags{
			LowStockDaysOfCoverLT:  7,
			OverstockDaysOfCoverGT: 60,
		},
	}
}

// MAPEnforced reports whether the MAP floor stage is active.
func (p Policy) MAPEnforced() bool {
	return p.Guardrails.PriceCeiling.Enabled && p.Guardrails.PriceCeiling.EnforceMAP
}
