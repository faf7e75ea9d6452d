package domain

// ReasonCode is a stable identifier recorded when a guardrail stage changes
// the price.
type ReasonCode string

// Default reason-code vocabulary
const (
	ReasonPromoLock       ReasonCode = "PROMO_LOCK"
	ReasonMarginFloor     ReasonCode = "MARGIN_FLOOR_APPLIED"
	ReasonMAPFloor        ReasonCode = "MAP_FLOOR_APPLIED"
	ReasonMSRPCeiling     ReasonCode = "MSRP_CEILING_APPLIED"
	ReasonMaxDailyChange  ReasonCode = "MAX_DAILY_CHANGE_CLAMPED"
	ReasonCompetitorCap   ReasonCode = "COMPETITOR_CAP_APPLIED"
	ReasonTrustVolatility ReasonCode = "TRUST_VOLATILITY_LIMIT_APPLIED"
)

// ReasonCodes is the vocabulary a pipeline emits, one code per stage.
// It is handed to the pipeline at construction so that policy variants with
// different audit vocabularies can run side by side in one process.
type ReasonCodes struct {
	PromoLock       ReasonCode `json:"promo_lock"`
	MarginFloor     ReasonCode `json:"margin_floor"`
	MAPFloor        ReasonCode `json:"map_floor"`
	MSRPCeiling     ReasonCode `json:"msrp_ceiling"`
	MaxDailyChange  ReasonCode `json:"max_daily_change"`
	CompetitorCap   ReasonCode `json:"competitor_cap"`
	TrustVolatility ReasonCode `json:"trust_volatility"`
}

// DefaultReasonCodes returns the standard audit vocabulary.
func DefaultReasonCodes() ReasonCodes {
	return ReasonCodes{
		PromoLock:       ReasonPromoLock,
		MarginFloor:     ReasonMarginFloor,
		MAPFloor:        ReasonMAPFloor,
		MSRPCeiling:     ReasonMSRPCeiling,
		MaxDailyChange:  ReasonMaxDailyChange,
		CompetitorCap:   ReasonCompetitorCap,
		TrustVolatility: ReasonTrustVolatility,
	}
}

// Ordered returns the vocabulary in pipeline stage order.
func (r ReasonCodes) Ordered() []ReasonCode {
	return []ReasonCode{
		r.PromoLock,
		r.MarginFloor,
		r.MAPFloor,
		r.MSRPCeiling,
		r.MaxDailyChange,
		r.CompetitorCap,
		r.TrustVolatility,
	}
}
