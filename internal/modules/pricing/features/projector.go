package features

import "github.com/aristath/pricer/internal/modules/pricing/domain"

// Projector maps a context and a candidate final price to the feature row the
// demand oracle scores. Implementations must be pure.
type Projector interface {
	Project(pc domain.PricingContext, finalPrice float64) Vector
}

// PriceProjector keeps the observed features of the day and recomputes the
// price-derived ones at the candidate price.
type PriceProjector struct{}

// NewPriceProjector returns the default projector.
func NewPriceProjector() PriceProjector {
	return PriceProjector{}
}

// Project implements Projector.
func (PriceProjector) Project(pc domain.PricingContext, finalPrice float64) Vector {
	v := Vector(pc.Observed).Clone()

	for _, name := range PriceFeatures {
		v[name] = 0
	}
	v[PriceShown] = finalPrice

	if msrp := value(pc.MSRP); msrp > 0 {
		v[DiscountVsMSRP] = 1.0 - finalPrice/msrp
	}
	if comp := value(pc.CompetitorPrice); comp > 0 {
		v[PriceIndexVsComp] = finalPrice / comp
	}
	if y := value(pc.YesterdayPrice); y > 0 {
		v[PriceChangePct1d] = (finalPrice - y) / y
	}
	return v
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
