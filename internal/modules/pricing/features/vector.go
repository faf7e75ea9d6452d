// Package features builds the demand model input for a candidate price.
package features

import "sort"

// Price-derived feature names recomputed for every candidate.
const (
	PriceShown       = "price_shown"
	DiscountVsMSRP   = "discount_pct_vs_msrp"
	PriceIndexVsComp = "price_index_vs_comp"
	PriceChangePct1d = "price_change_pct_1d"
)

// PriceFeatures lists the features a Projector overrides.
var PriceFeatures = []string{PriceShown, DiscountVsMSRP, PriceIndexVsComp, PriceChangePct1d}

// Vector is a named feature row.
type Vector map[string]float64

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Align returns the values in the order of names. Missing features are 0.
func (v Vector) Align(names []string) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		out[i] = v[name]
	}
	return out
}

// Names returns the feature names in sorted order.
func (v Vector) Names() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
