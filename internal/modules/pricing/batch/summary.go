package batch

import (
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates one run's recommendations for monitoring.
type Summary struct {
	N            int                           `json:"n_recommendations"`
	AvgPrice     float64                       `json:"avg_recommended_price"`
	TotalUnits   float64                       `json:"total_expected_units"`
	TotalProfit  float64                       `json:"total_expected_profit"`
	NoReason     int                           `json:"n_none"`
	ReasonCounts map[domain.ReasonCode]int     `json:"reason_counts"`
	ReasonRates  map[domain.ReasonCode]float64 `json:"reason_rates"`
}

// NoReasonRate is the share of recommendations no guardrail touched.
func (s Summary) NoReasonRate() float64 {
	return rate(s.NoReason, s.N)
}

// Summarize counts how often each code of vocabulary fired. Codes outside the
// vocabulary are ignored; every vocabulary code is present, zero or not.
func Summarize(recs []domain.Recommendation, vocabulary []domain.ReasonCode) Summary {
	s := Summary{
		N:            len(recs),
		ReasonCounts: make(map[domain.ReasonCode]int, len(vocabulary)),
		ReasonRates:  make(map[domain.ReasonCode]float64, len(vocabulary)),
	}
	for _, code := range vocabulary {
		s.ReasonCounts[code] = 0
	}

	prices := make([]float64, len(recs))
	units := make([]float64, len(recs))
	profits := make([]float64, len(recs))

	for i, rec := range recs {
		prices[i] = rec.Price
		units[i] = rec.ExpectedUnits
		profits[i] = rec.ExpectedProfit

		if len(rec.Reasons) == 0 {
			s.NoReason++
			continue
		}
		for _, code := range rec.Reasons {
			if _, ok := s.ReasonCounts[code]; ok {
				s.ReasonCounts[code]++
			}
		}
	}

	if s.N > 0 {
		s.AvgPrice = stat.Mean(prices, nil)
		s.TotalUnits = floats.Sum(units)
		s.TotalProfit = floats.Sum(profits)
	}
	for code, n := range s.ReasonCounts {
		s.ReasonRates[code] = rate(n, s.N)
	}
	return s
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
