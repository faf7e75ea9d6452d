package optimizer

import (
	"fmt"
	"math"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/features"
)

// DemandOracle predicts expected units for a feature row. Implementations
// must be safe for concurrent read-only use and return a finite, non-negative
// estimate.
type DemandOracle interface {
	Predict(v features.Vector) (float64, error)
}

// OracleFunc adapts a plain function to DemandOracle.
type OracleFunc func(v features.Vector) (float64, error)

// Predict implements DemandOracle.
func (f OracleFunc) Predict(v features.Vector) (float64, error) {
	return f(v)
}

func checkUnits(units float64) error {
	if math.IsNaN(units) || math.IsInf(units, 0) || units < 0 {
		return fmt.Errorf("%w: expected units %v", domain.ErrOracleContract, units)
	}
	return nil
}
