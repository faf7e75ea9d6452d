package testing

import (
	"sync"

	"github.com/aristath/pricer/internal/modules/pricing/features"
)

// StubOracle is a concurrency-safe demand oracle for tests. By default it
// sells Base - Slope × price units, floored at zero.
type StubOracle struct {
	Base  float64
	Slope float64
	Err   error

	mu    sync.Mutex
	calls int
}

// NewStubOracle returns an oracle with a gently downward demand curve.
func NewStubOracle() *StubOracle {
	return &StubOracle{Base: 20, Slope: 0.1}
}

// Predict implements optimizer.DemandOracle.
func (o *StubOracle) Predict(v features.Vector) (float64, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	if o.Err != nil {
		return 0, o.Err
	}
	units := o.Base - o.Slope*v[features.PriceShown]
	if units < 0 {
		return 0, nil
	}
	return units, nil
}

// Calls returns how many predictions were made.
func (o *StubOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
