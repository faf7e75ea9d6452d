// Package demand provides demand oracles backed by trained model snapshots.
package demand

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/aristath/pricer/internal/modules/pricing/features"
	"gonum.org/v1/gonum/floats"
)

// LinearModel is an exported linear demand model: units = intercept + w·x,
// floored at zero. It is read-only after loading and safe for concurrent use.
type LinearModel struct {
	Name         string    `json:"name"`
	Intercept    float64   `json:"intercept"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadLinearModel reads a JSON model snapshot from path.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	return ParseLinearModel(data)
}

// ParseLinearModel decodes and validates a JSON model snapshot.
func ParseLinearModel(data []byte) (*LinearModel, error) {
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the feature schema and coefficients line up.
func (m *LinearModel) Validate() error {
	if len(m.Features) == 0 {
		return errors.New("model has no features")
	}
	if len(m.Features) != len(m.Coefficients) {
		return fmt.Errorf("model has %d features but %d coefficients", len(m.Features), len(m.Coefficients))
	}
	seen := make(map[string]bool, len(m.Features))
	for _, name := range m.Features {
		if seen[name] {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
	}
	for _, c := range append([]float64{m.Intercept}, m.Coefficients...) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return errors.New("model parameters must be finite")
		}
	}
	return nil
}

// Predict implements optimizer.DemandOracle. Features absent from v count as 0.
func (m *LinearModel) Predict(v features.Vector) (float64, error) {
	units := m.Intercept + floats.Dot(m.Coefficients, v.Align(m.Features))
	if math.IsNaN(units) {
		return 0, fmt.Errorf("model %s produced NaN", m.Name)
	}
	return math.Max(0, units), nil
}
