// Package objective scores candidate prices.
package objective

// ExpectedProfit is (price - unitCost) × units. Inputs are not validated; a
// price below cost yields a negative profit.
func ExpectedProfit(price, unitCost, units float64) float64 {
	return (price - unitCost) * units
}
