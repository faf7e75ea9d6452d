package testing

import (
	"testing"

	"github.com/aristath/pricer/internal/database"
)

// Demo calendar
const (
	DemoYesterday = "2024-06-29"
	DemoDate      = "2024-06-30"
)

// SKUFixture is one dim_sku row.
type SKUFixture struct {
	SKUID    string
	Category string
	UnitCost float64
	MSRP     *float64
	MAPPrice *float64
	IsKVI    bool
}

// DayFixture is one logged sku×segment×day with its feature row.
type DayFixture struct {
	SKUID           string
	SegmentID       string
	Date            string
	PriceShown      float64
	PromoActive     bool
	PromoPrice      *float64
	CompetitorPrice *float64
	DaysOfCover     *float64
	Sessions        float64
}

func ptr(v float64) *float64 {
	return &v
}

// DemoSKUs covers one of each pricing situation: a clamped KVI, an
// overstocked item, an item without MSRP and an item on promotion.
func DemoSKUs() []SKUFixture {
	return []SKUFixture{
		{SKUID: "ELEC-001", Category: "electronics", UnitCost: 50.0, MSRP: ptr(120.0), MAPPrice: ptr(79.99), IsKVI: true},
		{SKUID: "HOME-010", Category: "home", UnitCost: 10.0, MSRP: ptr(25.0)},
		{SKUID: "TOYS-003", Category: "toys", UnitCost: 8.0},
		{SKUID: "GROC-007", Category: "grocery", UnitCost: 2.0, MSRP: ptr(4.99)},
	}
}

// DemoDays returns DemoSKUs' history for DemoYesterday and DemoDate in the
// "new" segment.
func DemoDays() []DayFixture {
	return []DayFixture{
		{SKUID: "ELEC-001", SegmentID: "new", Date: DemoYesterday, PriceShown: 99.99, CompetitorPrice: ptr(95.0), DaysOfCover: ptr(11), Sessions: 310},
		{SKUID: "ELEC-001", SegmentID: "new", Date: DemoDate, PriceShown: 104.99, CompetitorPrice: ptr(95.0), DaysOfCover: ptr(10), Sessions: 300},
		{SKUID: "HOME-010", SegmentID: "new", Date: DemoYesterday, PriceShown: 19.99, DaysOfCover: ptr(88), Sessions: 120},
		{SKUID: "HOME-010", SegmentID: "new", Date: DemoDate, PriceShown: 20.49, DaysOfCover: ptr(90), Sessions: 115},
		{SKUID: "TOYS-003", SegmentID: "new", Date: DemoYesterday, PriceShown: 14.99, DaysOfCover: ptr(30), Sessions: 80},
		{SKUID: "TOYS-003", SegmentID: "new", Date: DemoDate, PriceShown: 14.99, DaysOfCover: ptr(29), Sessions: 82},
		{SKUID: "GROC-007", SegmentID: "new", Date: DemoDate, PriceShown: 3.49, PromoActive: true, PromoPrice: ptr(3.49), DaysOfCover: ptr(20), Sessions: 400},
	}
}

// InsertSKU writes a dim_sku row.
func InsertSKU(t *testing.T, db *database.DB, sku SKUFixture) {
	t.Helper()

	_, err := db.Conn().Exec(`
		INSERT OR REPLACE INTO dim_sku (sku_id, category, brand, unit_cost, msrp, map_price, launch_date, is_kvi)
		VALUES (?, ?, 'acme', ?, ?, ?, '2023-01-01', ?)
	`, sku.SKUID, sku.Category, sku.UnitCost, sku.MSRP, sku.MAPPrice, boolToInt(sku.IsKVI))
	if err != nil {
		t.Fatalf("Failed to insert sku %s: %v", sku.SKUID, err)
	}
}

// InsertDay writes the price, inventory and feature rows of one logged day.
func InsertDay(t *testing.T, db *database.DB, day DayFixture) {
	t.Helper()

	_, err := db.Conn().Exec(`
		INSERT OR REPLACE INTO fact_prices_shown
		(sku_id, segment_id, date, price_shown, promo_active, promo_price, competitor_price, logging_propensity)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0.2)
	`, day.SKUID, day.SegmentID, day.Date, day.PriceShown, boolToInt(day.PromoActive), day.PromoPrice, day.CompetitorPrice)
	if err != nil {
		t.Fatalf("Failed to insert price for %s %s: %v", day.SKUID, day.Date, err)
	}

	_, err = db.Conn().Exec(`
		INSERT OR REPLACE INTO fact_inventory (sku_id, date, on_hand, inbound, stockout_flag, days_of_cover)
		VALUES (?, ?, 100, 0, 0, ?)
	`, day.SKUID, day.Date, day.DaysOfCover)
	if err != nil {
		t.Fatalf("Failed to insert inventory for %s %s: %v", day.SKUID, day.Date, err)
	}

	_, err = db.Conn().Exec(`
		INSERT OR REPLACE INTO feature_sku_segment_day
		(sku_id, segment_id, date, price_shown, price_rolling_avg_7d, sessions, views, add_to_cart,
		 on_hand, inbound, stockout_flag, days_of_cover, low_stock_flag, overstock_flag,
		 orders, units_sold, revenue, profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 100, 0, 0, ?, 0, 0, 3, 3, 30, 9)
	`, day.SKUID, day.SegmentID, day.Date, day.PriceShown, day.PriceShown, day.Sessions, day.Sessions*2, day.Sessions/10, day.DaysOfCover)
	if err != nil {
		t.Fatalf("Failed to insert features for %s %s: %v", day.SKUID, day.Date, err)
	}
}

// SeedDemo loads DemoSKUs and DemoDays.
func SeedDemo(t *testing.T, db *database.DB) {
	t.Helper()

	for _, sku := range DemoSKUs() {
		InsertSKU(t, db, sku)
	}
	for _, day := range DemoDays() {
		InsertDay(t, db, day)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
