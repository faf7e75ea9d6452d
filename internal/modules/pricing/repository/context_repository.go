// Package repository persists pricing inputs and run outputs in sqlite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/rs/zerolog"
)

// ErrNoData is returned when the feature table has nothing to price.
var ErrNoData = errors.New("no feature rows to price")

// ObservedFeatures are the feature_sku_segment_day columns handed to the
// demand model. Outcome columns (orders, units_sold, revenue, profit) are
// labels and never read here.
var ObservedFeatures = []string{
	"price_shown",
	"discount_pct_vs_msrp",
	"price_index_vs_comp",
	"price_change_pct_1d",
	"price_rolling_avg_7d",
	"sessions",
	"views",
	"add_to_cart",
	"sessions_lag_1d",
	"on_hand",
	"inbound",
	"stockout_flag",
	"days_of_cover",
	"low_stock_flag",
	"overstock_flag",
}

// ContextRepository assembles pricing contexts from the upstream tables.
//
// Database: pricing.db (dim_sku, fact_prices_shown, feature_sku_segment_day)
type ContextRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewContextRepository creates a new context repository
func NewContextRepository(db *sql.DB, log zerolog.Logger) *ContextRepository {
	return &ContextRepository{
		db:  db,
		log: log.With().Str("repository", "context").Logger(),
	}
}

// LatestDate returns the most recent feature date.
func (r *ContextRepository) LatestDate(ctx context.Context) (string, error) {
	var date sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT MAX(date) FROM feature_sku_segment_day").Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to query latest feature date: %w", err)
	}
	if !date.Valid || date.String == "" {
		return "", ErrNoData
	}
	return date.String, nil
}

func contextQuery() string {
	cols := make([]string, len(ObservedFeatures))
	for i, name := range ObservedFeatures {
		cols[i] = "f." + name
	}
	return `
		SELECT
			f.sku_id, f.segment_id, f.date,
			s.unit_cost, s.msrp, s.map_price, s.is_kvi,
			p.competitor_price, p.promo_active, p.promo_price,
			(SELECT p2.price_shown
			 FROM fact_prices_shown p2
			 WHERE p2.sku_id = p.sku_id
			   AND p2.segment_id = p.segment_id
			   AND p2.date = date(p.date, '-1 day')
			) AS yesterday_price,
			` + strings.Join(cols, ", ") + `
		FROM feature_sku_segment_day f
		JOIN dim_sku s ON f.sku_id = s.sku_id
		JOIN fact_prices_shown p
			ON f.sku_id = p.sku_id AND f.segment_id = p.segment_id AND f.date = p.date
		WHERE f.date = ?
		ORDER BY f.sku_id, f.segment_id
	`
}

// LoadContexts returns one context per sku×segment with features on date,
// ordered by sku then segment.
func (r *ContextRepository) LoadContexts(ctx context.Context, date string) ([]domain.PricingContext, error) {
	rows, err := r.db.QueryContext(ctx, contextQuery(), date)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing contexts for %s: %w", date, err)
	}
	defer rows.Close()

	var contexts []domain.PricingContext
	for rows.Next() {
		pc, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pricing contexts: %w", err)
	}

	r.log.Debug().Str("date", date).Int("contexts", len(contexts)).Msg("Loaded pricing contexts")
	return contexts, nil
}

func scanContext(rows *sql.Rows) (domain.PricingContext, error) {
	var (
		pc                                domain.PricingContext
		msrp, mapPrice, competitor, promo sql.NullFloat64
		yesterday                         sql.NullFloat64
		isKVI, promoActive                int
		observed                          = make([]sql.NullFloat64, len(ObservedFeatures))
	)

	dest := []interface{}{
		&pc.EntityID, &pc.SegmentID, &pc.Date,
		&pc.UnitCost, &msrp, &mapPrice, &isKVI,
		&competitor, &promoActive, &promo,
		&yesterday,
	}
	for i := range observed {
		dest = append(dest, &observed[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return domain.PricingContext{}, fmt.Errorf("failed to scan pricing context: %w", err)
	}

	pc.MSRP = nullable(msrp)
	pc.MAPPrice = nullable(mapPrice)
	pc.CompetitorPrice = nullable(competitor)
	pc.PromoPrice = nullable(promo)
	pc.YesterdayPrice = nullable(yesterday)
	pc.IsKVI = isKVI != 0
	pc.PromoActive = promoActive != 0

	pc.Observed = make(map[string]float64, len(ObservedFeatures))
	for i, name := range ObservedFeatures {
		pc.Observed[name] = observed[i].Float64 // NULL reads as 0
		if name == "days_of_cover" {
			pc.DaysOfCover = nullable(observed[i])
		}
	}
	return pc, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
