package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/pricer/internal/modules/pricing/batch"
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/rs/zerolog"
)

// StoredSummary is a run summary with the run it belongs to.
type StoredSummary struct {
	batch.Summary
	RunDate   string    `json:"run_date"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SummaryRepository stores one monitoring summary per run date.
type SummaryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *sql.DB, log zerolog.Logger) *SummaryRepository {
	return &SummaryRepository{
		db:  db,
		log: log.With().Str("repository", "summary").Logger(),
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Save writes (or replaces) the summary for runDate.
func (r *SummaryRepository) Save(ctx context.Context, runDate, runID string, s batch.Summary) error {
	return r.save(ctx, r.db, runDate, runID, s, time.Now())
}

func (r *SummaryRepository) save(ctx context.Context, db execer, runDate, runID string, s batch.Summary, at time.Time) error {
	counts, err := json.Marshal(s.ReasonCounts)
	if err != nil {
		return fmt.Errorf("failed to encode reason counts: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pricing_run_summary
		(run_date, run_id, n_recommendations, avg_recommended_price, total_expected_units,
		 total_expected_profit, n_none, r_none, reason_counts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runDate,
		runID,
		s.N,
		s.AvgPrice,
		s.TotalUnits,
		s.TotalProfit,
		s.NoReason,
		s.NoReasonRate(),
		string(counts),
		at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run summary for %s: %w", runDate, err)
	}
	return nil
}

// Get returns the summary for runDate.
func (r *SummaryRepository) Get(ctx context.Context, runDate string) (*StoredSummary, error) {
	var (
		out       StoredSummary
		counts    string
		rNone     float64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT run_date, run_id, n_recommendations, avg_recommended_price, total_expected_units,
		       total_expected_profit, n_none, r_none, reason_counts, created_at
		FROM pricing_run_summary
		WHERE run_date = ?
	`, runDate).Scan(
		&out.RunDate,
		&out.RunID,
		&out.N,
		&out.AvgPrice,
		&out.TotalUnits,
		&out.TotalProfit,
		&out.NoReason,
		&rNone,
		&counts,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run summary for %s: %w", runDate, err)
	}

	if err := json.Unmarshal([]byte(counts), &out.ReasonCounts); err != nil {
		return nil, fmt.Errorf("failed to decode reason counts for %s: %w", runDate, err)
	}
	out.ReasonRates = make(map[domain.ReasonCode]float64, len(out.ReasonCounts))
	for code, n := range out.ReasonCounts {
		if out.N > 0 {
			out.ReasonRates[code] = float64(n) / float64(out.N)
		} else {
			out.ReasonRates[code] = 0
		}
	}
	out.CreatedAt = time.Unix(createdAt, 0)
	return &out, nil
}
