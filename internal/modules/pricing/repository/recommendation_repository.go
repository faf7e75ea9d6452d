package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/pricer/internal/database"
	"github.com/aristath/pricer/internal/modules/pricing/batch"
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRunNotFound is returned when no run exists for a date.
var ErrRunNotFound = errors.New("pricing run not found")

// Run is everything persisted for one pricing run.
type Run struct {
	RunID         string
	RunDate       string
	ModelName     string
	PolicyVersion string
	Reference     string
	Contexts      int
	Report        *batch.Report
	CreatedAt     time.Time
}

// RunRecord is the stored header of a run.
type RunRecord struct {
	RunID           string        `json:"run_id"`
	RunDate         string        `json:"run_date"`
	ModelName       string        `json:"model_name"`
	PolicyVersion   string        `json:"policy_version"`
	Reference       string        `json:"reference_price"`
	Contexts        int           `json:"n_contexts"`
	Recommendations int           `json:"n_recommendations"`
	Skipped         int           `json:"n_skipped"`
	Failures        int           `json:"n_failures"`
	Duration        time.Duration `json:"duration"`
	CreatedAt       time.Time     `json:"created_at"`
}

// StoredRecommendation is a persisted recommendation with its run metadata.
type StoredRecommendation struct {
	domain.Recommendation
	RunID         string `json:"run_id"`
	ModelName     string `json:"model_name"`
	PolicyVersion string `json:"policy_version"`
}

// RecommendationRepository stores run outputs.
//
// Database: pricing.db (pricing_runs, pricing_recommendations,
// pricing_run_failures, pricing_run_summary)
type RecommendationRepository struct {
	db      *sql.DB
	summary *SummaryRepository
	log     zerolog.Logger
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *sql.DB, log zerolog.Logger) *RecommendationRepository {
	return &RecommendationRepository{
		db:      db,
		summary: NewSummaryRepository(db, log),
		log:     log.With().Str("repository", "recommendation").Logger(),
	}
}

// ReplaceRun stores run in one transaction, first deleting everything a
// previous run wrote for the same date. Re-running a date is idempotent.
// An empty RunID is filled with a new uuid.
func (r *RecommendationRepository) ReplaceRun(ctx context.Context, run *Run) error {
	if run == nil || run.Report == nil {
		return errors.New("run and report are required")
	}
	if run.RunDate == "" {
		return errors.New("run date is required")
	}
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	report := run.Report

	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"pricing_recommendations", "pricing_run_failures", "pricing_runs"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_date = ?", run.RunDate); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO pricing_runs
			(run_id, run_date, model_name, policy_version, reference_price,
			 n_contexts, n_recommendations, n_skipped, n_failures, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.RunID,
			run.RunDate,
			run.ModelName,
			run.PolicyVersion,
			run.Reference,
			run.Contexts,
			len(report.Recommendations),
			len(report.Skipped),
			len(report.Failures),
			report.Duration.Milliseconds(),
			run.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		recStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO pricing_recommendations
			(run_date, sku_id, segment_id, run_id, recommended_price, multiplier, raw_price,
			 expected_units, expected_profit, reasons, model_name, policy_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare recommendation insert: %w", err)
		}
		defer recStmt.Close()

		for _, rec := range report.Recommendations {
			_, err := recStmt.ExecContext(ctx,
				run.RunDate,
				rec.EntityID,
				rec.SegmentID,
				run.RunID,
				rec.Price,
				rec.Multiplier,
				rec.RawPrice,
				rec.ExpectedUnits,
				rec.ExpectedProfit,
				domain.JoinReasons(rec.Reasons),
				run.ModelName,
				run.PolicyVersion,
			)
			if err != nil {
				return fmt.Errorf("failed to insert recommendation %s/%s: %w", rec.EntityID, rec.SegmentID, err)
			}
		}

		for _, f := range report.Failures {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO pricing_run_failures (run_date, sku_id, segment_id, run_id, stage, error)
				VALUES (?, ?, ?, ?, ?, ?)
			`, run.RunDate, f.EntityID, f.SegmentID, run.RunID, f.Stage, f.Error)
			if err != nil {
				return fmt.Errorf("failed to insert failure %s/%s: %w", f.EntityID, f.SegmentID, err)
			}
		}

		return r.summary.save(ctx, tx, run.RunDate, run.RunID, report.Summary, run.CreatedAt)
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("run_id", run.RunID).
		Str("run_date", run.RunDate).
		Int("recommendations", len(report.Recommendations)).
		Int("failures", len(report.Failures)).
		Msg("Stored pricing run")
	return nil
}

// PruneBefore deletes every stored run dated before cutoff (YYYY-MM-DD) and
// returns how many runs were removed.
func (r *RecommendationRepository) PruneBefore(ctx context.Context, cutoff string) (int64, error) {
	var removed int64
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"pricing_recommendations", "pricing_run_failures", "pricing_run_summary"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_date < ?", cutoff); err != nil {
				return fmt.Errorf("failed to prune %s: %w", table, err)
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM pricing_runs WHERE run_date < ?", cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune pricing_runs: %w", err)
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		r.log.Info().Str("cutoff", cutoff).Int64("runs", removed).Msg("Pruned old pricing runs")
	}
	return removed, nil
}

// GetRun returns the run header for date.
func (r *RecommendationRepository) GetRun(ctx context.Context, date string) (*RunRecord, error) {
	var (
		rec        RunRecord
		durationMS int64
		createdAt  int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, run_date, model_name, policy_version, reference_price,
		       n_contexts, n_recommendations, n_skipped, n_failures, duration_ms, created_at
		FROM pricing_runs
		WHERE run_date = ?
	`, date).Scan(
		&rec.RunID,
		&rec.RunDate,
		&rec.ModelName,
		&rec.PolicyVersion,
		&rec.Reference,
		&rec.Contexts,
		&rec.Recommendations,
		&rec.Skipped,
		&rec.Failures,
		&durationMS,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run for %s: %w", date, err)
	}

	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

// LatestRunDate returns the most recent run date.
func (r *RecommendationRepository) LatestRunDate(ctx context.Context) (string, error) {
	var date sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(run_date) FROM pricing_runs").Scan(&date); err != nil {
		return "", fmt.Errorf("failed to query latest run date: %w", err)
	}
	if !date.Valid {
		return "", ErrRunNotFound
	}
	return date.String, nil
}

// List returns up to limit recommendations for date, highest expected profit
// first. A non-positive limit returns all of them.
func (r *RecommendationRepository) List(ctx context.Context, date string, limit int) ([]StoredRecommendation, error) {
	query := `
		SELECT run_date, sku_id, segment_id, run_id, recommended_price, multiplier, raw_price,
		       expected_units, expected_profit, reasons, model_name, policy_version
		FROM pricing_recommendations
		WHERE run_date = ?
		ORDER BY expected_profit DESC, sku_id, segment_id
	`
	args := []interface{}{date}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]StoredRecommendation, 0)
	for rows.Next() {
		var (
			rec     StoredRecommendation
			reasons string
		)
		err := rows.Scan(
			&rec.Date,
			&rec.EntityID,
			&rec.SegmentID,
			&rec.RunID,
			&rec.Price,
			&rec.Multiplier,
			&rec.RawPrice,
			&rec.ExpectedUnits,
			&rec.ExpectedProfit,
			&reasons,
			&rec.ModelName,
			&rec.PolicyVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		rec.Reasons = domain.SplitReasons(reasons)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return recs, nil
}

// ListFailures returns the failed contexts stored for date.
func (r *RecommendationRepository) ListFailures(ctx context.Context, date string) ([]batch.Failure, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_date, sku_id, segment_id, stage, error
		FROM pricing_run_failures
		WHERE run_date = ?
		ORDER BY sku_id, segment_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	failures := make([]batch.Failure, 0)
	for rows.Next() {
		var f batch.Failure
		if err := rows.Scan(&f.Date, &f.EntityID, &f.SegmentID, &f.Stage, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
