package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RunPruner deletes stored runs older than a cutoff date.
type RunPruner interface {
	PruneBefore(ctx context.Context, cutoff string) (int64, error)
}

// HealthChecker verifies database integrity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MaintenanceJob performs daily database maintenance:
// integrity check, then pruning runs older than the retention window.
type MaintenanceJob struct {
	db        HealthChecker
	pruner    RunPruner
	retention int
	now       func() time.Time
	log       zerolog.Logger
}

// NewMaintenanceJob creates a maintenance job keeping retentionDays of runs.
func NewMaintenanceJob(db HealthChecker, pruner RunPruner, retentionDays int, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:        db,
		pruner:    pruner,
		retention: retentionDays,
		now:       time.Now,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	if err := j.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	// Runs dated before the cutoff fall outside the window
	var removed int64
	if j.retention > 0 {
		cutoff := j.now().AddDate(0, 0, -j.retention).Format("2006-01-02")
		n, err := j.pruner.PruneBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune runs before %s: %w", cutoff, err)
		}
		removed = n
	}

	j.log.Info().
		Int64("runs_pruned", removed).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed")
	return nil
}
