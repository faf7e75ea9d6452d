package di

import (
	"fmt"

	"github.com/aristath/pricer/internal/config"
	"github.com/aristath/pricer/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	walCheckpointSchedule = "0 0 * * * *" // hourly
	maintenanceSchedule   = "0 0 3 * * *" // 03:00 daily
)

// RegisterJobs creates the scheduler and registers background jobs.
// The pricing run is only scheduled when cfg.Schedule is set; it can
// still be triggered through the API or pricectl.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	container.Scheduler = sched

	jobs := &JobInstances{
		PricingRun:    scheduler.NewPricingJob(container.PricingService, 0, log),
		WALCheckpoint: scheduler.NewWALCheckpointJob(container.PricingDB, log),
		Maintenance:   scheduler.NewMaintenanceJob(container.PricingDB, container.RecommendationRepo, cfg.Retention, log),
	}

	if err := sched.AddJob(walCheckpointSchedule, jobs.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", jobs.WALCheckpoint.Name(), err)
	}
	if err := sched.AddJob(maintenanceSchedule, jobs.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", jobs.Maintenance.Name(), err)
	}

	if cfg.Schedule != "" {
		if err := sched.AddJob(cfg.Schedule, jobs.PricingRun); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", jobs.PricingRun.Name(), err)
		}
	} else {
		log.Info().Msg("PRICER_SCHEDULE not set, scheduled pricing runs disabled")
	}

	return jobs, nil
}
