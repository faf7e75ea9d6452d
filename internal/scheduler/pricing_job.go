package scheduler

import (
	"context"
	"time"

	"github.com/aristath/pricer/internal/modules/pricing"
	"github.com/rs/zerolog"
)

// LatestRunner prices the most recent feature date.
type LatestRunner interface {
	RunLatest(ctx context.Context) (*pricing.RunResult, error)
}

// PricingJob runs the daily pricing job.
type PricingJob struct {
	service LatestRunner
	timeout time.Duration
	log     zerolog.Logger
}

// NewPricingJob creates a pricing job bounded by timeout (30 minutes when
// zero).
func NewPricingJob(service LatestRunner, timeout time.Duration, log zerolog.Logger) *PricingJob {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &PricingJob{
		service: service,
		timeout: timeout,
		log:     log.With().Str("job", "pricing_run").Logger(),
	}
}

// Name returns the job name
func (j *PricingJob) Name() string {
	return "pricing_run"
}

// Run executes the pricing job
func (j *PricingJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.service.RunLatest(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("run_id", result.RunID).
		Str("run_date", result.RunDate).
		Int("recommendations", len(result.Report.Recommendations)).
		Msg("Scheduled pricing run stored")
	return nil
}
