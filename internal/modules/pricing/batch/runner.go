// Package batch evaluates many pricing contexts in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/optimizer"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/rs/zerolog"
)

// DefaultWorkers is used when a non-positive worker count is requested.
const DefaultWorkers = 10

// StageContext is the failure stage of a context rejected before any
// guardrail ran.
const StageContext = "context"

// SkippedContext is a context excluded for lack of a usable reference price.
type SkippedContext struct {
	EntityID  string `json:"entity_id"`
	SegmentID string `json:"segment_id"`
	Date      string `json:"date"`
	Reason    string `json:"reason"`
}

// Failure is a context whose evaluation failed. Other contexts are unaffected.
type Failure struct {
	EntityID  string `json:"entity_id"`
	SegmentID string `json:"segment_id"`
	Date      string `json:"date"`
	Stage     string `json:"stage,omitempty"` // Guardrail stage or StageContext, when known
	Error     string `json:"error"`
	err       error
}

// Err returns the underlying evaluation error.
func (f Failure) Err() error {
	return f.err
}

// Report is the outcome of one batch run, in input order.
type Report struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Skipped         []SkippedContext        `json:"skipped"`
	Failures        []Failure               `json:"failures"`
	Summary         Summary                 `json:"summary"`
	Duration        time.Duration           `json:"duration"`
}

// SkippedCount is the number of contexts without a recommendation because
// they had no reference price.
func (r *Report) SkippedCount() int {
	return len(r.Skipped)
}

// Runner fans contexts out to a fixed worker pool sharing one optimizer and
// one read-only policy.
type Runner struct {
	optimizer  *optimizer.Optimizer
	numWorkers int
	vocabulary []domain.ReasonCode
	log        zerolog.Logger
}

// NewRunner creates a runner with the given number of workers.
func NewRunner(opt *optimizer.Optimizer, workers int, log zerolog.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		optimizer:  opt,
		numWorkers: workers,
		vocabulary: domain.DefaultReasonCodes().Ordered(),
		log:        log.With().Str("component", "batch_runner").Logger(),
	}
}

// WithVocabulary sets the reason codes counted in the run summary.
func (r *Runner) WithVocabulary(codes domain.ReasonCodes) *Runner {
	r.vocabulary = codes.Ordered()
	return r
}

// Workers returns the pool size.
func (r *Runner) Workers() int {
	return r.numWorkers
}

type jobItem struct {
	index int
	pc    domain.PricingContext
}

type resultItem struct {
	index   int
	outcome optimizer.Outcome
	err     error
}

// Run optimizes every context and assembles the report in input order.
//
// Per-context failures are collected in the report, including contexts that
// break their data contract. Any other ErrInvalidInput is a programming error
// in candidate generation and aborts the whole run, as does cancellation of
// ctx.
func (r *Runner) Run(ctx context.Context, contexts []domain.PricingContext, p policy.Policy) (*Report, error) {
	start := time.Now()
	report := &Report{
		Recommendations: []domain.Recommendation{},
		Skipped:         []SkippedContext{},
		Failures:        []Failure{},
	}
	if len(contexts) == 0 {
		report.Summary = Summarize(nil, r.vocabulary)
		return report, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan jobItem)
	results := make(chan resultItem, len(contexts))

	var (
		fatalOnce sync.Once
		fatalErr  error
	)
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	numActualWorkers := r.numWorkers
	if len(contexts) < numActualWorkers {
		numActualWorkers = len(contexts)
	}

	var wg sync.WaitGroup
	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(runCtx, jobs, results, p, abort)
		}()
	}

	// Dispatch until done or cancelled
	go func() {
		defer close(jobs)
		for idx, pc := range contexts {
			select {
			case jobs <- jobItem{index: idx, pc: pc}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]*resultItem, len(contexts))
	for res := range results {
		outcomes[res.index] = &res
	}

	if fatalErr != nil {
		r.log.Error().Err(fatalErr).Msg("Pricing run aborted")
		return nil, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pricing run cancelled: %w", err)
	}

	for i, res := range outcomes {
		pc := contexts[i]
		switch {
		case res == nil:
			// Unreachable without cancellation
			continue
		case res.err != nil:
			report.Failures = append(report.Failures, newFailure(pc, res.err))
		case res.outcome.Skipped:
			report.Skipped = append(report.Skipped, SkippedContext{
				EntityID:  pc.EntityID,
				SegmentID: pc.SegmentID,
				Date:      pc.Date,
				Reason:    res.outcome.SkipReason,
			})
		default:
			report.Recommendations = append(report.Recommendations, domain.NewRecommendation(pc, *res.outcome.Best))
		}
	}

	report.Summary = Summarize(report.Recommendations, r.vocabulary)
	report.Duration = time.Since(start)

	r.log.Info().
		Int("contexts", len(contexts)).
		Int("recommendations", len(report.Recommendations)).
		Int("skipped", len(report.Skipped)).
		Int("failures", len(report.Failures)).
		Dur("duration", report.Duration).
		Msg("Pricing run completed")

	return report, nil
}

func (r *Runner) worker(
	ctx context.Context,
	jobs <-chan jobItem,
	results chan<- resultItem,
	p policy.Policy,
	abort func(error),
) {
	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}

		outcome, err := r.optimizer.Optimize(job.pc, p)
		if err != nil {
			if isFatal(err) {
				abort(fmt.Errorf("context %s: %w", job.pc.Key(), err))
				continue
			}
			r.log.Warn().Err(err).Str("context", job.pc.Key()).Msg("Context evaluation failed")
		}

		results <- resultItem{index: job.index, outcome: outcome, err: err}
	}
}

// isFatal reports whether err invalidates the whole run rather than one
// context.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrContractViolation)
}

func newFailure(pc domain.PricingContext, err error) Failure {
	f := Failure{
		EntityID:  pc.EntityID,
		SegmentID: pc.SegmentID,
		Date:      pc.Date,
		Error:     err.Error(),
		err:       err,
	}
	var stageErr *domain.StageError
	switch {
	case errors.As(err, &stageErr):
		f.Stage = stageErr.Stage
	case errors.Is(err, domain.ErrContractViolation):
		f.Stage = StageContext
	}
	return f
}
