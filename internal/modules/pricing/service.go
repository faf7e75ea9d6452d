// Package pricing runs daily price recommendation jobs.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/pricer/internal/modules/pricing/batch"
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/aristath/pricer/internal/modules/pricing/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextSource supplies the contexts of a pricing day.
type ContextSource interface {
	LatestDate(ctx context.Context) (string, error)
	LoadContexts(ctx context.Context, date string) ([]domain.PricingContext, error)
}

// RunStore persists the outcome of a run.
type RunStore interface {
	ReplaceRun(ctx context.Context, run *repository.Run) error
}

// RunResult is returned by a completed run.
type RunResult struct {
	RunID    string        `json:"run_id"`
	RunDate  string        `json:"run_date"`
	Contexts int           `json:"n_contexts"`
	Report   *batch.Report `json:"report"`
}

// Service loads a day's contexts, optimizes them and stores the result.
// Runs are serialized; a second caller waits for the first to finish.
type Service struct {
	contexts      ContextSource
	store         RunStore
	runner        *batch.Runner
	policy        policy.Policy
	modelName     string
	referenceName string
	mu            sync.Mutex
	log           zerolog.Logger
}

// NewService creates a pricing service. p is copied and never changed.
func NewService(
	contexts ContextSource,
	store RunStore,
	runner *batch.Runner,
	p policy.Policy,
	modelName string,
	referenceName string,
	log zerolog.Logger,
) *Service {
	return &Service{
		contexts:      contexts,
		store:         store,
		runner:        runner,
		policy:        p,
		modelName:     modelName,
		referenceName: referenceName,
		log:           log.With().Str("module", "pricing").Logger(),
	}
}

// Policy returns the policy runs are evaluated under.
func (s *Service) Policy() policy.Policy {
	return s.policy
}

// RunLatest prices the most recent feature date.
func (s *Service) RunLatest(ctx context.Context) (*RunResult, error) {
	date, err := s.contexts.LatestDate(ctx)
	if err != nil {
		return nil, err
	}
	return s.RunForDate(ctx, date)
}

// RunForDate prices every context of date and replaces any earlier run of
// the same date.
func (s *Service) RunForDate(ctx context.Context, date string) (*RunResult, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: run date %q is not YYYY-MM-DD", domain.ErrInvalidInput, date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Str("run_date", date).Logger()
	log.Info().Msg("Starting pricing run")

	contexts, err := s.contexts.LoadContexts(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load contexts: %w", err)
	}

	report, err := s.runner.Run(ctx, contexts, s.policy)
	if err != nil {
		return nil, fmt.Errorf("pricing run %s failed: %w", date, err)
	}

	run := &repository.Run{
		RunID:         runID,
		RunDate:       date,
		ModelName:     s.modelName,
		PolicyVersion: s.policy.Version,
		Reference:     s.referenceName,
		Contexts:      len(contexts),
		Report:        report,
	}
	if err := s.store.ReplaceRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store pricing run: %w", err)
	}

	log.Info().
		Int("contexts", len(contexts)).
		Int("recommendations", len(report.Recommendations)).
		Int("skipped", report.SkippedCount()).
		Int("failures", len(report.Failures)).
		Float64("total_expected_profit", report.Summary.TotalProfit).
		Msg("Pricing run finished")

	return &RunResult{
		RunID:    runID,
		RunDate:  date,
		Contexts: len(contexts),
		Report:   report,
	}, nil
}
