package di

import (
	"fmt"

	"github.com/aristath/pricer/internal/config"
	"github.com/aristath/pricer/internal/modules/pricing"
	"github.com/aristath/pricer/internal/modules/pricing/batch"
	"github.com/aristath/pricer/internal/modules/pricing/demand"
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/guardrails"
	"github.com/aristath/pricer/internal/modules/pricing/optimizer"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/rs/zerolog"
)

// InitializeServices loads the policy and demand model, then builds the
// pricing core and service on top of the repositories.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	p, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("failed to load pricing policy: %w", err)
	}
	container.Policy = p

	model, err := demand.LoadLinearModel(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load demand model: %w", err)
	}
	container.Model = model

	reference, err := optimizer.ParseReference(cfg.Reference)
	if err != nil {
		return err
	}

	reasons := domain.DefaultReasonCodes()
	container.Pipeline = guardrails.NewPipeline(reasons)

	opt, err := optimizer.New(optimizer.Options{
		Multipliers: cfg.Multipliers,
		Reference:   reference,
		Oracle:      model,
		Pipeline:    container.Pipeline,
		Log:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to create optimizer: %w", err)
	}
	container.Optimizer = opt

	container.Runner = batch.NewRunner(opt, cfg.Workers, log).WithVocabulary(reasons)

	container.PricingService = pricing.NewService(
		container.ContextRepo,
		container.RecommendationRepo,
		container.Runner,
		p,
		model.Name,
		reference.Name(),
		log,
	)

	log.Info().
		Str("policy_version", p.Version).
		Str("model", model.Name).
		Str("reference", reference.Name()).
		Floats64("multipliers", opt.Multipliers()).
		Int("workers", container.Runner.Workers()).
		Msg("Pricing services initialized")
	return nil
}
