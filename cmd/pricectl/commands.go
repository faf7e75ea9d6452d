package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/aristath/pricer/internal/di"
	"github.com/aristath/pricer/internal/modules/pricing"
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/guardrails"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/aristath/pricer/pkg/logger"
)

// =============================================================================
// RUN COMMAND
// =============================================================================

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Price every context of a day and store the run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "Run date (YYYY-MM-DD); defaults to the latest feature date",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.New(newLogger(c))

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()
	service := container.PricingService

	var result *pricing.RunResult
	if date := c.String("date"); date != "" {
		result, err = service.RunForDate(ctx, date)
	} else {
		result, err = service.RunLatest(ctx)
	}
	if err != nil {
		return err
	}

	printRunResult(c.App.Writer, result)
	return nil
}

// =============================================================================
// INSPECT COMMAND
// =============================================================================

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the top recommendations and reason counts of a stored run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "Run date (YYYY-MM-DD); defaults to the latest run",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Number of recommendations to show",
			},
		},
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.New(newLogger(c))

	// Inspection only reads pricing.db; the demand model is not needed.
	container, err := di.InitializeDatabases(cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()
	di.InitializeRepositories(container, log)

	ctx := context.Background()
	date := c.String("date")
	if date == "" {
		if date, err = container.RecommendationRepo.LatestRunDate(ctx); err != nil {
			return err
		}
	}

	run, err := container.RecommendationRepo.GetRun(ctx, date)
	if err != nil {
		return err
	}
	summary, err := container.SummaryRepo.Get(ctx, date)
	if err != nil {
		return err
	}
	recs, err := container.RecommendationRepo.List(ctx, date, c.Int("limit"))
	if err != nil {
		return err
	}

	printInspection(c.App.Writer, run, summary, recs, domain.DefaultReasonCodes().Ordered())
	return nil
}

// =============================================================================
// CHECK COMMAND
// =============================================================================

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Run one candidate price through the guardrail pipeline",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "price", Usage: "Candidate price", Required: true},
			&cli.Float64Flag{Name: "cost", Usage: "Unit cost", Required: true},
			&cli.Float64Flag{Name: "msrp", Usage: "MSRP (ceiling)"},
			&cli.Float64Flag{Name: "map", Usage: "Minimum advertised price"},
			&cli.Float64Flag{Name: "yesterday", Usage: "Yesterday's price"},
			&cli.Float64Flag{Name: "competitor", Usage: "Competitor price"},
			&cli.Float64Flag{Name: "days-of-cover", Usage: "Inventory days of cover"},
			&cli.Float64Flag{Name: "promo-price", Usage: "Active promotional price"},
			&cli.BoolFlag{Name: "kvi", Usage: "Treat the item as a key-value item"},
		},
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	p, err := policy.Load(c.String("policy"))
	if err != nil {
		return err
	}

	pc := checkContext(c)
	if err := pc.Validate(); err != nil {
		return err
	}

	pipeline := guardrails.NewPipeline(domain.DefaultReasonCodes())
	result, err := pipeline.Apply(c.Float64("price"), pc, p)
	if err != nil {
		return fmt.Errorf("guardrails rejected the candidate: %w", err)
	}

	band, hasBand := guardrails.Band(pc, p)
	printCheck(c.App.Writer, c.Float64("price"), result, band, hasBand, p)
	return nil
}

// checkContext builds a context from the check flags. Unset optional flags
// stay absent.
func checkContext(c *cli.Context) domain.PricingContext {
	optional := func(name string) *float64 {
		if !c.IsSet(name) {
			return nil
		}
		return domain.Float(c.Float64(name))
	}

	pc := domain.PricingContext{
		EntityID:        "cli",
		SegmentID:       "cli",
		UnitCost:        c.Float64("cost"),
		MSRP:            optional("msrp"),
		MAPPrice:        optional("map"),
		CompetitorPrice: optional("competitor"),
		YesterdayPrice:  optional("yesterday"),
		DaysOfCover:     optional("days-of-cover"),
		IsKVI:           c.Bool("kvi"),
	}
	if c.IsSet("promo-price") {
		pc.PromoActive = true
		pc.PromoPrice = optional("promo-price")
	}
	return pc
}
