// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/pricer/internal/database"
	"github.com/aristath/pricer/internal/modules/pricing"
	"github.com/aristath/pricer/internal/modules/pricing/batch"
	"github.com/aristath/pricer/internal/modules/pricing/demand"
	"github.com/aristath/pricer/internal/modules/pricing/guardrails"
	"github.com/aristath/pricer/internal/modules/pricing/optimizer"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/aristath/pricer/internal/modules/pricing/repository"
	"github.com/aristath/pricer/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// It is created by Wire() and passed to the server and CLI commands.
type Container struct {
	// Database
	PricingDB *database.DB

	// Repositories
	ContextRepo        *repository.ContextRepository
	RecommendationRepo *repository.RecommendationRepository
	SummaryRepo        *repository.SummaryRepository

	// Pricing core
	Policy    policy.Policy
	Model     *demand.LinearModel
	Pipeline  *guardrails.Pipeline
	Optimizer *optimizer.Optimizer
	Runner    *batch.Runner

	// Services
	PricingService *pricing.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered background jobs.
type JobInstances struct {
	PricingRun    *scheduler.PricingJob
	WALCheckpoint *scheduler.WALCheckpointJob
	Maintenance   *scheduler.MaintenanceJob
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.PricingDB != nil {
		return c.PricingDB.Close()
	}
	return nil
}
