package di

import (
	"fmt"

	"github.com/aristath/pricer/internal/config"
	"github.com/aristath/pricer/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens pricing.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	pricingDB, err := database.New(database.Config{
		Path:    cfg.DBPath,
		Profile: database.ProfileStandard,
		Name:    "pricing",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pricing database: %w", err)
	}

	if err := pricingDB.Migrate(); err != nil {
		pricingDB.Close()
		return nil, fmt.Errorf("failed to migrate pricing database: %w", err)
	}

	log.Info().Str("path", pricingDB.Path()).Msg("Pricing database ready")
	return &Container{PricingDB: pricingDB}, nil
}
