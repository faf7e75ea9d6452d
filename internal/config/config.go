// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aristath/pricer/internal/modules/pricing/optimizer"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds process configuration. Pricing policy lives in its own YAML
// file (PolicyPath) and is loaded by the policy package.
type Config struct {
	DataDir     string    // Base directory for the database and model (always absolute)
	DBPath      string    // Defaults to <DataDir>/pricing.db
	PolicyPath  string    // Optional; built-in defaults when empty
	ModelPath   string    // Demand model snapshot; defaults to <DataDir>/demand_model.json
	Multipliers []float64 // Candidate action space; optimizer.DefaultMultipliers when unset
	Reference   string    // Any name optimizer.ParseReference accepts
	Workers     int
	Schedule    string // Cron spec with seconds; empty disables scheduled runs
	Retention   int    // Days of stored runs to keep; 0 keeps everything
	LogLevel    string
	Port        int
	DevMode     bool
}

// Load reads configuration from the environment (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("PRICER_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	multipliers, err := parseFloats(getEnv("PRICER_MULTIPLIERS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid PRICER_MULTIPLIERS: %w", err)
	}
	if len(multipliers) == 0 {
		multipliers = append([]float64(nil), optimizer.DefaultMultipliers...)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		DBPath:      getEnv("PRICER_DB_PATH", filepath.Join(absDataDir, "pricing.db")),
		PolicyPath:  getEnv("PRICER_POLICY_PATH", ""),
		ModelPath:   getEnv("PRICER_MODEL_PATH", filepath.Join(absDataDir, "demand_model.json")),
		Multipliers: multipliers,
		Reference:   strings.ToLower(getEnv("PRICER_REFERENCE", "msrp")),
		Workers:     getEnvAsInt("PRICER_WORKERS", 10),
		Schedule:    getEnv("PRICER_SCHEDULE", ""),
		Retention:   getEnvAsInt("PRICER_RETENTION_DAYS", 90),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnvAsInt("GO_PORT", 8001),
		DevMode:     getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535 (got %d)", c.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("PRICER_WORKERS must be positive (got %d)", c.Workers)
	}
	if c.Retention < 0 {
		return fmt.Errorf("PRICER_RETENTION_DAYS must not be negative (got %d)", c.Retention)
	}
	if _, err := optimizer.ParseReference(c.Reference); err != nil {
		return fmt.Errorf("invalid PRICER_REFERENCE: %w", err)
	}
	if len(c.Multipliers) == 0 {
		return fmt.Errorf("at least one candidate multiplier is required")
	}
	for _, m := range c.Multipliers {
		if m <= 0 {
			return fmt.Errorf("candidate multipliers must be positive (got %v)", m)
		}
	}
	if c.Schedule != "" {
		if _, err := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(c.Schedule); err != nil {
			return fmt.Errorf("invalid PRICER_SCHEDULE %q: %w", c.Schedule, err)
		}
	}
	return nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		out = append(out, v)
	}
	return out, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
