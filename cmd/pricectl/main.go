// pricectl runs and inspects pricing from the command line.
//
// Usage:
//
//	pricectl run [--date 2024-06-30]
//	pricectl inspect [--date 2024-06-30] [--limit 20]
//	pricectl check --price 130 --cost 60 --msrp 149.99 --yesterday 99.99
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/aristath/pricer/internal/config"
	"github.com/aristath/pricer/pkg/logger"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pricectl",
		Usage:   "Run, inspect and dry-run guardrailed price recommendations",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "policy",
				Usage:   "Path to a policy YAML file",
				EnvVars: []string{"PRICER_POLICY_PATH"},
			},
		},

		Commands: []*cli.Command{
			runCommand(),
			inspectCommand(),
			checkCommand(),
		},
	}
}

// loadConfig reads process configuration and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.IsSet("policy") {
		cfg.PolicyPath = c.String("policy")
	}
	return cfg, nil
}

func newLogger(c *cli.Context) logger.Config {
	return logger.Config{
		Level:  c.String("log-level"),
		Pretty: true,
		Output: os.Stderr,
	}
}
