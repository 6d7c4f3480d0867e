package workflowinstanceintake

import (
	"fmt"
	"time"

	"workflow-intake/internal/common/config"
)

type Config struct {
	Enabled           bool          `mapstructure:"enabled"`
	MaxJobsActive     int           `mapstructure:"max_jobs_active"`
	Timeout           time.Duration `mapstructure:"timeout"`
	BeginningStage    string        `mapstructure:"beginning_stage"`
	IterationMaxCount int           `mapstructure:"iteration_max_count"`
	// Atomic wraps the sync and status writes in one transaction.
	Atomic bool `mapstructure:"atomic"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		MaxJobsActive:     5,
		Timeout:           30 * time.Second,
		IterationMaxCount: 10000,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.BeginningStage == "" {
		return fmt.Errorf("beginning_stage is required")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[TaskType]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
			}
		}

		cfg.BeginningStage = appConfig.Workflow.Instance.BeginningStage
		if appConfig.Workflow.LostRID.IterationMaxCount > 0 {
			cfg.IterationMaxCount = appConfig.Workflow.LostRID.IterationMaxCount
		}
		cfg.Atomic = appConfig.Workflow.Intake.Atomic
	}

	return cfg
}

// NewConfig resolves the worker configuration from the application config.
func NewConfig(appConfig *config.Config) (*Config, error) {
	cfg := createConfigFromAppConfig(appConfig, nil)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	return cfg, nil
}
