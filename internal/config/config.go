// Package config loads and defaults the kernel's YAML configuration,
// mirroring the teacher's per-section struct + DefaultConfig layout.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the kernel's full configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cron      CronConfig      `yaml:"cron"`
	Registry  RegistryConfig  `yaml:"registry"`
	Execution ExecutionConfig `yaml:"execution"`
	Repair    RepairConfig    `yaml:"repair"`
	Logging   LoggingConfig   `yaml:"logging"`
	Limits    CoreLimits      `yaml:"core_limits"`
}

// Default returns the kernel's default configuration.
func Default() *Config {
	return &Config{
		Name:    "kernelforge",
		Version: "0.1.0",

		LLM: LLMConfig{
			Provider: "genai",
			Model:    "gemini-2.5-flash",
			Timeout:  "60s",
		},

		Embedding: EmbeddingConfig{
			Provider:   "genai",
			GenAIModel: "gemini-embedding-001",
			Dimensions: 768,
		},

		Store: StoreConfig{
			DatabasePath:         "data/kernel.db",
			VectorSimilarityFunc: "cosine",
			RequireVectorIndex:   false,
		},

		Scheduler: SchedulerConfig{
			Workers:              2,
			QueueCapacity:        1000,
			BackgroundMinGapMS:   100,
		},

		Cron: CronConfig{
			PersistPath:   "data/scheduled_tasks/tasks.json",
			MaxConsecErrs: 5,
		},

		Registry: RegistryConfig{
			RootDir:      "nodes",
			IndexPath:    "registry/index.json",
			RunTimeout:   "30s",
			WatchIndex:   true,
		},

		Execution: DefaultExecutionConfig(),

		Repair: RepairConfig{
			FixPatternSuccessThreshold: 0.75,
		},

		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},

		Limits: CoreLimits{
			MaxConcurrentLLMCalls: 5,
			MaxFactsInKernel:      250000,
		},
	}
}

// Load reads YAML configuration from path, falling back to Default if the
// file does not exist, then applies environment-variable overrides for
// secrets (API keys).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}
