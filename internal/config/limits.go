package config

import "fmt"

// CoreLimits enforces kernel-wide resource constraints.
type CoreLimits struct {
	MaxConcurrentLLMCalls int `yaml:"max_concurrent_llm_calls"`
	MaxFactsInKernel      int `yaml:"max_facts_in_kernel"` // range-checked by Validate; no component reads it
}

// Validate checks that limits are within acceptable ranges.
func (c *CoreLimits) Validate() error {
	if c.MaxConcurrentLLMCalls < 1 {
		return fmt.Errorf("max_concurrent_llm_calls must be >= 1")
	}
	if c.MaxFactsInKernel < 1000 {
		return fmt.Errorf("max_facts_in_kernel must be >= 1000")
	}
	return nil
}
