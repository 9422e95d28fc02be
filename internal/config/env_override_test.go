package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Run("sets provider when unset", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "gemini-key")
		t.Setenv("XAI_API_KEY", "")
		t.Setenv("ZAI_API_KEY", "")
		t.Setenv("OPENROUTER_API_KEY", "")

		cfg := &Config{}
		applyEnvOverrides(cfg)

		assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
		assert.Equal(t, "genai", cfg.LLM.Provider)
	})

	t.Run("does not override an explicit provider", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("XAI_API_KEY", "")
		t.Setenv("ZAI_API_KEY", "")
		t.Setenv("OPENROUTER_API_KEY", "")

		cfg := &Config{LLM: LLMConfig{Provider: "custom"}}
		applyEnvOverrides(cfg)

		assert.Equal(t, "anthropic-key", cfg.LLM.APIKey)
		assert.Equal(t, "custom", cfg.LLM.Provider)
	})

	t.Run("priority order favors anthropic over openai", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
		t.Setenv("OPENAI_API_KEY", "openai-key")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("XAI_API_KEY", "")
		t.Setenv("ZAI_API_KEY", "")
		t.Setenv("OPENROUTER_API_KEY", "")

		cfg := &Config{}
		applyEnvOverrides(cfg)

		assert.Equal(t, "anthropic-key", cfg.LLM.APIKey)
		assert.Equal(t, "anthropic", cfg.LLM.Provider)
	})
}
