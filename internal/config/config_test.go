package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "kernelforge", cfg.Name)
	require.Equal(t, "genai", cfg.LLM.Provider)
	require.Equal(t, 2, cfg.Scheduler.Workers)
	require.Equal(t, 5, cfg.Cron.MaxConsecErrs)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("XAI_API_KEY", "")
	t.Setenv("ZAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "sk-test"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "anthropic", loaded.LLM.Provider)
	require.Equal(t, "sk-test", loaded.LLM.APIKey)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "kernelforge", cfg.Name)
}
