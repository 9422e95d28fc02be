package config

import "os"

// applyEnvOverrides layers environment-variable secrets onto a loaded
// Config, following the teacher's priority-ordered env-var detection in
// perception/client.go (ANTHROPIC > OPENAI > GEMINI > XAI > ZAI > OPENROUTER).
func applyEnvOverrides(cfg *Config) {
	if key, provider, ok := detectAPIKeyFromEnv(); ok {
		cfg.LLM.APIKey = key
		if cfg.LLM.Provider == "" {
			cfg.LLM.Provider = provider
		}
	}
}

func detectAPIKeyFromEnv() (key, provider string, ok bool) {
	type candidate struct {
		env      string
		provider string
	}
	candidates := []candidate{
		{"ANTHROPIC_API_KEY", "anthropic"},
		{"OPENAI_API_KEY", "openai"},
		{"GEMINI_API_KEY", "genai"},
		{"XAI_API_KEY", "xai"},
		{"ZAI_API_KEY", "zai"},
		{"OPENROUTER_API_KEY", "openrouter"},
	}
	for _, c := range candidates {
		if v := os.Getenv(c.env); v != "" {
			return v, c.provider, true
		}
	}
	return "", "", false
}
