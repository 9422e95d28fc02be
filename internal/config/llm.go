package config

// LLMConfig configures the internal/llm facade.
type LLMConfig struct {
	Provider string `yaml:"provider"` // genai, anthropic, openai, xai, zai, openrouter
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Timeout  string `yaml:"timeout"`

	// TierModels maps a capability tier (veryfast, fast, powerful, god) to a
	// concrete model name, letting a single provider serve all four
	// escalation tiers the Repair Engine (C10) needs.
	TierModels map[string]string `yaml:"tier_models,omitempty"`
}

// EmbeddingConfig configures the internal/embedding facade.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai
	OllamaEndpoint string `yaml:"ollama_endpoint,omitempty"`
	OllamaModel    string `yaml:"ollama_model,omitempty"`
	GenAIModel     string `yaml:"genai_model,omitempty"`
	Dimensions     int    `yaml:"dimensions"`
}
