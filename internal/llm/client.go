// Package llm implements the kernel's single LLM access point used by the
// Planner (C6), Workflow Decomposer (C7), Code Synthesizer (C8), and
// Repair Engine (C10). It collapses the teacher's six separate
// provider-specific clients (perception/client.go,
// client_{anthropic,openai,gemini,xai,zai,openrouter}.go) into one
// Generate call backed by google.golang.org/genai, with the teacher's
// DetectProvider env-var precedence (internal/config/user_config.go)
// still deciding which API key is active, and its role/tier dispatch
// concept (perception/client.go's model-tier selection) kept as the
// Tier type below.
package llm

import (
	"context"
	"fmt"

	"kernelforge/internal/config"
	"kernelforge/internal/logging"

	"google.golang.org/genai"
)

// Tier selects which configured model answers a request, trading latency
// for capability.
type Tier string

const (
	TierVeryFast Tier = "veryfast"
	TierFast     Tier = "fast"
	TierPowerful Tier = "powerful"
	TierGod      Tier = "god"
)

// Role tags a generation request with which component issued it, purely
// for logging/observability — it does not change routing.
type Role string

const (
	RolePlanner   Role = "planner"
	RoleWorkflow  Role = "workflow"
	RoleSynth     Role = "synth"
	RoleRepair    Role = "repair"
	RoleGeneral   Role = "general"
)

// GenerateOptions tunes a single Generate call.
type GenerateOptions struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int32
}

// Client is the kernel's sole LLM access point.
type Client struct {
	genai   *genai.Client
	model   string
	tiers   map[string]string
	timeout string
}

// New builds a Client from the resolved LLM configuration (API key and
// provider already decided by config.Load's env-override pass).
func New(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: no API key configured for provider %q", cfg.Provider)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}

	return &Client{
		genai:   client,
		model:   cfg.Model,
		tiers:   cfg.TierModels,
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) modelFor(tier Tier) string {
	if m, ok := c.tiers[string(tier)]; ok && m != "" {
		return m
	}
	return c.model
}

// Generate issues a single completion request and returns the model's
// text response.
func (c *Client) Generate(ctx context.Context, role Role, tier Tier, prompt string, opts GenerateOptions) (string, error) {
	log := logging.Get(logging.CategoryLLM)
	timer := logging.StartTimer(logging.CategoryLLM, "Generate")
	defer timer.Stop()

	model := c.modelFor(tier)
	log.Debugw("generating", "role", role, "tier", tier, "model", model, "prompt_len", len(prompt))

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	genCfg := &genai.GenerateContentConfig{}
	if opts.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}
	if opts.Temperature > 0 {
		genCfg.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		genCfg.MaxOutputTokens = opts.MaxTokens
	}

	result, err := generateWithRetry(ctx, c.genai, model, contents, genCfg)
	if err != nil {
		log.Errorw("generate failed", "role", role, "tier", tier, "model", model, "error", err)
		return "", fmt.Errorf("llm: generate: %w", err)
	}

	text := result.Text()
	log.Debugw("generate succeeded", "role", role, "tier", tier, "response_len", len(text))
	return text, nil
}

// Close releases the underlying client (a no-op for genai today, kept for
// symmetry with the embedding engine's lifecycle).
func (c *Client) Close() error { return nil }
