package kernel

import (
	"context"

	"kernelforge/internal/llm"
	"kernelforge/internal/tools"
)

// llmGenerator adapts internal/llm.Client to tools.Generator, fixing the
// role/tier/temperature a builtin tool call uses so internal/tools never
// needs to know about llm.Role or llm.Tier.
type llmGenerator struct {
	client *llm.Client
}

func newGenerator(client *llm.Client) tools.Generator {
	return &llmGenerator{client: client}
}

func (g *llmGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Generate(ctx, llm.RoleGeneral, llm.TierFast, prompt, llm.GenerateOptions{Temperature: 0.3})
}
