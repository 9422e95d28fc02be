package tools

import (
	"context"
	"fmt"
)

// Generator is satisfied by internal/kernel's adapter over
// internal/llm.Client. It lives here (rather than importing internal/llm
// directly) so internal/tools has no
// dependency on the component that most needs it, matching the shim's
// job of dispatching to an LLM, a subprocess, or a workflow without
// knowing which concrete package backs any of them.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RegisterBuiltins wires the tools every generated node can assume exist:
// a catch-all LLM-backed synthesis helper and an LLM-backed summarizer.
// Subprocess tools are registered by the kernel composition root once it
// knows which binaries are allowed; no workflow-backed tools are
// registered.
func RegisterBuiltins(r *Registry, gen Generator) error {
	if err := r.Register(&Tool{
		Name:        "general_synthesis",
		Description: "General-purpose LLM completion for a node that needs outside help synthesizing a value.",
		Category:    CategoryLLM,
		Schema: ToolSchema{
			Required:   []string{"prompt"},
			Properties: map[string]Property{"prompt": {Type: "string", Description: "the prompt to send"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			prompt, _ := args["prompt"].(string)
			return gen.Generate(ctx, prompt)
		},
	}); err != nil {
		return fmt.Errorf("tools: register general_synthesis: %w", err)
	}

	if err := r.Register(&Tool{
		Name:        "summarize",
		Description: "Summarizes the given text via LLM completion.",
		Category:    CategoryLLM,
		Schema: ToolSchema{
			Required:   []string{"prompt"},
			Properties: map[string]Property{"prompt": {Type: "string", Description: "text to summarize"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			prompt, _ := args["prompt"].(string)
			return gen.Generate(ctx, "Summarize the following:\n\n"+prompt)
		},
	}); err != nil {
		return fmt.Errorf("tools: register summarize: %w", err)
	}

	return nil
}
