// Package synth implements the Code Synthesizer (C8): generates Go
// source for a requested node, cleans the LLM's raw response, repairs
// known structural gaps, formats it, and proposes an interface manifest.
// Grounded on internal/autopoiesis/toolgen.go's GeneratedTool/ToolSchema
// shape and its LLM-generate-then-validate flow, generalized from the
// teacher's fixed "tool" concept to spec.md §4.8's arbitrary synthesized
// node, and on internal/autopoiesis/yaegi_executor.go's
// validateImports/wrapCode pair, re-purposed here as the structural
// auto-repair step rather than a sandboxing gate (sandboxed execution
// itself belongs to the Test Harness, internal/harness).
package synth

import (
	"context"
	"fmt"

	"kernelforge/internal/fixpattern"
	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
	"kernelforge/internal/tools"
)

const (
	maxAttempts      = 3
	baseTemperature  = 0.2
	temperatureStep  = 0.05
)

// Result is a synthesized node ready for the Test Harness.
type Result struct {
	Code      string
	Manifest  InterfaceManifest
	Attempts  int
	ToolUsed  string
}

// Synthesizer generates and repairs Go source for a requested node.
type Synthesizer struct {
	llm     *llm.Client
	tools   *tools.Registry
	fixes   *fixpattern.Library
}

// New builds a Synthesizer over the shared LLM client, tool registry, and
// fix pattern library (consulted when the formatter step fails).
func New(client *llm.Client, registry *tools.Registry, fixes *fixpattern.Library) *Synthesizer {
	return &Synthesizer{llm: client, tools: registry, fixes: fixes}
}

// chooseTool picks a specialized tool whose description best matches the
// task if one clears similarityThreshold, otherwise falls back to the
// general-purpose synthesis tool — spec.md §4.8's "specialized if one
// matches the task ≥ similarity threshold, else general".
const similarityThreshold = 0.6

func (s *Synthesizer) chooseTool(task string) string {
	best, bestScore := "", 0.0
	for _, t := range s.tools.FilterByCategory(tools.CategoryLLM) {
		score := tokenOverlap(task, t.Description)
		if score > bestScore {
			best, bestScore = t.Name, score
		}
	}
	if bestScore >= similarityThreshold {
		return best
	}
	return "general_synthesis"
}

// tokenOverlap is a cheap Jaccard-style similarity over lowercase words,
// matching the threshold-gated specialization check without requiring a
// full embedding round trip for every candidate tool.
func tokenOverlap(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	shared := 0
	for w := range wa {
		if wb[w] {
			shared++
		}
	}
	union := len(wa) + len(wb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	word := ""
	flush := func() {
		if word != "" {
			set[word] = true
			word = ""
		}
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			word += string(r)
		} else {
			flush()
		}
	}
	flush()
	return set
}

// Synthesize runs the full generate → clean → repair → format pipeline,
// retrying up to maxAttempts times with an increasing temperature on
// failure, per spec.md §4.8.
func (s *Synthesizer) Synthesize(ctx context.Context, task, language string) (*Result, error) {
	log := logging.Get(logging.CategorySynth)
	toolName := s.chooseTool(task)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		temp := baseTemperature + float32(attempt)*temperatureStep
		log.Debugw("synthesis attempt", "attempt", attempt, "tool", toolName, "temperature", temp)

		raw, err := s.llm.Generate(ctx, llm.RoleSynth, llm.TierFast, synthPrompt(task, language), llm.GenerateOptions{Temperature: temp})
		if err != nil {
			lastErr = err
			continue
		}

		code, err := cleanResponse(raw)
		if err != nil {
			lastErr = err
			continue
		}

		code = autoRepair(code, task)

		formatted, err := formatSource(ctx, code, s.fixes, language)
		if err != nil {
			lastErr = err
			continue
		}

		manifest := s.inferManifest(ctx, formatted, task)
		return &Result{Code: formatted, Manifest: manifest, Attempts: attempt + 1, ToolUsed: toolName}, nil
	}

	return nil, fmt.Errorf("synth: exhausted %d attempts: %w", maxAttempts, lastErr)
}

func synthPrompt(task, language string) string {
	return fmt.Sprintf(`Write a single %s function that satisfies this task. Respond with ONLY the
source code, no explanation, no markdown fences.

Task: %s`, language, task)
}
