package synth

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
)

// OperationClass classifies what shape of transformation a node performs,
// per spec.md §3's Interface Manifest.
type OperationClass string

const (
	OpGenerator   OperationClass = "generator"
	OpTransformer OperationClass = "transformer"
	OpCombiner    OperationClass = "combiner"
	OpSplitter    OperationClass = "splitter"
	OpFilter      OperationClass = "filter"
	OpValidator   OperationClass = "validator"
)

// InterfaceManifest describes a node's input/output surface, per spec.md
// §3: "every input field referenced by the code must appear in the
// manifest."
type InterfaceManifest struct {
	Inputs      []string       `json:"inputs"`
	Outputs     []string       `json:"outputs"`
	Operation   OperationClass `json:"operation"`
	Description string         `json:"description"`
}

var argAccessPattern = regexp.MustCompile(`args\["([a-zA-Z0-9_]+)"\]|args\.([a-zA-Z0-9_]+)`)

// inferManifest asks the LLM to propose a manifest and falls back to a
// pattern scan over args["<name>"]-style accesses when the LLM's answer
// doesn't parse, per spec.md §4.8.
func (s *Synthesizer) inferManifest(ctx context.Context, code, task string) InterfaceManifest {
	log := logging.Get(logging.CategorySynth)

	prompt := "Given this Go function and task, respond with ONLY JSON " +
		`{"inputs":["..."],"outputs":["..."],"operation":"generator|transformer|combiner|splitter|filter|validator","description":"..."}` +
		".\n\nTask: " + task + "\n\nCode:\n" + code

	if resp, err := s.llm.Generate(ctx, llm.RoleSynth, llm.TierVeryFast, prompt, llm.GenerateOptions{Temperature: 0}); err == nil {
		var manifest InterfaceManifest
		if jsonErr := json.Unmarshal([]byte(stripFencedBlocks(strings.TrimSpace(resp))), &manifest); jsonErr == nil && len(manifest.Inputs) >= 0 {
			return manifest
		}
	} else {
		log.Warnw("interface manifest LLM call failed, falling back to pattern scan", "error", err)
	}

	return scanManifest(code)
}

func scanManifest(code string) InterfaceManifest {
	seen := map[string]bool{}
	var inputs []string
	for _, m := range argAccessPattern.FindAllStringSubmatch(code, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			inputs = append(inputs, name)
		}
	}

	return InterfaceManifest{
		Inputs:    inputs,
		Outputs:   []string{"result"},
		Operation: inferOperationClass(len(inputs), strings.Contains(code, "CallTool")),
	}
}

func inferOperationClass(inputCount int, callsTools bool) OperationClass {
	switch {
	case inputCount == 0:
		return OpGenerator
	case callsTools && inputCount > 1:
		return OpCombiner
	case inputCount == 1:
		return OpTransformer
	default:
		return OpCombiner
	}
}
