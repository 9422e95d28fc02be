package registry

import (
	"context"
	"encoding/json"
	"fmt"
)

// CanonicalAliases are the input-field names spec.md §4.5 populates from
// a free-form description when the caller supplies nothing more
// structured: a node written to read any one of these fields from its
// JSON input can be invoked with a bare description.
var CanonicalAliases = []string{"input", "task", "description", "query", "topic", "prompt", "question", "request"}

// CanonicalInput builds the §4.5 alias map: description bound to every
// canonical field name.
func CanonicalInput(description string) map[string]string {
	in := make(map[string]string, len(CanonicalAliases))
	for _, alias := range CanonicalAliases {
		in[alias] = description
	}
	return in
}

// Invoke runs a registered node's main.go as a subprocess, with
// inputMap JSON-encoded on stdin, per spec.md §4.5's run(id, input_map)
// contract. The caller supplies inputMap already built — via
// CanonicalInput for a bare description, or a caller-assembled map when
// more specific fields are known.
func (r *Runner) Invoke(ctx context.Context, node Node, inputMap map[string]string) (*RunResult, error) {
	payload, err := json.Marshal(inputMap)
	if err != nil {
		return nil, fmt.Errorf("registry: marshal input map: %w", err)
	}
	return r.RunInWithStdin(ctx, node.Path, "go", []string{"run", "main.go"}, payload, 0)
}
