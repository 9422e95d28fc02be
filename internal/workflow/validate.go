package workflow

import "fmt"

// validateGraph checks the two structural invariants spec.md §3 names for
// a Workflow Specification: the dependency graph is acyclic, and every
// dependency reference resolves to a known step. campaign/decomposer.go
// validates the equivalent phase/task graph by asserting facts into the
// teacher's internal/core Mangle kernel wrapper and querying back a
// "validation_error" predicate; that wrapper is specific to campaign's
// Phase/Task model and isn't carried into this module, and re-deriving
// the same two checks directly against google/mangle's low-level
// ast/engine/factstore API (rule construction, evaluation, fact
// iteration) without that wrapper as a reference is guesswork this module
// declines to ship. Plain graph traversal is the correct idiomatic-Go
// tool for cycle/reachability checks over a small, already-in-memory
// DAG — no third-party graph library appears anywhere in the example
// pack, so stdlib is the right call here (see DESIGN.md).
func validateGraph(steps []Step) ([]string, error) {
	ids := make(map[string]bool, len(steps))
	for _, s := range steps {
		ids[s.ID] = true
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if !ids[dep] {
				return nil, fmt.Errorf("workflow: step %q depends on unknown step %q", s.ID, dep)
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(steps))
	byID := make(map[string]Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	var problems []string
	var walk func(id string, path []string) bool
	walk = func(id string, path []string) bool {
		switch state[id] {
		case visited:
			return false
		case visiting:
			problems = append(problems, fmt.Sprintf("cyclic dependency involving step %q", id))
			return true
		}
		state[id] = visiting
		for _, dep := range byID[id].DependsOn {
			if walk(dep, append(path, id)) {
				return true
			}
		}
		state[id] = visited
		return false
	}
	for _, s := range steps {
		if state[s.ID] == unvisited {
			walk(s.ID, nil)
		}
	}
	return problems, nil
}
