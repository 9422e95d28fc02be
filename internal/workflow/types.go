// Package workflow implements the Workflow Decomposer (C7): turns a
// multi-operation request into a directed acyclic graph of steps ready
// for the Code Synthesizer (C8) to execute one at a time or in parallel
// groups. Grounded directly on internal/campaign/decomposer.go's overall
// shape — LLM proposes a structured plan, the plan is checked (here by
// plain graph traversal in validate.go), failures are fed back to the LLM
// for one refinement pass — generalized from campaign's phase/task hierarchy down to
// spec.md §3's flatter Workflow Specification (steps with input mappings
// and parallel groups, not phases-of-tasks).
package workflow

// InputSource names where a step's input value comes from.
type InputSource string

const (
	SourceLiteral      InputSource = "literal"
	SourceWorkflowArg  InputSource = "workflow_input"
	SourceStepOutput   InputSource = "step_output"
)

// InputRef resolves one input parameter of a step.
type InputRef struct {
	Source   InputSource `json:"source"`
	Literal  any         `json:"literal,omitempty"`
	ArgName  string      `json:"arg_name,omitempty"`
	StepID   string      `json:"step_id,omitempty"`
	Field    string      `json:"field,omitempty"`
}

// Step is one node of the workflow DAG, matching spec.md §3's Workflow
// Specification step shape.
type Step struct {
	ID            string              `json:"id"`
	Description   string              `json:"description"`
	Tool          string              `json:"tool,omitempty"`
	Inputs        map[string]InputRef `json:"inputs"`
	OutputName    string              `json:"output_name,omitempty"`
	ParallelGroup string              `json:"parallel_group,omitempty"`
	DependsOn     []string            `json:"depends_on"`
}

// Spec is a full workflow: a DAG of steps plus the request it answers.
type Spec struct {
	Request string `json:"request"`
	Steps   []Step `json:"steps"`
	Depth   int    `json:"depth"`
}

// ExecutionGroup is one batch of steps ready to run — all dependencies
// already satisfied by prior groups.
type ExecutionGroup struct {
	Steps []Step
}

// multiOpKeywords are the trigger words spec.md §4.7 names: a request
// containing one of these as a whole word, and longer than four words,
// gets decomposed rather than synthesized directly.
var multiOpKeywords = []string{"and", "then", "translate", "convert"}
