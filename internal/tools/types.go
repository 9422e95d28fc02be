// Package tools implements the kernel's tool-invocation shim described in
// spec.md §6: generated node code reaches the outside world only through
// call_tool(tool_name, prompt, **kwargs), which dispatches to a registered
// tool backed by an LLM call, an executable subprocess, or a workflow.
package tools

import "context"

// ToolCategory classifies a tool by what it ultimately dispatches to.
type ToolCategory string

const (
	// CategoryLLM tools resolve by issuing a prompt to internal/llm.
	CategoryLLM ToolCategory = "llm"

	// CategorySubprocess tools shell out to an allow-listed binary via
	// internal/registry's sandboxed Runner.
	CategorySubprocess ToolCategory = "subprocess"

	// CategoryWorkflow tools invoke a named workflow through
	// internal/workflow.
	CategoryWorkflow ToolCategory = "workflow"

	// CategoryGeneral is for tools usable from any component.
	CategoryGeneral ToolCategory = "general"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution. When invoked through
// CallTool, args contains a "prompt" key, populated from call_tool's
// second positional argument, alongside any kwargs the caller supplied;
// Execute and ExecuteTool pass args through unchanged.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines a single named, callable unit reachable through call_tool.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	Description string

	// Category classifies what the tool dispatches to.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema

	// Priority is used when multiple tools match. Higher preferred
	// (default 50).
	Priority int
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// WithPriority returns a copy of the tool with the given priority.
func (t *Tool) WithPriority(priority int) *Tool {
	c := *t
	c.Priority = priority
	return &c
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	ToolName   string
	Result     string
	Error      error
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
