package store

import "time"

// Kind identifies the category of an artifact, mirroring spec.md §3's
// artifact taxonomy (plans, functions, workflows, conversations, patterns,
// tools, fix patterns).
type Kind string

const (
	KindPlan         Kind = "plan"
	KindFunction     Kind = "function"
	KindWorkflow     Kind = "workflow"
	KindConversation Kind = "conversation"
	KindPattern      Kind = "pattern"
	KindTool         Kind = "tool"
	KindFixPattern   Kind = "fix_pattern"
)

// Artifact is a single stored unit in the semantic artifact store (C1):
// content plus its embedding, tags, and usage/scoring metadata.
type Artifact struct {
	ID         string
	Kind       Kind
	Content    string
	Metadata   map[string]string
	Tags       []string
	Embedding  []float32
	UsageCount int
	Score      float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SimilarityMatch pairs a retrieved artifact with its distance to the
// query vector (lower is closer).
type SimilarityMatch struct {
	Artifact Artifact
	Distance float64
}
