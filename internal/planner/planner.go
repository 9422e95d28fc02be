// Package planner implements the Planner (C6): classifies an incoming
// request by complexity, runs the duplicate sentinel against C1's
// semantically similar artifacts, and — for anything that isn't an exact
// reuse — synthesizes a structured specification for the Workflow
// Decomposer (C7) and Code Synthesizer (C8) to consume. Grounded on the
// teacher's perception/client.go role/tier dispatch (now internal/llm)
// for model selection, and campaign/decomposer.go's plan-then-validate
// shape for the overall Plan/step structure, simplified to the four-class
// classifier spec.md §4.6 names instead of the teacher's open-ended
// intent taxonomy.
package planner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kernelforge/internal/embedding"
	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
	"kernelforge/internal/store"
)

// Classification is the request-complexity class spec.md §4.6 defines.
type Classification string

const (
	ClassArithmetic     Classification = "ARITHMETIC"
	ClassSimpleContent  Classification = "SIMPLE_CONTENT"
	ClassComplexContent Classification = "COMPLEX_CONTENT"
	ClassAlgorithm      Classification = "ALGORITHM"
)

// tier maps a classification to the model tier that should answer it —
// cheap classes get the fast tier, algorithmic requests get the powerful
// tier.
func (c Classification) tier() llm.Tier {
	switch c {
	case ClassArithmetic, ClassSimpleContent:
		return llm.TierFast
	case ClassAlgorithm:
		return llm.TierPowerful
	default:
		return llm.TierFast
	}
}

// Verdict is the duplicate sentinel's classification of a request against
// its most similar stored artifacts.
type Verdict string

const (
	VerdictSame      Verdict = "SAME"
	VerdictRelated   Verdict = "RELATED"
	VerdictDifferent Verdict = "DIFFERENT"
)

// reuseConfidenceThreshold is spec.md §4.6's "SAME and similarity >= 0.90"
// reuse bar.
const reuseConfidenceThreshold = 0.90

const duplicateCandidateCount = 5
const toolCandidateCount = 5

// maxSpecChars bounds the structured specification to roughly fit a
// generator's context window at spec.md §4.8's conservative ~2
// chars/token estimate.
const maxSpecChars = 6000

// Sentinel is the duplicate-check verdict for one request.
type Sentinel struct {
	Verdict    Verdict
	Confidence float64
	MatchedID  string
	Template   string
}

// Specification is the planner's structured output for non-reuse cases,
// per spec.md §4.6.
type Specification struct {
	ProblemDefinition  string
	Requirements       []string
	ImplementationPlan string
	Inputs             []string
	Outputs            []string
	TestCases          []string
	Template           string
	ToolRecommendation []string
}

// Plan is the Planner's output for a single request.
type Plan struct {
	Request         string
	Classification  Classification
	Tier            llm.Tier
	Sentinel        *Sentinel
	Reused          bool
	ReuseArtifactID string
	Specification   *Specification
	Tools           []string
}

// Planner classifies requests, runs the duplicate sentinel, and drafts
// structured specifications.
type Planner struct {
	llm      *llm.Client
	store    *store.Store
	embedder embedding.EmbeddingEngine
}

// New builds a Planner over a shared LLM client and C1, used for the
// duplicate sentinel's candidate retrieval and tool recommendation. store
// and embedder may be nil (e.g. in isolated tests), in which case the
// sentinel always returns DIFFERENT rather than failing closed.
func New(client *llm.Client, st *store.Store, embedder embedding.EmbeddingEngine) *Planner {
	return &Planner{llm: client, store: st, embedder: embedder}
}

// Classify applies a lightweight heuristic classifier, grounded on the
// teacher's complexity-scoring style in autopoiesis/complexity.go: count
// structural signals rather than asking the model to self-report its own
// difficulty.
func Classify(request string) Classification {
	lower := strings.ToLower(request)

	if isArithmeticExpression(lower) {
		return ClassArithmetic
	}

	algorithmSignals := []string{"algorithm", "optimal", "shortest path", "dynamic programming",
		"graph", "sort", "recursive", "complexity", "np-hard", "proof"}
	score := 0
	for _, sig := range algorithmSignals {
		if strings.Contains(lower, sig) {
			score++
		}
	}
	if score >= 1 {
		return ClassAlgorithm
	}

	if len(request) > 240 || strings.Count(request, ".") > 4 {
		return ClassComplexContent
	}

	return ClassSimpleContent
}

func isArithmeticExpression(s string) bool {
	hasDigit, hasOperator, hasLetterWord := false, false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '^':
			hasOperator = true
		case r >= 'a' && r <= 'z':
			hasLetterWord = true
		}
	}
	return hasDigit && hasOperator && !hasLetterWord
}

// Plan classifies request, runs the duplicate sentinel against C1, and —
// unless the sentinel resolves to an exact reuse — synthesizes a
// structured specification at the tier appropriate for the
// classification.
func (p *Planner) Plan(ctx context.Context, request string) (*Plan, error) {
	class := Classify(request)
	tier := class.tier()

	log := logging.Get(logging.CategoryPlanner)
	log.Debugw("classified request", "classification", class, "tier", tier)

	sentinel, err := p.duplicateSentinel(ctx, request)
	if err != nil {
		log.Warnw("duplicate sentinel failed, proceeding to cold synthesis", "error", err)
		sentinel = &Sentinel{Verdict: VerdictDifferent}
	}

	plan := &Plan{Request: request, Classification: class, Tier: tier, Sentinel: sentinel}

	if sentinel.Verdict == VerdictSame && sentinel.Confidence >= reuseConfidenceThreshold {
		plan.Reused = true
		plan.ReuseArtifactID = sentinel.MatchedID
		return plan, nil
	}

	tools, err := p.recommendTools(ctx, request)
	if err != nil {
		log.Warnw("tool recommendation failed", "error", err)
	}
	plan.Tools = tools

	spec, err := p.synthesizeSpecification(ctx, request, class, tier, sentinel, tools)
	if err != nil {
		return nil, fmt.Errorf("planner: synthesize specification: %w", err)
	}
	plan.Specification = spec

	return plan, nil
}

// duplicateSentinel compares request against its top-k semantically
// similar artifacts and returns one of SAME/RELATED/DIFFERENT with a
// confidence, per spec.md §4.6.
func (p *Planner) duplicateSentinel(ctx context.Context, request string) (*Sentinel, error) {
	if p.store == nil || p.embedder == nil {
		return &Sentinel{Verdict: VerdictDifferent}, nil
	}

	vec, err := p.embedder.Embed(ctx, request)
	if err != nil {
		return &Sentinel{Verdict: VerdictDifferent}, nil
	}
	matches, err := p.store.FindSimilar(ctx, store.KindFunction, vec, duplicateCandidateCount)
	if err != nil {
		return nil, fmt.Errorf("find similar artifacts: %w", err)
	}
	if len(matches) == 0 {
		return &Sentinel{Verdict: VerdictDifferent}, nil
	}

	var candidates strings.Builder
	for i, m := range matches {
		preview := m.Artifact.Content
		if len(preview) > 200 {
			preview = preview[:200]
		}
		fmt.Fprintf(&candidates, "%d. id=%s distance=%.4f preview=%s\n", i+1, m.Artifact.ID, m.Distance, preview)
	}

	prompt := fmt.Sprintf(`Compare the request against the candidate artifacts below. Decide whether the
request is the SAME task as a candidate (it already solves this exactly),
RELATED (similar enough to use as a starting template, but not identical),
or DIFFERENT (unrelated). Respond with exactly these two lines and nothing else:
verdict: SAME|RELATED|DIFFERENT
confidence: <a number between 0 and 1>

Request: %s

Candidates:
%s`, request, candidates.String())

	resp, err := p.llm.Generate(ctx, llm.RolePlanner, llm.TierFast, prompt, llm.GenerateOptions{Temperature: 0.1})
	if err != nil {
		return nil, fmt.Errorf("generate sentinel verdict: %w", err)
	}

	verdict, confidence := parseSentinelResponse(resp)
	s := &Sentinel{Verdict: verdict, Confidence: confidence}
	if verdict == VerdictSame || verdict == VerdictRelated {
		s.MatchedID = matches[0].Artifact.ID
		s.Template = matches[0].Artifact.Content
	}
	return s, nil
}

func parseSentinelResponse(resp string) (Verdict, float64) {
	verdict := VerdictDifferent
	confidence := 0.0
	for _, line := range strings.Split(resp, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "verdict":
			switch strings.ToUpper(val) {
			case string(VerdictSame):
				verdict = VerdictSame
			case string(VerdictRelated):
				verdict = VerdictRelated
			case string(VerdictDifferent):
				verdict = VerdictDifferent
			}
		case "confidence":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				confidence = f
			}
		}
	}
	return verdict, confidence
}

// recommendTools retrieves the top-k tool artifacts from C1 whose
// description semantically matches request, per spec.md §4.6's "prefer
// existing tools over bespoke code" rule.
func (p *Planner) recommendTools(ctx context.Context, request string) ([]string, error) {
	if p.store == nil || p.embedder == nil {
		return nil, nil
	}
	vec, err := p.embedder.Embed(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	matches, err := p.store.FindSimilar(ctx, store.KindTool, vec, toolCandidateCount)
	if err != nil {
		return nil, fmt.Errorf("find similar tools: %w", err)
	}
	var names []string
	for _, m := range matches {
		if name := m.Artifact.Metadata["tool_name"]; name != "" {
			names = append(names, name)
		} else {
			names = append(names, m.Artifact.ID)
		}
	}
	return names, nil
}

// synthesizeSpecification drafts the structured specification spec.md
// §4.6 requires for non-reuse cases: problem definition, requirements,
// implementation plan, I/O interface, >=3 test cases, and the
// recommended tools. When sentinel resolved RELATED, the matched
// artifact's content is passed along as a template.
func (p *Planner) synthesizeSpecification(ctx context.Context, request string, class Classification, tier llm.Tier, sentinel *Sentinel, recommendedTools []string) (*Specification, error) {
	template := ""
	templateNote := ""
	if sentinel.Verdict == VerdictRelated {
		template = sentinel.Template
		templateNote = fmt.Sprintf("\nA related existing implementation is available as a starting template:\n%s\n", template)
	}

	toolNote := ""
	if len(recommendedTools) > 0 {
		toolNote = fmt.Sprintf("\nPrefer calling one of these existing tools over writing bespoke code if it fits: %s\n", strings.Join(recommendedTools, ", "))
	}

	prompt := fmt.Sprintf(`Produce a structured specification for this request. Respond with exactly
these labeled sections, each on its own line(s):

PROBLEM: <one paragraph>
REQUIREMENTS: <semicolon-separated list>
PLAN: <numbered implementation steps as one paragraph>
INPUTS: <comma-separated field names>
OUTPUTS: <comma-separated field names>
TESTS: <at least 3 semicolon-separated concrete test cases>

Classification: %s
Request: %s
%s%s`, class, request, templateNote, toolNote)

	resp, err := p.llm.Generate(ctx, llm.RolePlanner, tier, prompt, llm.GenerateOptions{Temperature: 0.2})
	if err != nil {
		return nil, fmt.Errorf("generate specification: %w", err)
	}

	spec := parseSpecification(resp)
	spec.Template = template
	spec.ToolRecommendation = recommendedTools
	spec.truncate(maxSpecChars)
	return spec, nil
}

func parseSpecification(resp string) *Specification {
	spec := &Specification{}
	for _, line := range strings.Split(resp, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "PROBLEM":
			spec.ProblemDefinition = val
		case "REQUIREMENTS":
			spec.Requirements = splitNonEmpty(val, ";")
		case "PLAN":
			spec.ImplementationPlan = val
		case "INPUTS":
			spec.Inputs = splitNonEmpty(val, ",")
		case "OUTPUTS":
			spec.Outputs = splitNonEmpty(val, ",")
		case "TESTS":
			spec.TestCases = splitNonEmpty(val, ";")
		}
	}
	return spec
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// truncate trims the specification's free-text fields so the combined
// specification fits maxChars, cutting from the end of the template first
// and then from the end of the implementation plan; the problem definition
// is never cut.
func (s *Specification) truncate(maxChars int) {
	total := len(s.ProblemDefinition) + len(s.ImplementationPlan) + len(s.Template)
	if total <= maxChars {
		return
	}
	over := total - maxChars
	if len(s.Template) > 0 {
		cut := min(over, len(s.Template))
		s.Template = s.Template[:len(s.Template)-cut]
		over -= cut
	}
	if over > 0 && len(s.ImplementationPlan) > 0 {
		cut := min(over, len(s.ImplementationPlan))
		s.ImplementationPlan = s.ImplementationPlan[:len(s.ImplementationPlan)-cut]
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Text renders the specification as prompt-ready text for the Code
// Synthesizer.
func (s *Specification) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Problem: %s\n", s.ProblemDefinition)
	if len(s.Requirements) > 0 {
		fmt.Fprintf(&sb, "Requirements: %s\n", strings.Join(s.Requirements, "; "))
	}
	fmt.Fprintf(&sb, "Plan: %s\n", s.ImplementationPlan)
	fmt.Fprintf(&sb, "Inputs: %s\n", strings.Join(s.Inputs, ", "))
	fmt.Fprintf(&sb, "Outputs: %s\n", strings.Join(s.Outputs, ", "))
	if len(s.TestCases) > 0 {
		fmt.Fprintf(&sb, "Test cases: %s\n", strings.Join(s.TestCases, "; "))
	}
	if s.Template != "" {
		fmt.Fprintf(&sb, "Template:\n%s\n", s.Template)
	}
	return sb.String()
}
