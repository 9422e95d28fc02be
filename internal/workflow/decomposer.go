package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
)

const maxDecompositionDepth = 3

// Decomposer turns a request into a validated workflow DAG, following
// campaign/decomposer.go's propose-validate-refine loop.
type Decomposer struct {
	llm *llm.Client
}

// New builds a Decomposer over a shared LLM client.
func New(client *llm.Client) *Decomposer {
	return &Decomposer{llm: client}
}

// ShouldDecompose applies spec.md §4.7's trigger: a multi-operation
// keyword present as a whole word, and the request longer than four
// words. No arithmetic or translation classification is made; a short
// ask such as "add 2 and 2" is left whole only because of its length.
func ShouldDecompose(request string) bool {
	lower := strings.ToLower(request)
	hit := false
	for _, kw := range multiOpKeywords {
		if containsWord(lower, kw) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	words := strings.Fields(lower)
	return len(words) > 4
}

func containsWord(s, word string) bool {
	for _, f := range strings.Fields(s) {
		if strings.Trim(f, ".,!?;:") == word {
			return true
		}
	}
	return false
}

type rawPlan struct {
	Steps []Step `json:"steps"`
}

// Decompose asks the LLM for a step DAG, validates it, and performs one
// refinement pass if validation fails — matching
// campaign/decomposer.go's Decompose→validatePlan→refinePlan sequence,
// bounded to spec.md §4.7's max depth of 3 and forcing single-step
// execution when a sub-request repeats its parent verbatim.
func (d *Decomposer) Decompose(ctx context.Context, request string, depth int) (*Spec, error) {
	log := logging.Get(logging.CategoryWorkflow)

	if depth >= maxDecompositionDepth {
		log.Warnw("max decomposition depth reached, forcing single step", "request", request, "depth", depth)
		return singleStepSpec(request, depth), nil
	}

	plan, err := d.propose(ctx, request)
	if err != nil {
		return nil, err
	}

	problems, err := validateGraph(plan.Steps)
	if err != nil {
		return nil, err
	}

	if len(problems) > 0 {
		log.Warnw("workflow validation failed, attempting refinement", "problems", problems)
		refined, rerr := d.refine(ctx, plan, problems)
		if rerr == nil {
			if p2, verr := validateGraph(refined.Steps); verr == nil && len(p2) == 0 {
				plan = refined
			} else {
				log.Warnw("refinement did not resolve validation problems, proceeding with original plan", "problems", p2)
			}
		} else {
			log.Warnw("refinement call failed, proceeding with original plan", "error", rerr)
		}
	}

	for _, s := range plan.Steps {
		if strings.TrimSpace(s.Description) == strings.TrimSpace(request) && depth > 0 {
			log.Warnw("sub-step repeats parent request verbatim, forcing single step", "step", s.ID)
			return singleStepSpec(request, depth), nil
		}
	}

	return &Spec{Request: request, Steps: plan.Steps, Depth: depth}, nil
}

func singleStepSpec(request string, depth int) *Spec {
	return &Spec{
		Request: request,
		Depth:   depth,
		Steps:   []Step{{ID: "step-1", Description: request}},
	}
}

func (d *Decomposer) propose(ctx context.Context, request string) (*rawPlan, error) {
	prompt := fmt.Sprintf(`Decompose this request into a DAG of steps. Respond with ONLY a JSON object of
the form {"steps":[{"id":"s1","description":"...","tool":"optional tool name",
"output_name":"optional","parallel_group":"optional","depends_on":["s0"]}]}.
Steps with no depends_on run first. Steps sharing a parallel_group can run concurrently.

Request: %s`, request)

	resp, err := d.llm.Generate(ctx, llm.RoleWorkflow, llm.TierFast, prompt, llm.GenerateOptions{Temperature: 0.2})
	if err != nil {
		return nil, fmt.Errorf("workflow: propose plan: %w", err)
	}

	return parsePlan(resp)
}

func (d *Decomposer) refine(ctx context.Context, plan *rawPlan, problems []string) (*rawPlan, error) {
	current, _ := json.MarshalIndent(plan, "", "  ")
	prompt := fmt.Sprintf(`This workflow plan has validation problems:

PLAN:
%s

PROBLEMS:
%s

Output a corrected plan as JSON with the same shape, fixing the problems above.`,
		string(current), strings.Join(problems, "\n"))

	resp, err := d.llm.Generate(ctx, llm.RoleWorkflow, llm.TierFast, prompt, llm.GenerateOptions{Temperature: 0.1})
	if err != nil {
		return nil, fmt.Errorf("workflow: refine plan: %w", err)
	}
	return parsePlan(resp)
}

func parsePlan(resp string) (*rawPlan, error) {
	resp = stripFences(resp)
	var plan rawPlan
	if err := json.Unmarshal([]byte(resp), &plan); err != nil {
		return nil, fmt.Errorf("workflow: parse plan JSON: %w", err)
	}
	for i := range plan.Steps {
		if plan.Steps[i].DependsOn == nil {
			plan.Steps[i].DependsOn = []string{}
		}
	}
	return &plan, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExecutionGroups computes the batches in which steps can run: each group
// contains every step whose dependencies are already satisfied by prior
// groups, per spec.md §4.7's decomposition algorithm — "(i) steps with no
// unmet dependencies form the next batch". Steps sharing a non-empty
// ParallelGroup within the same batch are meant to be dispatched
// concurrently by the caller; steps with no group run singly.
func ExecutionGroups(steps []Step) []ExecutionGroup {
	byID := make(map[string]Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	done := make(map[string]bool, len(steps))
	var groups []ExecutionGroup

	remaining := len(steps)
	for remaining > 0 {
		var batch []Step
		for _, s := range steps {
			if done[s.ID] {
				continue
			}
			ready := true
			for _, dep := range s.DependsOn {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, s)
			}
		}
		if len(batch) == 0 {
			// Residual cycle or dangling dependency slipped past
			// validateGraph; stop rather than loop forever.
			break
		}
		for _, s := range batch {
			done[s.ID] = true
			remaining--
		}
		groups = append(groups, ExecutionGroup{Steps: batch})
	}
	return groups
}
