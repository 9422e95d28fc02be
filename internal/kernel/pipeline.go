package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"kernelforge/internal/logging"
	"kernelforge/internal/registry"
	"kernelforge/internal/store"
	"kernelforge/internal/workflow"
)

// exactMatchScanLimit bounds how many completed-workflow artifacts the
// §4.1 exact-match fast path will scan looking for an identical prior
// request.
const exactMatchScanLimit = 500

// Result is the outcome of one Submit call: either a reused artifact or a
// freshly synthesized, tested, and registered set of nodes.
type Result struct {
	Reused   bool
	NodeName string
	Code     string
	Repaired bool
	Steps    int
}

// Submit runs spec.md §2's Generation Pipeline control flow for a single
// natural-language request: the §4.1 exact-match fast path first (no LLM
// calls on the hit path), then C6's classification and duplicate
// sentinel, then — for anything that isn't a reuse — decomposition,
// synthesis, testing, and repair for each step.
func (k *Kernel) Submit(ctx context.Context, request string) (*Result, error) {
	log := logging.Get(logging.CategoryKernel)

	workflowID := fmt.Sprintf("wf-%d", time.Now().UnixNano())
	k.sched.MarkWorkflowActive(workflowID)
	defer k.sched.MarkWorkflowInactive(workflowID)

	if artifact, ok, err := k.findExactMatch(ctx, request); err != nil {
		log.Warnw("exact-match lookup failed, continuing to the planner", "error", err)
	} else if ok {
		return k.reuseArtifact(ctx, artifact, request)
	}

	plan, err := k.planner.Plan(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("kernel: plan: %w", err)
	}

	if plan.Reused && plan.ReuseArtifactID != "" {
		artifact, err := k.store.FindExact(ctx, plan.ReuseArtifactID)
		if err != nil || artifact == nil {
			log.Warnw("sentinel reuse target vanished, falling back to cold synthesis",
				"id", plan.ReuseArtifactID, "error", err)
		} else {
			return k.reuseArtifact(ctx, *artifact, request)
		}
	}

	steps := []workflow.Step{{ID: "step-1", Description: request}}
	if workflow.ShouldDecompose(request) {
		spec, err := k.decomposer.Decompose(ctx, request, 0)
		if err != nil {
			return nil, fmt.Errorf("kernel: decompose: %w", err)
		}
		steps = spec.Steps
	}

	template := ""
	if plan.Specification != nil {
		template = plan.Specification.Template
	}

	var lastCode, lastName string
	repaired := false

	for _, step := range steps {
		code, name, wasRepaired, err := k.runStep(ctx, step, template)
		if err != nil {
			return nil, fmt.Errorf("kernel: step %s: %w", step.ID, err)
		}
		lastCode, lastName = code, name
		repaired = repaired || wasRepaired
	}

	k.recordCompletedWorkflow(ctx, request, lastName, lastCode)

	return &Result{NodeName: lastName, Code: lastCode, Repaired: repaired, Steps: len(steps)}, nil
}

// runStep synthesizes, tests, and (if needed) repairs one decomposed
// step. When template is non-empty — C6's RELATED verdict resolution —
// it is appended to the synthesis task as a starting point instead of
// asking the generator to start from nothing.
func (k *Kernel) runStep(ctx context.Context, step workflow.Step, template string) (code, name string, repaired bool, err error) {
	log := logging.Get(logging.CategoryKernel)
	name = slugify(step.ID)

	task := step.Description
	if template != "" {
		task = fmt.Sprintf("%s\n\nA related existing implementation is available as a starting template:\n%s", step.Description, template)
	}

	synthResult, err := k.synth.Synthesize(ctx, task, "go")
	if err != nil {
		return "", "", false, fmt.Errorf("synthesize: %w", err)
	}

	nodeDir := filepath.Join(k.cfg.Registry.RootDir, name)
	if err := os.MkdirAll(nodeDir, 0o755); err != nil {
		return "", "", false, fmt.Errorf("create node dir: %w", err)
	}

	testCode, err := k.harness.GenerateTests(ctx, step.Description, synthResult.Code, true)
	if err != nil {
		return "", "", false, fmt.Errorf("generate tests: %w", err)
	}

	outcome, err := k.harness.Run(ctx, nodeDir, synthResult.Code, testCode)
	if err != nil {
		return "", "", false, fmt.Errorf("run tests: %w", err)
	}

	finalCode := synthResult.Code
	if !outcome.Passed {
		test := func(ctx context.Context, candidate string) (string, error) {
			o, runErr := k.harness.Run(ctx, nodeDir, candidate, testCode)
			if runErr != nil {
				return "", runErr
			}
			if o.Passed {
				return "", nil
			}
			return o.Stderr, nil
		}

		specText := fmt.Sprintf("%s\n\ninterface: inputs=%v outputs=%v operation=%s",
			step.Description, synthResult.Manifest.Inputs, synthResult.Manifest.Outputs, synthResult.Manifest.Operation)

		out, repairErr := k.repair.Repair(ctx, specText, finalCode, outcome.Stderr, test)
		if repairErr != nil {
			return "", "", false, fmt.Errorf("repair: %w", repairErr)
		}
		if !out.Fixed {
			return "", "", false, fmt.Errorf("node failed repair after %d attempts", out.Attempts)
		}
		finalCode = out.Code
		repaired = true
	}

	if err := k.reg.Register(registry.Node{Name: name, Path: nodeDir, Language: "go"}); err != nil {
		return "", "", false, fmt.Errorf("register node: %w", err)
	}

	emb, embErr := k.embedder.Embed(ctx, step.Description)
	if embErr != nil {
		log.Warnw("embedding failed, storing artifact without a vector", "error", embErr)
	}

	if _, err := k.store.Store(ctx, store.Artifact{
		Kind:      store.KindFunction,
		Content:   finalCode,
		Tags:      []string{name},
		Embedding: emb,
	}); err != nil {
		return "", "", false, fmt.Errorf("store artifact: %w", err)
	}

	return finalCode, name, repaired, nil
}

// findExactMatch implements spec.md §4.1's exact-match fast path: a
// normalized-description comparison against completed Workflow
// artifacts, with no embedding call and no LLM call, so a repeat of an
// identical request never touches the planner or a generator.
func (k *Kernel) findExactMatch(ctx context.Context, request string) (store.Artifact, bool, error) {
	normalized := normalizeDescription(request)
	candidates, err := k.store.FindByTags(ctx, store.KindWorkflow, []string{"complete"}, exactMatchScanLimit)
	if err != nil {
		return store.Artifact{}, false, fmt.Errorf("scan completed workflows: %w", err)
	}
	for _, c := range candidates {
		if c.Metadata["question"] != "" && normalizeDescription(c.Metadata["question"]) == normalized {
			return c, true, nil
		}
	}
	return store.Artifact{}, false, nil
}

// reuseArtifact invokes the node behind artifact with request bound to
// every §4.5 canonical alias, per spec.md §4.1/§4.6's reuse contract:
// a cache hit runs the matched node, it does not replay stored text.
func (k *Kernel) reuseArtifact(ctx context.Context, artifact store.Artifact, request string) (*Result, error) {
	log := logging.Get(logging.CategoryKernel)

	name := nodeNameForArtifact(artifact)
	node, ok := k.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("kernel: reuse: node %q not found in registry", name)
	}

	result, err := k.runner.Invoke(ctx, node, registry.CanonicalInput(request))
	if err != nil {
		return nil, fmt.Errorf("kernel: invoke reused node: %w", err)
	}

	_ = k.store.IncrementUsage(ctx, artifact.ID)
	log.Infow("reused existing artifact", "id", artifact.ID, "node", name)
	return &Result{Reused: true, NodeName: name, Code: result.Stdout}, nil
}

// nodeNameForArtifact recovers the registered node name an artifact was
// produced by: the completed-workflow mirror carries it explicitly in
// metadata, while a bare function artifact's sole tag is the node name.
func nodeNameForArtifact(a store.Artifact) string {
	if name := a.Metadata["node"]; name != "" {
		return name
	}
	if len(a.Tags) > 0 {
		return a.Tags[0]
	}
	return ""
}

// recordCompletedWorkflow mirrors a finished cold-path run into a
// Workflow-kind artifact tagged "complete", which is what findExactMatch
// scans on the next identical request.
func (k *Kernel) recordCompletedWorkflow(ctx context.Context, request, nodeName, code string) {
	log := logging.Get(logging.CategoryKernel)

	emb, err := k.embedder.Embed(ctx, request)
	if err != nil {
		log.Warnw("embedding failed, storing workflow artifact without a vector", "error", err)
	}

	if _, err := k.store.Store(ctx, store.Artifact{
		Kind:    store.KindWorkflow,
		Content: code,
		Tags:    []string{"complete", nodeName},
		Metadata: map[string]string{
			"question": normalizeDescription(request),
			"node":     nodeName,
		},
		Embedding: emb,
	}); err != nil {
		log.Warnw("failed to record completed workflow", "error", err)
	}
}

func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9-]+`)

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	lower = slugPattern.ReplaceAllString(lower, "-")
	lower = strings.Trim(lower, "-")
	if lower == "" {
		lower = "node"
	}
	return fmt.Sprintf("%s-%d", lower, time.Now().UnixNano())
}
