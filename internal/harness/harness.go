package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
	"kernelforge/internal/registry"
)

const (
	defaultTestBudget     = 30 * time.Second
	defaultCoverageFloor  = 0.70
)

// Outcome is the result of running a node's test suite.
type Outcome struct {
	Passed   bool
	Stdout   string
	Stderr   string
	Coverage float64
}

// Harness generates, runs, and statically checks tests for a synthesized
// node before it is allowed into the registry, per spec.md §4.9.
type Harness struct {
	llm     *llm.Client
	runner  *registry.Runner
	sandbox *SandboxExecutor

	coverageFloor float64
	testBudget    time.Duration
}

// New builds a Harness over a shared LLM client and the Node Registry's
// sandboxed subprocess runner.
func New(client *llm.Client, runner *registry.Runner) *Harness {
	return &Harness{
		llm:           client,
		runner:        runner,
		sandbox:       NewSandboxExecutor(),
		coverageFloor: defaultCoverageFloor,
		testBudget:    defaultTestBudget,
	}
}

// GenerateTests produces a _test.go file for code, either from a cached
// template (content-classified tasks, no LLM round trip) or from the
// LLM, per spec.md §4.9's test-driven mode.
func (h *Harness) GenerateTests(ctx context.Context, task, code string, useTemplate bool) (string, error) {
	if useTemplate {
		if tmpl, ok := cachedTemplate(task); ok {
			return tmpl, nil
		}
	}

	prompt := fmt.Sprintf(`Write a Go test file (package main, func TestXxx(t *testing.T)) asserting
specific expected outputs for this task and code. Respond with ONLY the test source.

Task: %s

Code:
%s`, task, code)

	resp, err := h.llm.Generate(ctx, llm.RoleSynth, llm.TierFast, prompt, llm.GenerateOptions{Temperature: 0.1})
	if err != nil {
		return "", fmt.Errorf("harness: generate tests: %w", err)
	}
	return stripFences(resp), nil
}

// ExtendTests asks the LLM to add cases that raise coverage, using the
// coverage report as input, per spec.md §4.9's automated generation path.
func (h *Harness) ExtendTests(ctx context.Context, existing, coverageReport string) (string, error) {
	prompt := fmt.Sprintf(`This Go test file has gaps in coverage shown below. Add test cases that
cover the uncovered branches. Respond with ONLY the complete, updated test
file source.

COVERAGE REPORT:
%s

CURRENT TESTS:
%s`, coverageReport, existing)

	resp, err := h.llm.Generate(ctx, llm.RoleSynth, llm.TierFast, prompt, llm.GenerateOptions{Temperature: 0.1})
	if err != nil {
		return "", fmt.Errorf("harness: extend tests: %w", err)
	}
	return stripFences(resp), nil
}

// Run writes code and testCode into dir and executes `go test -cover`
// with dir as the working directory, per spec.md §4.9's execution step.
func (h *Harness) Run(ctx context.Context, dir, code, testCode string) (*Outcome, error) {
	log := logging.Get(logging.CategoryHarness)
	timer := logging.StartTimer(logging.CategoryHarness, "Run")
	defer timer.Stop()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("harness: create node dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("harness: write node source: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main_test.go"), []byte(testCode), 0o644); err != nil {
		return nil, fmt.Errorf("harness: write test source: %w", err)
	}

	result, err := h.runner.RunIn(ctx, dir, "go", []string{"test", "-cover", "./..."}, h.testBudget)
	if result == nil {
		return nil, fmt.Errorf("harness: run tests: %w", err)
	}

	outcome := &Outcome{
		Passed:   err == nil,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		Coverage: parseCoverage(result.Stdout),
	}
	log.Infow("test run complete", "dir", dir, "passed", outcome.Passed, "coverage", outcome.Coverage)
	return outcome, nil
}

// parseCoverage extracts the percentage from `go test -cover`'s
// "coverage: NN.N% of statements" summary line.
func parseCoverage(stdout string) float64 {
	idx := strings.Index(stdout, "coverage:")
	if idx == -1 {
		return 0
	}
	rest := stdout[idx+len("coverage:"):]
	rest = strings.TrimSpace(rest)
	pctIdx := strings.Index(rest, "%")
	if pctIdx == -1 {
		return 0
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(rest[:pctIdx]), 64)
	if err != nil {
		return 0
	}
	return val / 100
}

// BelowCoverageFloor reports whether outcome needs an LLM-driven test
// extension pass, per spec.md §4.9's default 70% threshold.
func (h *Harness) BelowCoverageFloor(o *Outcome) bool {
	return o.Coverage < h.coverageFloor
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```go")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
