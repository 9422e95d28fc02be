// Package harness implements the Test Harness (C9): generates tests for a
// synthesized node (test-driven when enabled, otherwise after the fact),
// runs them, measures coverage, and chains static analyzers over the
// result before a node is allowed into the registry (C5).
//
// Sandboxed in-process execution is grounded directly on
// internal/autopoiesis/yaegi_executor.go's YaegiExecutor — kept nearly
// verbatim (allow-listed stdlib imports, interp.New + stdlib.Symbols,
// context-bounded goroutine execution) and repurposed from "run a
// generated tool" to "run a generated node's Check entrypoint in-process".
// Harness.Run does not call RunCheck; its only execution of a node is the
// go test subprocess pass.
package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// SandboxExecutor runs small, self-contained Go snippets through Yaegi
// rather than compiling them, avoiding go build's dependency resolution
// and compile-time cost for a quick sanity pass.
type SandboxExecutor struct {
	allowedPackages map[string]bool
}

// NewSandboxExecutor builds a SandboxExecutor with the teacher's
// stdlib-only allow-list.
func NewSandboxExecutor() *SandboxExecutor {
	return &SandboxExecutor{
		allowedPackages: map[string]bool{
			"strings": true, "strconv": true, "fmt": true, "math": true,
			"regexp": true, "encoding/json": true, "encoding/base64": true,
			"time": true, "sort": true, "bytes": true, "path": true,
			"path/filepath": true, "errors": true, "unicode": true,
		},
	}
}

// RunCheck evaluates code in a sandboxed interpreter and calls its
// Check(string) (string, error) entrypoint with input, bounded by ctx.
func (e *SandboxExecutor) RunCheck(ctx context.Context, code, input string) (string, error) {
	if err := e.validateImports(code); err != nil {
		return "", fmt.Errorf("harness: sandbox import check: %w", err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("harness: load stdlib symbols: %w", err)
	}

	if _, err := i.Eval(e.wrapCode(code)); err != nil {
		return "", fmt.Errorf("harness: sandbox eval: %w", err)
	}

	fn, err := i.Eval("main.Check")
	if err != nil {
		return "", fmt.Errorf("harness: Check entrypoint not found: %w", err)
	}
	checkFn, ok := fn.Interface().(func(string) (string, error))
	if !ok {
		return "", fmt.Errorf("harness: Check has wrong signature, want func(string) (string, error)")
	}

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := checkFn(input)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return "", fmt.Errorf("harness: sandbox check timed out: %w", ctx.Err())
	}
}

func (e *SandboxExecutor) validateImports(code string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, "import ("):
			inBlock = true
		case inBlock && t == ")":
			inBlock = false
		case inBlock:
			pkg := strings.Trim(t, `"`)
			if pkg != "" && !e.allowedPackages[pkg] {
				forbidden = append(forbidden, pkg)
			}
		case strings.HasPrefix(t, "import "):
			pkg := strings.Trim(strings.TrimPrefix(t, "import "), `"`)
			if !e.allowedPackages[pkg] {
				forbidden = append(forbidden, pkg)
			}
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports in sandboxed check: %v", forbidden)
	}
	return nil
}

func (e *SandboxExecutor) wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}

// DefaultSandboxTimeout is a default time bound for a RunCheck call;
// RunCheck applies no timeout of its own beyond the one carried by ctx.
const DefaultSandboxTimeout = 5 * time.Second
