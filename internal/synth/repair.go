package synth

import "strings"

// autoRepair implements spec.md §4.8's structural auto-repair pass,
// adapted from Python import/entrypoint conventions to Go's: ensure the
// call_tool shim's import is present when referenced, ensure a package
// clause exists, strip logging the user didn't ask for, add missing
// standard imports, and guarantee at least one output-emitting statement.
func autoRepair(code, task string) string {
	code = ensurePackageClause(code)
	code = ensureToolImport(code)
	code = ensureStandardImports(code)
	code = stripSpuriousLogging(code, task)
	code = ensureOutputStatement(code)
	return code
}

func ensurePackageClause(code string) string {
	if strings.Contains(code, "package ") {
		return code
	}
	return "package main\n\n" + code
}

// ensureToolImport inserts the tools package import when the generated
// code calls CallTool but the import block doesn't mention it — spec.md
// §4.8's "references a tool-invocation symbol but omits the surrounding
// path-setup + import block" rule, with path-setup (Go has none, unlike
// the original's sys.path manipulation) collapsing to just the import.
func ensureToolImport(code string) string {
	const importPath = `"kernelforge/internal/tools"`
	if !strings.Contains(code, "CallTool") || strings.Contains(code, importPath) {
		return code
	}
	return insertImport(code, importPath)
}

func ensureStandardImports(code string) string {
	checks := []struct {
		symbol string
		path   string
	}{
		{"json.", `"encoding/json"`},
		{"os.", `"os"`},
		{"fmt.", `"fmt"`},
	}
	for _, c := range checks {
		if strings.Contains(code, c.symbol) && !strings.Contains(code, c.path) {
			code = insertImport(code, c.path)
		}
	}
	return code
}

func insertImport(code, path string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "import (") {
			out := append([]string{}, lines[:i+1]...)
			out = append(out, "\t"+path)
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
		if strings.HasPrefix(t, "import ") {
			out := append([]string{}, lines[:i]...)
			out = append(out, "import (", "\t"+strings.TrimPrefix(t, "import "), "\t"+path, ")")
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
		if strings.HasPrefix(t, "package ") {
			out := append([]string{}, lines[:i+1]...)
			out = append(out, "", "import (", "\t"+path, ")")
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
	}
	return code
}

var loggingKeywords = []string{"with logging", "debug version", "verbose", "log each step"}

// stripSpuriousLogging removes fmt.Println/log.Printf debug lines unless
// the task explicitly asked for logging, per spec.md §4.8.
func stripSpuriousLogging(code, task string) string {
	lower := strings.ToLower(task)
	for _, kw := range loggingKeywords {
		if strings.Contains(lower, kw) {
			return code
		}
	}
	var out []string
	for _, line := range strings.Split(code, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "fmt.Println(") || strings.HasPrefix(t, "fmt.Printf(") ||
			strings.HasPrefix(t, "log.Printf(") || strings.HasPrefix(t, "log.Println(") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ensureOutputStatement guarantees the code emits something, appending a
// fallback JSON-with-"result"-field emitter otherwise — spec.md §4.8's
// final auto-repair rule.
func ensureOutputStatement(code string) string {
	hasOutput := strings.Contains(code, "return ") || strings.Contains(code, "fmt.Print") ||
		strings.Contains(code, "os.Stdout") || strings.Contains(code, "json.Marshal")
	if hasOutput {
		return code
	}
	code += `

func init() {
	os.Stdout.WriteString("{\"result\": \"no output produced\"}\n")
}
`
	if !strings.Contains(code, `"os"`) {
		code = insertImport(code, `"os"`)
	}
	return code
}
