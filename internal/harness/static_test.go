package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckSyntaxRejectsInvalidCode(t *testing.T) {
	_, ok, err := checkSyntax("package main\n\nfunc F( {")
	require.False(t, ok)
	require.Error(t, err)
}

func TestCheckUnusedImportsRemovesUnreferenced(t *testing.T) {
	code := "package main\n\nimport (\n\t\"fmt\"\n\t\"os\"\n)\n\nfunc F() {\n\tfmt.Println(\"hi\")\n}\n"
	fixed, ok, err := checkUnusedImports(code)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, fixed, `"os"`)
	require.Contains(t, fixed, `"fmt"`)
}

func TestRunChainAppliesFixesInOrder(t *testing.T) {
	code := "package main\nimport (\n\t\"fmt\"\n\t\"os\"\n)\nfunc F() { fmt.Println(\"hi\") }"
	out, err := RunChain(DefaultValidators(), code)
	require.NoError(t, err)
	require.NotContains(t, out, `"os"`)
}

func TestParseCoverage(t *testing.T) {
	require.InDelta(t, 0.823, parseCoverage("ok  	pkg	0.002s	coverage: 82.3% of statements"), 0.001)
	require.Equal(t, 0.0, parseCoverage("no coverage info here"))
}

func TestCachedTemplateMatchesKnownPatterns(t *testing.T) {
	_, ok := cachedTemplate("reverse a string")
	require.True(t, ok)
	_, ok = cachedTemplate("compute the fibonacci sequence")
	require.False(t, ok)
}
