package synth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanResponseStripsFencesAndPreamble(t *testing.T) {
	raw := "Sure, here's the code:\n```go\npackage main\n\nfunc Add(a, b int) int { return a + b }\n```\nLet me know if you need anything else."
	cleaned, err := cleanResponse(raw)
	require.NoError(t, err)
	require.Contains(t, cleaned, "package main")
	require.NotContains(t, cleaned, "Sure")
	require.NotContains(t, cleaned, "Let me know")
}

func TestCleanResponseUnwrapsJSONEnvelope(t *testing.T) {
	raw := `{"code": "package main\n\nfunc F() {}"}`
	cleaned, err := cleanResponse(raw)
	require.NoError(t, err)
	require.Contains(t, cleaned, "package main")
}

func TestAutoRepairAddsPackageClause(t *testing.T) {
	repaired := autoRepair("func Add(a, b int) int { return a + b }", "add two numbers")
	require.Contains(t, repaired, "package main")
}

func TestAutoRepairStripsLoggingUnlessRequested(t *testing.T) {
	code := "package main\n\nfunc F() {\n\tfmt.Println(\"debug\")\n\treturn\n}"
	require.NotContains(t, autoRepair(code, "add two numbers"), "fmt.Println")
	require.Contains(t, autoRepair(code, "add two numbers with logging"), "fmt.Println")
}

func TestScanManifestInfersInputsFromArgsAccess(t *testing.T) {
	code := `package main
func Run(args map[string]any) string {
	a := args["a"]
	b := args["b"]
	_ = a
	_ = b
	return "result"
}`
	manifest := scanManifest(code)
	require.ElementsMatch(t, []string{"a", "b"}, manifest.Inputs)
	require.Equal(t, OpCombiner, manifest.Operation)
}

func TestTokenOverlap(t *testing.T) {
	require.Greater(t, tokenOverlap("sort a list of numbers", "sorts a list"), 0.0)
	require.Equal(t, 0.0, tokenOverlap("", "anything"))
}
