package repair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateClaimsRejectsIdenticalCode(t *testing.T) {
	require.False(t, validateClaims("package main\nfunc F(){}", "package main\n  func F(){}", "fixed a typo"))
}

func TestValidateClaimsRejectsFalsePathSetupClaim(t *testing.T) {
	require.False(t, validateClaims("package main", "package main\nfunc G(){}", "added path setup"))
}

func TestValidateClaimsAcceptsRealChange(t *testing.T) {
	require.True(t, validateClaims("package main\nfunc F(){}", "package main\nfunc F(){ return }", "fixed missing return"))
}

func TestApplyDeterministicFixRemovesImport(t *testing.T) {
	code := "package main\n\nimport (\n\t\"os\"\n)\n\nfunc F() {}"
	fixed, ok := applyDeterministicFix(code, `removed unused import "os"`)
	require.True(t, ok)
	require.NotContains(t, fixed, `"os"`)
}

func TestStripLoggingStatementsRemovesDebugLines(t *testing.T) {
	code := "package main\n\nfunc F() {\n\tfmt.Println(\"debug\")\n\treturn\n}"
	stripped := stripLoggingStatements(code)
	require.NotContains(t, stripped, "fmt.Println")
	require.Contains(t, stripped, "return")
}

func TestClassifyError(t *testing.T) {
	require.Equal(t, "syntax", classifyError("syntax error: unexpected }"))
	require.Equal(t, "undefined", classifyError("undefined: Foo"))
	require.Equal(t, "none", classifyError(""))
}

func TestParseRepairResponse(t *testing.T) {
	resp := "FIXES: added missing return\nCODE:\n```go\npackage main\nfunc F() int { return 1 }\n```"
	claims, code := parseRepairResponse(resp)
	require.Contains(t, claims, "added missing return")
	require.Contains(t, code, "package main")
}
