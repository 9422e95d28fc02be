package repair

import (
	"fmt"
	"strings"
)

// buildPrompt assembles the full-context prompt spec.md §4.10 mandates:
// specification, current code, prior error, and a running log of every
// previous attempt. The god-level stage additionally gets the complete
// history rather than a summary (history is already complete by then, so
// this just documents the intent already satisfied by always passing the
// full slice).
func buildPrompt(spec, code, errorOutput string, history []HistoryEntry, plan attemptPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SPECIFICATION:\n%s\n\n", spec)
	fmt.Fprintf(&b, "CURRENT CODE:\n%s\n\n", code)
	fmt.Fprintf(&b, "ERROR OUTPUT:\n%s\n\n", errorOutput)

	if len(history) > 0 {
		b.WriteString("PREVIOUS ATTEMPTS:\n")
		for i, h := range history {
			fmt.Fprintf(&b, "%d. stage=%s tier=%s temp=%.1f claimed=%q error_seen=%q\n",
				i+1, h.Stage, h.Tier, h.Temperature, h.ClaimedFixes, h.ErrorSeen)
		}
		b.WriteString("\n")
	}

	if plan.stage == StageLogging || plan.stage == StagePowerfulLogging {
		b.WriteString("Add temporary debug logging (fmt.Println) around the suspected failure point " +
			"to help localize the bug, in addition to fixing it.\n\n")
	}

	b.WriteString("Respond with a line starting \"FIXES:\" describing the changes you made, " +
		"then a line \"CODE:\" followed by the complete corrected source.")
	return b.String()
}

// parseRepairResponse splits the LLM's FIXES:/CODE: response into the
// claimed-fixes description and the candidate code.
func parseRepairResponse(resp string) (claims, code string) {
	const codeMarker = "CODE:"
	idx := strings.Index(resp, codeMarker)
	if idx == -1 {
		return "", strings.TrimSpace(stripFences(resp))
	}
	claims = strings.TrimPrefix(strings.TrimSpace(resp[:idx]), "FIXES:")
	claims = strings.TrimSpace(claims)
	code = strings.TrimSpace(stripFences(resp[idx+len(codeMarker):]))
	return claims, code
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```go")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
