package synth

import (
	"encoding/json"
	"fmt"
	"strings"
)

var fillerPrefixes = []string{
	"sure,", "sure!", "here's", "here is", "certainly", "of course",
	"i'll", "i will", "let me", "below is", "this code", "the following",
}

// allowedPrefixes are the syntactic starts a cleaned Go source blob is
// allowed to open with, adapted from spec.md §4.8's Python-oriented list
// (import, def, class, decorator, comment, control-flow keyword) to Go's
// equivalent top-level forms.
var allowedPrefixes = []string{
	"package ", "import", "func ", "type ", "var ", "const ",
	"//", "/*", "if ", "for ", "switch ",
}

type envelope struct {
	Code string `json:"code"`
}

// cleanResponse implements spec.md §4.8's response-cleaning pipeline:
// unwrap a JSON envelope, strip fenced code blocks, drop LLM filler
// preamble, truncate trailing prose, and scan forward to the first
// allowed syntactic prefix if the result doesn't already start with one.
func cleanResponse(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "{") {
		var env envelope
		if err := json.Unmarshal([]byte(trimmed), &env); err == nil && env.Code != "" {
			trimmed = env.Code
		}
	}

	trimmed = stripFencedBlocks(trimmed)
	trimmed = dropFillerPreamble(trimmed)
	trimmed = truncateTrailingProse(trimmed)

	if !startsWithAllowedPrefix(trimmed) {
		trimmed = scanToAllowedPrefix(trimmed)
	}
	if strings.TrimSpace(trimmed) == "" {
		return "", fmt.Errorf("synth: cleaned response has no recognizable code")
	}
	return trimmed, nil
}

func stripFencedBlocks(s string) string {
	var out []string
	inFence := false
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func dropFillerPreamble(s string) string {
	lines := strings.Split(s, "\n")
	start := 0
	for start < len(lines) {
		lower := strings.ToLower(strings.TrimSpace(lines[start]))
		if lower == "" {
			start++
			continue
		}
		isFiller := false
		for _, f := range fillerPrefixes {
			if strings.HasPrefix(lower, f) {
				isFiller = true
				break
			}
		}
		if !isFiller {
			break
		}
		start++
	}
	return strings.Join(lines[start:], "\n")
}

// truncateTrailingProse drops everything after the last line that looks
// like Go source (ends with one of the structural terminators), per
// spec.md §4.8(d).
func truncateTrailingProse(s string) string {
	lines := strings.Split(s, "\n")
	last := -1
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if strings.HasSuffix(t, "}") || strings.HasSuffix(t, ";") || strings.HasPrefix(t, "//") || startsWithAllowedPrefix(t) {
			last = i
		}
	}
	if last == -1 {
		return s
	}
	return strings.Join(lines[:last+1], "\n")
}

func startsWithAllowedPrefix(s string) bool {
	t := strings.TrimSpace(s)
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

func scanToAllowedPrefix(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if startsWithAllowedPrefix(line) {
			return strings.Join(lines[i:], "\n")
		}
	}
	return s
}
