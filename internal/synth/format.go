package synth

import (
	"context"
	"fmt"
	"go/format"

	"kernelforge/internal/fixpattern"
	"kernelforge/internal/logging"
)

// formatSource applies Go's canonical formatter, spec.md §4.8's "external
// formatter (PEP-8-style)" step adapted to Go's own equivalent
// (go/format, the library gofmt is built on). Unlike the original's
// external PEP-8 formatter binary, go/format.Source can't be "missing" —
// it's linked into the binary — so the adapted failure mode is a syntax
// error the formatter can't parse past. When that happens the synthesizer
// consults the Fix Pattern Library (C11) for a previously successful fix
// keyed on the formatter's error text, matching spec.md's "trigger the
// learned-fix mechanism ... records success/failure, and retries".
func formatSource(ctx context.Context, code string, fixes *fixpattern.Library, language string) (string, error) {
	if language != "go" {
		return code, nil
	}

	log := logging.Get(logging.CategorySynth)

	formatted, err := format.Source([]byte(code))
	if err == nil {
		return string(formatted), nil
	}

	if fixes == nil {
		return "", fmt.Errorf("synth: format: %w", err)
	}

	signature := err.Error()
	patterns, lookupErr := fixes.Lookup(ctx, signature, 1)
	if lookupErr != nil || len(patterns) == 0 {
		log.Warnw("no known fix for format error", "error", signature)
		return "", fmt.Errorf("synth: format: %w", err)
	}

	candidate := patterns[0].Diff
	retried, retryErr := format.Source([]byte(candidate))
	recordErr := fixes.Record(ctx, signature, language, candidate, retryErr == nil)
	if recordErr != nil {
		log.Warnw("failed to record fix pattern outcome", "error", recordErr)
	}
	if retryErr != nil {
		return "", fmt.Errorf("synth: format after learned fix: %w", retryErr)
	}
	return string(retried), nil
}
