// Package repair implements the Repair Engine (C10): a six-attempt,
// four-stage escalation loop that fixes a failing node's code, with a
// Fix Pattern Library (C11) fast path and anti-hallucination validation
// on every LLM-claimed fix. Grounded directly on
// internal/verification/verifier.go's VerifyWithRetry (attempt loop,
// context-accumulation via a running history, success/failure recorded
// for learning) — generalized from "reverify a shard's task output" to
// "repair a node's failing code", with the teacher's quality-violation
// taxonomy and shard-reselection dropped in favor of spec.md §4.10's
// fixed stage/tier/temperature schedule and anti-hallucination checks.
package repair

import (
	"context"
	"fmt"
	"strings"

	"kernelforge/internal/fixpattern"
	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
)

// Stage is one of the four escalation stages spec.md §4.10 defines.
type Stage string

const (
	StageNormal           Stage = "normal"
	StageLogging          Stage = "logging"
	StagePowerfulLogging  Stage = "powerful_logging"
	StageGod              Stage = "god"
)

type attemptPlan struct {
	stage       Stage
	tier        llm.Tier
	temperature float32
}

// schedule is spec.md §4.10's six-attempt table; a seventh synthetic
// "god-level" entry is consulted only after all six fail.
var schedule = []attemptPlan{
	{StageNormal, llm.TierFast, 0.1},
	{StageNormal, llm.TierFast, 0.2},
	{StageLogging, llm.TierFast, 0.3},
	{StageLogging, llm.TierFast, 0.4},
	{StagePowerfulLogging, llm.TierPowerful, 0.5},
	{StagePowerfulLogging, llm.TierPowerful, 0.6},
}

var godAttempt = attemptPlan{StageGod, llm.TierGod, 0.1}

// HistoryEntry records one attempt for the running log every subsequent
// attempt is shown, per spec.md §4.10's "context accumulation".
type HistoryEntry struct {
	Stage        Stage
	Tier         llm.Tier
	Temperature  float32
	ClaimedFixes string
	Analysis     string
	ErrorSeen    string
}

// Outcome is the Repair Engine's final answer for one failing node.
type Outcome struct {
	Fixed       bool
	Code        string
	Stage       Stage
	Attempts    int
	History     []HistoryEntry
	ErrorType   string
}

// TestFunc re-runs the node and reports the error output, or "" on
// success. The engine is test-runner agnostic; the kernel wires this to
// internal/harness.
type TestFunc func(ctx context.Context, code string) (errorOutput string, err error)

// Engine runs the repair loop for one failing node.
type Engine struct {
	llm   *llm.Client
	fixes *fixpattern.Library
}

// New builds a repair Engine over the shared LLM client and Fix Pattern
// Library.
func New(client *llm.Client, fixes *fixpattern.Library) *Engine {
	return &Engine{llm: client, fixes: fixes}
}

// Repair attempts to fix code against the given specification and initial
// error, per spec.md §4.10: fast path against C11, then the six-attempt
// schedule, then god-level, with anti-hallucination rejection and a
// post-repair logging scrub at logging stages.
func (e *Engine) Repair(ctx context.Context, spec, code, initialError string, test TestFunc) (*Outcome, error) {
	log := logging.Get(logging.CategoryRepair)
	errorType := classifyError(initialError)

	if fixed, ok := e.tryFastPath(ctx, errorType, code, test); ok {
		log.Infow("repair resolved via fix pattern fast path", "error_type", errorType)
		return &Outcome{Fixed: true, Code: fixed, Stage: StageNormal, Attempts: 0, ErrorType: errorType}, nil
	}

	var history []HistoryEntry
	currentCode := code
	currentError := initialError

	run := func(plan attemptPlan) (bool, error) {
		prompt := buildPrompt(spec, currentCode, currentError, history, plan)
		resp, err := e.llm.Generate(ctx, llm.RoleRepair, plan.tier, prompt, llm.GenerateOptions{Temperature: plan.temperature})
		if err != nil {
			return false, fmt.Errorf("repair: generate: %w", err)
		}

		claimed, candidate := parseRepairResponse(resp)
		if !validateClaims(currentCode, candidate, claimed) {
			log.Warnw("rejecting hallucinated fix claim", "stage", plan.stage, "claims", claimed)
			if fixed, applied := applyDeterministicFix(currentCode, claimed); applied {
				candidate = fixed
			} else {
				history = append(history, HistoryEntry{plan.stage, plan.tier, plan.temperature, claimed, "rejected: claims did not match diff", currentError})
				return false, nil
			}
		}

		if plan.stage == StageLogging || plan.stage == StagePowerfulLogging {
			scrubbed := stripLoggingStatements(candidate)
			if scrubErr, err := test(ctx, scrubbed); err == nil && scrubErr == "" {
				candidate = scrubbed
			}
		}

		errOut, err := test(ctx, candidate)
		if err != nil {
			return false, fmt.Errorf("repair: test run: %w", err)
		}
		history = append(history, HistoryEntry{plan.stage, plan.tier, plan.temperature, claimed, "applied", errOut})
		currentCode = candidate
		currentError = errOut
		return errOut == "", nil
	}

	for _, plan := range schedule {
		ok, err := run(plan)
		if err != nil {
			return nil, err
		}
		if ok {
			e.recordSuccess(ctx, errorType, code, currentCode)
			return &Outcome{Fixed: true, Code: currentCode, Stage: plan.stage, Attempts: len(history), History: history, ErrorType: errorType}, nil
		}
	}

	ok, err := run(godAttempt)
	if err != nil {
		return nil, err
	}
	if ok {
		e.recordSuccess(ctx, errorType, code, currentCode)
		return &Outcome{Fixed: true, Code: currentCode, Stage: StageGod, Attempts: len(history), History: history, ErrorType: errorType}, nil
	}

	if e.fixes != nil {
		_ = e.fixes.Record(ctx, errorType, "go", "", false)
	}
	return &Outcome{Fixed: false, Code: currentCode, Stage: StageGod, Attempts: len(history), History: history, ErrorType: errorType}, nil
}

func (e *Engine) tryFastPath(ctx context.Context, errorType, code string, test TestFunc) (string, bool) {
	if e.fixes == nil {
		return "", false
	}
	patterns, err := e.fixes.Lookup(ctx, errorType, 1)
	if err != nil || len(patterns) == 0 {
		return "", false
	}
	best := patterns[0]
	if best.SuccessRate() <= fastPathThreshold {
		return "", false
	}
	candidate := best.Diff
	if candidate == "" {
		return "", false
	}
	errOut, err := test(ctx, candidate)
	success := err == nil && errOut == ""
	_ = e.fixes.Record(ctx, errorType, "go", candidate, success)
	if success {
		return candidate, true
	}
	return "", false
}

const fastPathThreshold = 0.6

func (e *Engine) recordSuccess(ctx context.Context, errorType, broken, fixed string) {
	if e.fixes == nil {
		return
	}
	_ = e.fixes.Record(ctx, errorType, "go", fixed, true)
	_ = broken
}

func classifyError(errorOutput string) string {
	lower := strings.ToLower(errorOutput)
	switch {
	case strings.Contains(lower, "syntax error"):
		return "syntax"
	case strings.Contains(lower, "undefined:"):
		return "undefined"
	case strings.Contains(lower, "import"):
		return "import"
	case strings.Contains(lower, "cannot use") || strings.Contains(lower, "mismatched types"):
		return "type"
	case errorOutput == "":
		return "none"
	default:
		return "runtime"
	}
}
