package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyArithmetic(t *testing.T) {
	require.Equal(t, ClassArithmetic, Classify("12 + 34 * 2"))
}

func TestClassifyAlgorithm(t *testing.T) {
	require.Equal(t, ClassAlgorithm, Classify("find the shortest path in this graph"))
}

func TestClassifySimpleContent(t *testing.T) {
	require.Equal(t, ClassSimpleContent, Classify("write a haiku about autumn"))
}

func TestClassifyComplexContent(t *testing.T) {
	long := "Please write a detailed essay. It should cover the history of the topic. " +
		"It should also cover the current state of the art. It should discuss open problems. " +
		"Finally it should conclude with a recommendation. Keep it readable."
	require.Equal(t, ClassComplexContent, Classify(long))
}

func TestParseSentinelResponse(t *testing.T) {
	verdict, confidence := parseSentinelResponse("verdict: SAME\nconfidence: 0.95\n")
	require.Equal(t, VerdictSame, verdict)
	require.InDelta(t, 0.95, confidence, 0.0001)
}

func TestParseSentinelResponseDefaultsOnGarbage(t *testing.T) {
	verdict, confidence := parseSentinelResponse("not a verdict at all")
	require.Equal(t, VerdictDifferent, verdict)
	require.Equal(t, 0.0, confidence)
}

func TestParseSpecification(t *testing.T) {
	resp := "PROBLEM: sum two numbers\n" +
		"REQUIREMENTS: accept ints; return int\n" +
		"PLAN: 1. parse inputs 2. add them\n" +
		"INPUTS: a, b\n" +
		"OUTPUTS: sum\n" +
		"TESTS: 1+1=2; 2+2=4; 0+0=0\n"

	spec := parseSpecification(resp)
	require.Equal(t, "sum two numbers", spec.ProblemDefinition)
	require.Equal(t, []string{"accept ints", "return int"}, spec.Requirements)
	require.Equal(t, []string{"a", "b"}, spec.Inputs)
	require.Equal(t, []string{"sum"}, spec.Outputs)
	require.Len(t, spec.TestCases, 3)
}

func TestSpecificationTruncateTrimsTemplateFirst(t *testing.T) {
	spec := &Specification{
		ProblemDefinition: "short",
		Template:          string(make([]byte, 100)),
	}
	spec.truncate(10)
	require.LessOrEqual(t, len(spec.ProblemDefinition)+len(spec.Template), 10)
}

func TestDuplicateSentinelWithoutStoreReturnsDifferent(t *testing.T) {
	p := New(nil, nil, nil)
	s, err := p.duplicateSentinel(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, VerdictDifferent, s.Verdict)
}
