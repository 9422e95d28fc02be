package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldDecomposeRequiresKeywordAndLength(t *testing.T) {
	require.True(t, ShouldDecompose("fetch the report and then email it to the team"))
	require.False(t, ShouldDecompose("add 2 and 2"))
	require.False(t, ShouldDecompose("sort this list"))
}

func TestValidateGraphDetectsUnknownDependency(t *testing.T) {
	_, err := validateGraph([]Step{{ID: "a", DependsOn: []string{"missing"}}})
	require.Error(t, err)
}

func TestValidateGraphDetectsCycle(t *testing.T) {
	problems, err := validateGraph([]Step{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, problems)
}

func TestValidateGraphAcceptsAcyclicGraph(t *testing.T) {
	problems, err := validateGraph([]Step{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a", "b"}},
	})
	require.NoError(t, err)
	require.Empty(t, problems)
}

func TestExecutionGroupsBatchesByDependency(t *testing.T) {
	steps := []Step{
		{ID: "a"},
		{ID: "b"},
		{ID: "c", DependsOn: []string{"a", "b"}},
	}
	groups := ExecutionGroups(steps)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Steps, 2)
	require.Len(t, groups[1].Steps, 1)
	require.Equal(t, "c", groups[1].Steps[0].ID)
}

func TestSingleStepSpecAtMaxDepth(t *testing.T) {
	spec := singleStepSpec("do a thing", maxDecompositionDepth)
	require.Len(t, spec.Steps, 1)
	require.Equal(t, maxDecompositionDepth, spec.Depth)
}
