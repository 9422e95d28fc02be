package fixpattern

import (
	"context"
	"testing"

	"kernelforge/internal/config"
	"kernelforge/internal/store"

	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	s, err := store.Open(context.Background(), config.StoreConfig{DatabasePath: "file::memory:?cache=shared"}, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, nil, config.RepairConfig{FixPatternSuccessThreshold: 0.5})
}

func TestRecordAndLookupExact(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	require.NoError(t, lib.Record(ctx, "nil pointer dereference", "go", "add nil check", true))

	got, err := lib.Lookup(ctx, "nil pointer dereference", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, got[0].SuccessCount)
	require.Equal(t, "add nil check", got[0].Diff)
}

func TestRecordAccumulatesCounts(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	require.NoError(t, lib.Record(ctx, "index out of range", "go", "bounds check", true))
	require.NoError(t, lib.Record(ctx, "index out of range", "go", "bounds check", false))

	got, err := lib.Lookup(ctx, "index out of range", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, got[0].SuccessCount)
	require.Equal(t, 1, got[0].FailureCount)
	require.InDelta(t, 0.5, got[0].SuccessRate(), 0.001)
}

func TestPruneLanguageRemovesLowSuccess(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, lib.Record(ctx, "flaky fix", "go", "noop", false))
	}

	n, err := lib.PruneLanguage(ctx, "go", 2)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := lib.Lookup(ctx, "flaky fix", 5)
	require.NoError(t, err)
	require.Empty(t, got)
}
