package store

import (
	"context"
	"testing"
	"time"

	"kernelforge/internal/config"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.StoreConfig{DatabasePath: "file::memory:?cache=shared", RequireVectorIndex: false}
	s, err := Open(context.Background(), cfg, 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndFindExact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Store(ctx, Artifact{Kind: KindFunction, Content: "func F() {}", Tags: []string{"go", "util"}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.FindExact(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "func F() {}", got.Content)
	require.ElementsMatch(t, []string{"go", "util"}, got.Tags)
}

func TestFindExactMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindExact(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindByTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Store(ctx, Artifact{Kind: KindFunction, Content: "a", Tags: []string{"x", "y"}})
	require.NoError(t, err)
	_, err = s.Store(ctx, Artifact{Kind: KindFunction, Content: "b", Tags: []string{"x"}})
	require.NoError(t, err)

	matches, err := s.FindByTags(ctx, KindFunction, []string{"x", "y"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "a", matches[0].Content)
}

func TestFindSimilar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Store(ctx, Artifact{Kind: KindFunction, Content: "near", Embedding: []float32{1, 0, 0, 0}})
	require.NoError(t, err)
	_, err = s.Store(ctx, Artifact{Kind: KindFunction, Content: "far", Embedding: []float32{0, 1, 0, 0}})
	require.NoError(t, err)

	matches, err := s.FindSimilar(ctx, KindFunction, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "near", matches[0].Artifact.Content)
}

func TestIncrementUsageAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Store(ctx, Artifact{Kind: KindPattern, Content: "p"})
	require.NoError(t, err)

	require.NoError(t, s.IncrementUsage(ctx, id))
	got, err := s.FindExact(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, got.UsageCount)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.FindExact(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClearKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Store(ctx, Artifact{Kind: KindConversation, Content: "c1"})
	require.NoError(t, err)
	_, err = s.Store(ctx, Artifact{Kind: KindConversation, Content: "c2"})
	require.NoError(t, err)

	n, err := s.ClearKind(ctx, KindConversation)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestApplyDecay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Store(ctx, Artifact{Kind: KindPattern, Content: "old"})
	require.NoError(t, err)

	n, err := s.ApplyDecay(ctx, time.Now().Add(decayHalfLife))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := s.FindExact(ctx, id)
	require.NoError(t, err)
	require.InDelta(t, 0.5, got.Score, 0.01)
}
