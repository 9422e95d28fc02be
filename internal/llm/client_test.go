package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelForTierFallsBackToDefault(t *testing.T) {
	c := &Client{model: "default-model", tiers: map[string]string{"fast": "fast-model"}}

	require.Equal(t, "fast-model", c.modelFor(TierFast))
	require.Equal(t, "default-model", c.modelFor(TierPowerful))
}

func TestIsRetryable(t *testing.T) {
	require.False(t, isRetryable(context.Canceled))
	require.False(t, isRetryable(context.DeadlineExceeded))
	require.True(t, isRetryable(errors.New("rate limited")))
}
