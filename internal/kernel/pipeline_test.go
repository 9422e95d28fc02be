package kernel

import (
	"strings"
	"testing"

	"kernelforge/internal/config"
	"kernelforge/internal/store"

	"github.com/stretchr/testify/require"
)

func TestSlugifyNormalizesAndIsUnique(t *testing.T) {
	a := slugify("Reverse A String!")
	b := slugify("Reverse A String!")
	require.True(t, strings.HasPrefix(a, "reverse-a-string-"))
	require.NotEqual(t, a, b, "two calls must not collide even for identical input")
}

func TestSlugifyFallsBackOnEmptyInput(t *testing.T) {
	require.True(t, strings.HasPrefix(slugify("   "), "node-"))
}

func TestNormalizeDescriptionCollapsesWhitespaceAndCase(t *testing.T) {
	require.Equal(t, "reverse a string", normalizeDescription("  Reverse   A String  "))
}

func TestNodeNameForArtifactPrefersMetadata(t *testing.T) {
	a := store.Artifact{Tags: []string{"complete", "some-node"}, Metadata: map[string]string{"node": "the-real-node"}}
	require.Equal(t, "the-real-node", nodeNameForArtifact(a))
}

func TestNodeNameForArtifactFallsBackToSoleTag(t *testing.T) {
	a := store.Artifact{Tags: []string{"reverse-a-string-123"}}
	require.Equal(t, "reverse-a-string-123", nodeNameForArtifact(a))
}

func TestToEmbeddingConfigCarriesLLMAPIKey(t *testing.T) {
	cfg := &config.Config{
		LLM:       config.LLMConfig{APIKey: "secret"},
		Embedding: config.EmbeddingConfig{Provider: "genai", GenAIModel: "model-x", Dimensions: 768},
	}
	ec := toEmbeddingConfig(cfg)
	require.Equal(t, "secret", ec.GenAIAPIKey)
	require.Equal(t, "model-x", ec.GenAIModel)
	require.Equal(t, "genai", ec.Provider)
}
