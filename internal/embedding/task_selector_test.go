package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectTaskType(t *testing.T) {
	require.Equal(t, "CODE_RETRIEVAL_QUERY", SelectTaskType(ContentTypeCode, true))
	require.Equal(t, "RETRIEVAL_DOCUMENT", SelectTaskType(ContentTypeCode, false))
	require.Equal(t, "FACT_VERIFICATION", SelectTaskType(ContentTypeFixPattern, false))
	require.Equal(t, "SEMANTIC_SIMILARITY", SelectTaskType(ContentTypeConversation, false))
}

func TestDetectContentTypeMetadataWins(t *testing.T) {
	meta := map[string]interface{}{"content_type": "specification"}
	require.Equal(t, ContentTypeSpecification, DetectContentType("func main() {}", meta))
}

func TestDetectContentTypeHeuristics(t *testing.T) {
	code := "package main\n\nfunc main() { return }\n"
	require.Equal(t, ContentTypeCode, DetectContentType(code, map[string]interface{}{}))

	conv := "please help me with this"
	require.Equal(t, ContentTypeConversation, DetectContentType(conv, map[string]interface{}{}))
}

func TestGetOptimalTaskType(t *testing.T) {
	got := GetOptimalTaskType("package main\nfunc main() {}", map[string]interface{}{}, true)
	require.Equal(t, "CODE_RETRIEVAL_QUERY", got)
}
