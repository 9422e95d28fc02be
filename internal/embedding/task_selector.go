package embedding

import (
	"strings"

	"kernelforge/internal/logging"
)

// ContentType describes the kind of text being embedded, so the GenAI
// backend can select a task type tuned for how the vector will be used.
type ContentType string

const (
	ContentTypeCode          ContentType = "code"           // synthesized node source
	ContentTypeSpecification ContentType = "specification"  // planner specifications
	ContentTypeConversation  ContentType = "conversation"    // workflow/conversation artifacts
	ContentTypeQuery         ContentType = "query"           // incoming request text
	ContentTypeFixPattern    ContentType = "fix_pattern"     // error->fix pattern text
)

// SelectTaskType maps a ContentType (and whether this embedding is a query
// vs. a document being indexed) to a GenAI embedding task type.
func SelectTaskType(contentType ContentType, isQuery bool) string {
	switch contentType {
	case ContentTypeCode:
		if isQuery {
			return "CODE_RETRIEVAL_QUERY"
		}
		return "RETRIEVAL_DOCUMENT"
	case ContentTypeQuery:
		return "RETRIEVAL_QUERY"
	case ContentTypeSpecification:
		return "RETRIEVAL_DOCUMENT"
	case ContentTypeFixPattern:
		return "FACT_VERIFICATION"
	case ContentTypeConversation:
		return "SEMANTIC_SIMILARITY"
	default:
		return "SEMANTIC_SIMILARITY"
	}
}

// DetectContentType heuristically classifies text when the caller has not
// supplied an explicit artifact kind.
func DetectContentType(text string, metadata map[string]interface{}) ContentType {
	if meta, ok := metadata["content_type"].(string); ok {
		return ContentType(meta)
	}

	lower := strings.ToLower(text)
	codeIndicators := []string{"func ", "package ", "import ", "type ", "struct ", "{", "}", "//", "return "}
	score := 0
	for _, ind := range codeIndicators {
		if strings.Contains(lower, ind) {
			score++
		}
	}
	if score >= 3 {
		return ContentTypeCode
	}

	if strings.Contains(lower, "error") || strings.Contains(lower, "fix") {
		return ContentTypeFixPattern
	}

	return ContentTypeConversation
}

// GetOptimalTaskType combines detection and selection for convenience.
func GetOptimalTaskType(text string, metadata map[string]interface{}, isQuery bool) string {
	contentType := DetectContentType(text, metadata)
	taskType := SelectTaskType(contentType, isQuery)
	logging.Get(logging.CategoryEmbedding).Debugw("selected task type", "content_type", contentType, "task_type", taskType)
	return taskType
}
