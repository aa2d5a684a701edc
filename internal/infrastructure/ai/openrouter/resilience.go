package openrouter

import "github.com/CodeSetter56/knowledge-search/internal/infrastructure/resilience"

func classifyAIError(err error) resilience.ErrorClassification {
	return resilience.ClassifyHTTPError(err)
}
