package ocrspace

import "github.com/CodeSetter56/knowledge-search/internal/infrastructure/resilience"

func classifyOCRError(err error) resilience.ErrorClassification {
	return resilience.ClassifyHTTPError(err)
}
