package usecase

import (
	"context"
	"fmt"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
	"github.com/CodeSetter56/knowledge-search/internal/core/ports"
	"github.com/CodeSetter56/knowledge-search/internal/observability/metrics"
)

type SearchFilesUseCase struct {
	files    ports.FileRepository
	pipeline *metrics.PipelineMetrics
}

func NewSearchFilesUseCase(files ports.FileRepository, pipeline *metrics.PipelineMetrics) *SearchFilesUseCase {
	return &SearchFilesUseCase{files: files, pipeline: pipeline}
}

// Search resolves a keyword/filter query against the catalog. The type
// and date predicate always applies; with a keyword present results rank
// by relevance, without one they list newest-first.
func (uc *SearchFilesUseCase) Search(ctx context.Context, query domain.SearchQuery) ([]domain.File, error) {
	normalized := query.Normalize()

	results, err := uc.files.Search(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}

	uc.pipeline.RecordSearch(string(normalized.Filter), normalized.Keyword != "", len(results))
	return results, nil
}
