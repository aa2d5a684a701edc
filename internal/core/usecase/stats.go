package usecase

import (
	"context"
	"fmt"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
	"github.com/CodeSetter56/knowledge-search/internal/core/ports"
)

type StatsUseCase struct {
	stats ports.StatsRepository
}

func NewStatsUseCase(stats ports.StatsRepository) *StatsUseCase {
	return &StatsUseCase{stats: stats}
}

// Stats returns the counters singleton, lazily created with defaults on
// first access.
func (uc *StatsUseCase) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := uc.stats.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	return stats, nil
}
