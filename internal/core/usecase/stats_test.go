package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

func TestStatsReturnsLazySingleton(t *testing.T) {
	repo := newFakeStatsRepo()
	repo.stats.TotalUploads = 7

	uc := NewStatsUseCase(repo)
	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalUploads != 7 {
		t.Fatalf("totalUploads = %d", stats.TotalUploads)
	}
	if stats.PDFMonthlyLimit != domain.DefaultPDFMonthlyLimit {
		t.Fatalf("limit = %d", stats.PDFMonthlyLimit)
	}
}

func TestStatsWrapsRepositoryError(t *testing.T) {
	repo := newFakeStatsRepo()
	repo.getErr = errors.New("connection refused")

	uc := NewStatsUseCase(repo)
	if _, err := uc.Stats(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
