package ports

import (
	"context"
	"io"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

// FileUploader is the inbound contract for upload orchestration. On hard
// failure the returned result still carries a best-effort stats snapshot.
type FileUploader interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.UploadResult, error)
}

// FileSearcher serves keyword search and filtered catalog listings.
type FileSearcher interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.File, error)
}

// FileDeleter removes a file record, its physical bytes (best effort) and
// rolls the stats counters back.
type FileDeleter interface {
	Delete(ctx context.Context, id string) (*domain.Stats, error)
}

// StatsProvider reads the counters singleton, lazily creating it.
type StatsProvider interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}
