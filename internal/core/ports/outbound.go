package ports

import (
	"context"
	"io"
	"time"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

// FileRepository persists and reads file records.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, id string) (*domain.File, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.File, error)
}

// StatsRepository owns the global counters singleton. All counter
// mutation happens through atomic store-side arithmetic, never through
// read-modify-write in application memory.
type StatsRepository interface {
	// Get returns the singleton, lazily creating it with defaults.
	Get(ctx context.Context) (*domain.Stats, error)
	// ApplyCycle re-arms the credit window. The expected previous reset
	// bound guards against concurrent re-arms: the write only lands when
	// the stored bound still matches (nil before first initialization).
	ApplyCycle(ctx context.Context, transition domain.CycleTransition, expectedReset *time.Time) error
	// ConsumeCredit decrements one PDF credit with a floor at zero and
	// reports whether a credit was actually consumed.
	ConsumeCredit(ctx context.Context) (bool, error)
	Increment(ctx context.Context, keys []domain.CounterKey) error
	// Decrement floors every touched counter at zero.
	Decrement(ctx context.Context, keys []domain.CounterKey) error
}

// ObjectStorage stores source file bytes under opaque keys.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// TextExtractor converts office/text format bytes into plain text.
// PDF and image types never reach it.
type TextExtractor interface {
	Extract(ctx context.Context, mimeType string, data []byte) (string, error)
}

// OCRService is the external PDF text extraction collaborator.
type OCRService interface {
	ExtractPDFText(ctx context.Context, data []byte) (domain.OCRResult, error)
}

// Summarizer is the external AI collaborator producing summary and tags
// from document text or directly from image bytes.
type Summarizer interface {
	AnalyzeText(ctx context.Context, text, contextHint string) (domain.AIAnalysis, error)
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (domain.AIAnalysis, error)
}

// EventPublisher announces catalog changes to downstream consumers.
type EventPublisher interface {
	PublishFileUploaded(ctx context.Context, fileID string) error
	PublishFileDeleted(ctx context.Context, fileID string) error
}
