package usecase

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
	"github.com/CodeSetter56/knowledge-search/internal/core/ports"
	"github.com/CodeSetter56/knowledge-search/internal/observability/metrics"
)

// maxAnalyzedTextChars caps how much extracted text is sent to the AI
// collaborator.
const maxAnalyzedTextChars = 3000

type UploadFileUseCase struct {
	files     ports.FileRepository
	stats     ports.StatsRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	ocr       ports.OCRService
	ai        ports.Summarizer
	events    ports.EventPublisher
	pipeline  *metrics.PipelineMetrics
	now       func() time.Time
}

func NewUploadFileUseCase(
	files ports.FileRepository,
	stats ports.StatsRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	ocr ports.OCRService,
	ai ports.Summarizer,
	events ports.EventPublisher,
	pipeline *metrics.PipelineMetrics,
) *UploadFileUseCase {
	return &UploadFileUseCase{
		files:     files,
		stats:     stats,
		storage:   storage,
		extractor: extractor,
		ocr:       ocr,
		ai:        ai,
		events:    events,
		pipeline:  pipeline,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload runs the full ingestion pipeline: store bytes, classify, advance
// the credit cycle, enrich (or degrade), count and persist. Enrichment
// failures never abort the upload; only validation and storage writes do.
func (uc *UploadFileUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.UploadResult, error) {
	start := uc.now()

	data, err := uc.validateInput(filename, mimeType, body)
	if err != nil {
		return &domain.UploadResult{Stats: uc.statsSnapshot(ctx)}, err
	}

	category := domain.Classify(mimeType)
	storageKey := uc.buildStorageKey(category, filename)

	// Durability first: bytes land before any analysis is attempted, so a
	// file that fails enrichment is still retrievable and re-analyzable.
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(data)); err != nil {
		return &domain.UploadResult{Stats: uc.statsSnapshot(ctx)},
			domain.WrapError(domain.ErrStorageWrite, "save upload", err)
	}

	stats, err := uc.touchStats(ctx, category == domain.CategoryPDF)
	if err != nil {
		return &domain.UploadResult{Stats: nil},
			fmt.Errorf("load upload stats: %w", err)
	}

	analysis := uc.analyze(ctx, category, mimeType, data, stats)

	if err := uc.stats.Increment(ctx, domain.UploadCounters(mimeType)); err != nil {
		slog.Warn("stats_increment_failed", "file", filename, "error", err)
	}

	file := &domain.File{
		ID:          uuid.NewString(),
		Filename:    filename,
		Path:        storageKey,
		FileType:    mimeType,
		Summary:     analysis.Summary,
		Tags:        analysis.Tags,
		ScannedText: analysis.ScannedText,
		UploadDate:  uc.now(),
	}
	if err := uc.files.Create(ctx, file); err != nil {
		return &domain.UploadResult{Stats: uc.statsSnapshot(ctx)},
			fmt.Errorf("create file record: %w", err)
	}

	if uc.events != nil {
		if err := uc.events.PublishFileUploaded(ctx, file.ID); err != nil {
			slog.Warn("publish_file_uploaded_failed", "file_id", file.ID, "error", err)
		}
	}

	uc.pipeline.RecordUpload(string(category), analysis.Degraded, uc.now().Sub(start))

	return &domain.UploadResult{File: file, Stats: uc.statsSnapshot(ctx)}, nil
}

func (uc *UploadFileUseCase) validateInput(filename, mimeType string, body io.Reader) ([]byte, error) {
	if strings.TrimSpace(filename) == "" || strings.TrimSpace(mimeType) == "" || body == nil {
		return nil, domain.WrapError(domain.ErrMissingInput, "validate upload",
			fmt.Errorf("filename, mime type and file body are required"))
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMissingInput, "read upload body", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrMissingInput, "validate upload",
			fmt.Errorf("empty file body"))
	}
	return data, nil
}

func (uc *UploadFileUseCase) buildStorageKey(category domain.Category, filename string) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	unique := fmt.Sprintf("%d-%s-%s", uc.now().UnixMilli(), hex.EncodeToString(suffix), sanitizeFilename(filename))
	return domain.StorageFolder(category) + "/" + unique
}

// touchStats loads the singleton and advances the credit cycle. The
// rollover check runs on every upload regardless of type; without this a
// non-PDF-only workload would never move the window forward.
func (uc *UploadFileUseCase) touchStats(ctx context.Context, isPDF bool) (*domain.Stats, error) {
	stats, err := uc.stats.Get(ctx)
	if err != nil {
		return nil, err
	}

	expectedReset := stats.PDFNextReset
	transition, changed := domain.AdvanceCycle(stats, uc.now(), isPDF)
	if changed {
		if err := uc.stats.ApplyCycle(ctx, transition, expectedReset); err != nil {
			slog.Warn("credit_cycle_apply_failed", "error", err)
		}
	}
	uc.pipeline.SetCreditsRemaining(stats.PDFCreditsRemaining)
	return stats, nil
}

// analyze picks the enrichment path for the category and downgrades every
// enrichment failure into a degraded-but-successful result.
func (uc *UploadFileUseCase) analyze(
	ctx context.Context,
	category domain.Category,
	mimeType string,
	data []byte,
	stats *domain.Stats,
) domain.Analysis {
	switch category {
	case domain.CategoryImage:
		return uc.analyzeImage(ctx, mimeType, data)
	case domain.CategoryPDF:
		return uc.analyzePDF(ctx, data, stats)
	default:
		return uc.analyzeLocal(ctx, mimeType, data)
	}
}

func (uc *UploadFileUseCase) analyzeImage(ctx context.Context, mimeType string, data []byte) domain.Analysis {
	result, err := uc.ai.AnalyzeImage(ctx, data, mimeType)
	if err != nil {
		slog.Warn("image_analysis_degraded", "error", err)
		return degradedAnalysis(mimeType, "", err)
	}
	// Vision AI reads the image directly; the summary doubles as the
	// searchable text since no literal OCR runs on images.
	return domain.Analysis{
		Summary:     result.Summary,
		Tags:        result.Tags,
		ScannedText: result.Summary,
	}
}

func (uc *UploadFileUseCase) analyzePDF(ctx context.Context, data []byte, stats *domain.Stats) domain.Analysis {
	if !stats.HasCredit() {
		// Deterministic gate outcome, not a failure: the file is still
		// cataloged by filename and type.
		return domain.Analysis{
			Summary:  "PDF analysis skipped: credit limit reached.",
			Tags:     []string{"pdf", "credit-limit-reached"},
			Degraded: true,
		}
	}

	ocrResult, err := uc.ocr.ExtractPDFText(ctx, data)
	if err != nil {
		slog.Warn("pdf_ocr_degraded", "error", err)
		return degradedAnalysis(domain.MimePDF, "", err)
	}
	if ocrResult.RemainingQuota != "" {
		slog.Info("ocr_quota_hint", "remaining", ocrResult.RemainingQuota)
	}

	if strings.TrimSpace(ocrResult.Text) == "" {
		return domain.Analysis{
			Summary:     "PDF contains no readable text.",
			Tags:        []string{"pdf", "no-text"},
			ScannedText: ocrResult.Text,
			Degraded:    true,
		}
	}

	result, err := uc.ai.AnalyzeText(ctx, capText(ocrResult.Text), " This is from a PDF document.")
	if err != nil {
		slog.Warn("pdf_ai_degraded", "error", err)
		return degradedAnalysis(domain.MimePDF, ocrResult.Text, err)
	}

	// Exactly one credit per PDF actually analyzed, consumed only after
	// the AI call succeeded. The store floors the balance at zero.
	consumed, err := uc.stats.ConsumeCredit(ctx)
	if err != nil {
		slog.Warn("credit_consume_failed", "error", err)
	} else if !consumed {
		slog.Warn("credit_floor_hit_concurrently")
	}

	return domain.Analysis{
		Summary:     result.Summary,
		Tags:        result.Tags,
		ScannedText: ocrResult.Text,
	}
}

func (uc *UploadFileUseCase) analyzeLocal(ctx context.Context, mimeType string, data []byte) domain.Analysis {
	text, err := uc.extractor.Extract(ctx, mimeType, data)
	if err != nil {
		slog.Warn("local_extraction_degraded", "mime_type", mimeType, "error", err)
		if domain.IsKind(err, domain.ErrUnsupportedFormat) {
			return domain.Analysis{
				Summary:  "Analysis is not supported for this file type.",
				Tags:     []string{mimeType, "unsupported"},
				Degraded: true,
			}
		}
		return degradedAnalysis(mimeType, "", err)
	}

	if strings.TrimSpace(text) == "" {
		return domain.Analysis{
			Summary:     "File contains no readable text.",
			Tags:        []string{mimeType, "empty"},
			ScannedText: text,
			Degraded:    true,
		}
	}

	result, err := uc.ai.AnalyzeText(ctx, capText(text), "")
	if err != nil {
		slog.Warn("text_ai_degraded", "mime_type", mimeType, "error", err)
		return degradedAnalysis(mimeType, text, err)
	}

	return domain.Analysis{
		Summary:     result.Summary,
		Tags:        result.Tags,
		ScannedText: text,
	}
}

// statsSnapshot is best-effort: error paths still want to hand the caller
// whatever counters are readable.
func (uc *UploadFileUseCase) statsSnapshot(ctx context.Context) *domain.Stats {
	stats, err := uc.stats.Get(ctx)
	if err != nil {
		slog.Warn("stats_snapshot_failed", "error", err)
		return nil
	}
	return stats
}

func degradedAnalysis(mimeType, scannedText string, cause error) domain.Analysis {
	return domain.Analysis{
		Summary:     fmt.Sprintf("Analysis failed: %v", cause),
		Tags:        []string{mimeType},
		ScannedText: scannedText,
		Degraded:    true,
	}
}

func capText(text string) string {
	if len(text) > maxAnalyzedTextChars {
		return text[:maxAnalyzedTextChars]
	}
	return text
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "file.bin"
	}
	return base
}
