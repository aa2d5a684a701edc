package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CodeSetter56/knowledge-search/internal/config"
	"github.com/CodeSetter56/knowledge-search/internal/core/ports"
	"github.com/CodeSetter56/knowledge-search/internal/core/usecase"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/ai/openrouter"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/extractor/office"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/extractor/pdftext"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/ocr/ocrspace"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/queue/nats"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/repository/postgres"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/resilience"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/storage/localfs"
	"github.com/CodeSetter56/knowledge-search/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Pipeline    *metrics.PipelineMetrics
	HTTPMetrics *metrics.HTTPServerMetrics

	UploadUC ports.FileUploader
	SearchUC ports.FileSearcher
	DeleteUC ports.FileDeleter
	StatsUC  ports.StatsProvider

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	fileRepo := postgres.NewFileRepository(db)
	if err := fileRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	statsRepo := postgres.NewStatsRepository(db, cfg.PDFMonthlyLimit)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	// Without an OCR key the local PDF text layer stands in for the
	// external service; scanned PDFs then degrade to no-text results.
	var ocr ports.OCRService
	if cfg.OCRAPIKey != "" {
		ocr = ocrspace.New(cfg.OCRAPIURL, cfg.OCRAPIKey, ocrspace.Options{
			Timeout:            time.Duration(cfg.OCRTimeoutSeconds) * time.Second,
			RequestsPerSecond:  cfg.OCRRequestsPerSecond,
			ResilienceExecutor: executor,
		})
	} else {
		slog.Warn("ocr_key_missing_using_local_text_layer")
		ocr = pdftext.NewExtractor()
	}

	ai := openrouter.New(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, openrouter.Options{
		Timeout:            time.Duration(cfg.AITimeoutSeconds) * time.Second,
		RequestsPerSecond:  cfg.AIRequestsPerSecond,
		ResilienceExecutor: executor,
	})

	var events ports.EventPublisher
	var queue *nats.Publisher
	if cfg.NATSURL != "" {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSUploadedSubject, cfg.NATSDeletedSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = queue
	}

	pipeline := metrics.NewPipelineMetrics("api")
	httpMetrics := metrics.NewHTTPServerMetrics("api", pipeline)
	extractor := office.NewExtractor()

	uploadUC := usecase.NewUploadFileUseCase(fileRepo, statsRepo, storage, extractor, ocr, ai, events, pipeline)
	searchUC := usecase.NewSearchFilesUseCase(fileRepo, pipeline)
	deleteUC := usecase.NewDeleteFileUseCase(fileRepo, statsRepo, storage, events, pipeline)
	statsUC := usecase.NewStatsUseCase(statsRepo)

	return &App{
		Config: cfg,

		Pipeline:    pipeline,
		HTTPMetrics: httpMetrics,

		UploadUC: uploadUC,
		SearchUC: searchUC,
		DeleteUC: deleteUC,
		StatsUC:  statsUC,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
