package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
	"github.com/CodeSetter56/knowledge-search/internal/core/ports"
	"github.com/CodeSetter56/knowledge-search/internal/observability/metrics"
)

type DeleteFileUseCase struct {
	files    ports.FileRepository
	stats    ports.StatsRepository
	storage  ports.ObjectStorage
	events   ports.EventPublisher
	pipeline *metrics.PipelineMetrics
}

func NewDeleteFileUseCase(
	files ports.FileRepository,
	stats ports.StatsRepository,
	storage ports.ObjectStorage,
	events ports.EventPublisher,
	pipeline *metrics.PipelineMetrics,
) *DeleteFileUseCase {
	return &DeleteFileUseCase{
		files:    files,
		stats:    stats,
		storage:  storage,
		events:   events,
		pipeline: pipeline,
	}
}

// Delete removes the catalog entry, decrements the counters the upload
// incremented (floored at zero) and cleans up the physical bytes.
// Physical cleanup is best-effort: the file may already be gone from
// storage, and the catalog removal must not depend on it.
func (uc *DeleteFileUseCase) Delete(ctx context.Context, id string) (*domain.Stats, error) {
	file, err := uc.files.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load file for delete: %w", err)
	}

	if err := uc.storage.Remove(ctx, file.Path); err != nil {
		slog.Warn("physical_delete_failed", "file_id", id, "path", file.Path, "error", err)
	}

	if err := uc.stats.Decrement(ctx, domain.UploadCounters(file.FileType)); err != nil {
		slog.Warn("stats_decrement_failed", "file_id", id, "error", err)
	}

	if err := uc.files.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete file record: %w", err)
	}
	uc.pipeline.RecordDelete()

	if uc.events != nil {
		if err := uc.events.PublishFileDeleted(ctx, id); err != nil {
			slog.Warn("publish_file_deleted_failed", "file_id", id, "error", err)
		}
	}

	stats, err := uc.stats.Get(ctx)
	if err != nil {
		slog.Warn("stats_snapshot_failed", "error", err)
		return nil, nil
	}
	return stats, nil
}
