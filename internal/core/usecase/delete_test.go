package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

func seedFile(files *fakeFileRepo, id, mimeType, path string) {
	files.files[id] = &domain.File{
		ID:         id,
		Filename:   "seed",
		Path:       path,
		FileType:   mimeType,
		Tags:       []string{},
		UploadDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDeleteRemovesRecordAndRollsBackCounters(t *testing.T) {
	files := newFakeFileRepo()
	stats := newFakeStatsRepo()
	storage := newFakeStorage()
	events := &fakeEvents{}
	seedFile(files, "f1", domain.MimePDF, "pdfs/key.pdf")

	uc := NewDeleteFileUseCase(files, stats, storage, events, nil)
	snapshot, err := uc.Delete(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if snapshot == nil {
		t.Fatalf("expected stats snapshot")
	}

	if len(storage.removed) != 1 || storage.removed[0] != "pdfs/key.pdf" {
		t.Fatalf("removed = %v", storage.removed)
	}
	if len(files.deletedIDs) != 1 || files.deletedIDs[0] != "f1" {
		t.Fatalf("deleted ids = %v", files.deletedIDs)
	}
	if len(events.deleted) != 1 || events.deleted[0] != "f1" {
		t.Fatalf("deleted events = %v", events.deleted)
	}

	if len(stats.decremented) != 1 {
		t.Fatalf("decrement calls = %d", len(stats.decremented))
	}
	keys := stats.decremented[0]
	want := []domain.CounterKey{domain.CounterPDFUploads, domain.CounterPDFUploadsTotal, domain.CounterTotalUploads}
	if len(keys) != len(want) {
		t.Fatalf("decrement keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("decrement keys = %v, want %v", keys, want)
		}
	}
}

func TestDeleteReturnsNotFoundForMissingFile(t *testing.T) {
	uc := NewDeleteFileUseCase(newFakeFileRepo(), newFakeStatsRepo(), newFakeStorage(), &fakeEvents{}, nil)

	_, err := uc.Delete(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSurvivesPhysicalRemoveFailure(t *testing.T) {
	files := newFakeFileRepo()
	stats := newFakeStatsRepo()
	storage := newFakeStorage()
	storage.removeErr = errors.New("bytes already gone")
	seedFile(files, "f1", domain.MimePlainText, "texts/key.txt")

	uc := NewDeleteFileUseCase(files, stats, storage, &fakeEvents{}, nil)
	snapshot, err := uc.Delete(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if snapshot == nil {
		t.Fatalf("expected stats snapshot despite physical delete failure")
	}
	if len(files.deletedIDs) != 1 {
		t.Fatalf("catalog entry must still be removed")
	}
}
