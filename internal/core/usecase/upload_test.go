package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

type fakeFileRepo struct {
	created    []*domain.File
	files      map[string]*domain.File
	searchGot  domain.SearchQuery
	searchOut  []domain.File
	searchErr  error
	createErr  error
	deleteErr  error
	deletedIDs []string
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: map[string]*domain.File{}}
}

func (f *fakeFileRepo) Create(_ context.Context, file *domain.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, file)
	f.files[file.ID] = file
	return nil
}

func (f *fakeFileRepo) GetByID(_ context.Context, id string) (*domain.File, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get file", errors.New("id="+id))
	}
	return file, nil
}

func (f *fakeFileRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.files[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete file", errors.New("id="+id))
	}
	delete(f.files, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeFileRepo) Search(_ context.Context, query domain.SearchQuery) ([]domain.File, error) {
	f.searchGot = query
	return f.searchOut, f.searchErr
}

type fakeStatsRepo struct {
	stats        *domain.Stats
	getErr       error
	applied      []domain.CycleTransition
	appliedGuard []*time.Time
	consumeOK    bool
	consumeErr   error
	consumed     int
	incremented  [][]domain.CounterKey
	decremented  [][]domain.CounterKey
	incErr       error
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{stats: domain.NewStats(), consumeOK: true}
}

func (f *fakeStatsRepo) Get(context.Context) (*domain.Stats, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.stats, nil
}

func (f *fakeStatsRepo) ApplyCycle(_ context.Context, transition domain.CycleTransition, expectedReset *time.Time) error {
	f.applied = append(f.applied, transition)
	f.appliedGuard = append(f.appliedGuard, expectedReset)
	return nil
}

func (f *fakeStatsRepo) ConsumeCredit(context.Context) (bool, error) {
	if f.consumeErr != nil {
		return false, f.consumeErr
	}
	f.consumed++
	return f.consumeOK, nil
}

func (f *fakeStatsRepo) Increment(_ context.Context, keys []domain.CounterKey) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.incremented = append(f.incremented, keys)
	return nil
}

func (f *fakeStatsRepo) Decrement(_ context.Context, keys []domain.CounterKey) error {
	f.decremented = append(f.decremented, keys)
	return nil
}

type fakeStorage struct {
	saved     map[string][]byte
	saveErr   error
	removed   []string
	removeErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string][]byte{}}
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *fakeStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, key)
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

type fakeOCR struct {
	result domain.OCRResult
	err    error
	calls  int
}

func (f *fakeOCR) ExtractPDFText(context.Context, []byte) (domain.OCRResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeSummarizer struct {
	textResult  domain.AIAnalysis
	textErr     error
	imageResult domain.AIAnalysis
	imageErr    error
	gotText     string
	gotHint     string
	gotMime     string
	textCalls   int
	imageCalls  int
}

func (f *fakeSummarizer) AnalyzeText(_ context.Context, text, contextHint string) (domain.AIAnalysis, error) {
	f.textCalls++
	f.gotText = text
	f.gotHint = contextHint
	return f.textResult, f.textErr
}

func (f *fakeSummarizer) AnalyzeImage(_ context.Context, _ []byte, mimeType string) (domain.AIAnalysis, error) {
	f.imageCalls++
	f.gotMime = mimeType
	return f.imageResult, f.imageErr
}

type fakeEvents struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeEvents) PublishFileUploaded(_ context.Context, fileID string) error {
	if f.err != nil {
		return f.err
	}
	f.uploaded = append(f.uploaded, fileID)
	return nil
}

func (f *fakeEvents) PublishFileDeleted(_ context.Context, fileID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, fileID)
	return nil
}

type uploadFixture struct {
	uc      *UploadFileUseCase
	files   *fakeFileRepo
	stats   *fakeStatsRepo
	storage *fakeStorage
	ocr     *fakeOCR
	ai      *fakeSummarizer
	events  *fakeEvents
	ext     *fakeExtractor
}

func newUploadFixture() *uploadFixture {
	fx := &uploadFixture{
		files:   newFakeFileRepo(),
		stats:   newFakeStatsRepo(),
		storage: newFakeStorage(),
		ocr:     &fakeOCR{result: domain.OCRResult{Text: "ocr text"}},
		ai: &fakeSummarizer{
			textResult:  domain.AIAnalysis{Summary: "A text summary.", Tags: []string{"Note", "a", "b"}},
			imageResult: domain.AIAnalysis{Summary: "An image summary.", Tags: []string{"Photo", "a", "b"}},
		},
		events: &fakeEvents{},
		ext:    &fakeExtractor{text: "extracted text"},
	}
	fx.uc = NewUploadFileUseCase(fx.files, fx.stats, fx.storage, fx.ext, fx.ocr, fx.ai, fx.events, nil)
	fx.uc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return fx
}

func TestUploadPlainTextRoundTrip(t *testing.T) {
	fx := newUploadFixture()

	result, err := fx.uc.Upload(context.Background(), "notes.txt", domain.MimePlainText, strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.File == nil {
		t.Fatalf("expected file in result")
	}
	if result.File.Summary != "A text summary." {
		t.Fatalf("summary = %q", result.File.Summary)
	}
	if result.File.ScannedText != "extracted text" {
		t.Fatalf("scanned text = %q", result.File.ScannedText)
	}
	if !strings.HasPrefix(result.File.Path, "texts/") {
		t.Fatalf("path = %q, want texts/ prefix", result.File.Path)
	}
	if _, ok := fx.storage.saved[result.File.Path]; !ok {
		t.Fatalf("bytes never saved under %q", result.File.Path)
	}

	if len(fx.stats.incremented) != 1 {
		t.Fatalf("increment calls = %d", len(fx.stats.incremented))
	}
	keys := fx.stats.incremented[0]
	if len(keys) != 2 || keys[0] != domain.CounterTextUploads || keys[1] != domain.CounterTotalUploads {
		t.Fatalf("counter keys = %v", keys)
	}

	if len(fx.events.uploaded) != 1 || fx.events.uploaded[0] != result.File.ID {
		t.Fatalf("uploaded events = %v", fx.events.uploaded)
	}
	if result.Stats == nil {
		t.Fatalf("expected stats snapshot")
	}
}

func TestUploadRejectsMissingInput(t *testing.T) {
	fx := newUploadFixture()

	result, err := fx.uc.Upload(context.Background(), "empty.txt", domain.MimePlainText, strings.NewReader(""))
	if !domain.IsKind(err, domain.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if result == nil || result.Stats == nil {
		t.Fatalf("expected best-effort stats snapshot on failure")
	}
	if len(fx.files.created) != 0 {
		t.Fatalf("no record should be created")
	}
}

func TestUploadStorageFailureAborts(t *testing.T) {
	fx := newUploadFixture()
	fx.storage.saveErr = errors.New("disk full")

	_, err := fx.uc.Upload(context.Background(), "a.txt", domain.MimePlainText, strings.NewReader("content"))
	if !domain.IsKind(err, domain.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
	if len(fx.files.created) != 0 || len(fx.stats.incremented) != 0 {
		t.Fatalf("failed upload must not create records or touch counters")
	}
}

func TestUploadPDFConsumesCreditAfterAnalysis(t *testing.T) {
	fx := newUploadFixture()

	result, err := fx.uc.Upload(context.Background(), "doc.pdf", domain.MimePDF, strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	// First PDF ever initializes the cycle; the guard carries the nil
	// pre-initialization bound.
	if len(fx.stats.applied) != 1 {
		t.Fatalf("apply cycle calls = %d", len(fx.stats.applied))
	}
	if fx.stats.appliedGuard[0] != nil {
		t.Fatalf("expected nil guard on first initialization")
	}
	wantReset := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(domain.CycleDuration)
	if !fx.stats.applied[0].NextReset.Equal(wantReset) {
		t.Fatalf("next reset = %v, want %v", fx.stats.applied[0].NextReset, wantReset)
	}

	if fx.stats.consumed != 1 {
		t.Fatalf("consumed = %d, want 1", fx.stats.consumed)
	}
	if fx.ai.gotHint != " This is from a PDF document." {
		t.Fatalf("context hint = %q", fx.ai.gotHint)
	}

	keys := fx.stats.incremented[0]
	want := []domain.CounterKey{domain.CounterPDFUploads, domain.CounterPDFUploadsTotal, domain.CounterTotalUploads}
	if len(keys) != len(want) {
		t.Fatalf("counter keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("counter keys = %v, want %v", keys, want)
		}
	}
	if result.File.ScannedText != "ocr text" {
		t.Fatalf("scanned text = %q", result.File.ScannedText)
	}
}

func TestUploadPDFCreditExhaustedDegrades(t *testing.T) {
	fx := newUploadFixture()
	start := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	reset := start.Add(domain.CycleDuration)
	fx.stats.stats.PDFCycleStart = &start
	fx.stats.stats.PDFNextReset = &reset
	fx.stats.stats.PDFCreditsRemaining = 0

	result, err := fx.uc.Upload(context.Background(), "doc.pdf", domain.MimePDF, strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.File.Summary != "PDF analysis skipped: credit limit reached." {
		t.Fatalf("summary = %q", result.File.Summary)
	}
	if len(result.File.Tags) != 2 || result.File.Tags[1] != "credit-limit-reached" {
		t.Fatalf("tags = %v", result.File.Tags)
	}
	if fx.ocr.calls != 0 {
		t.Fatalf("OCR must not run without credit")
	}
	if fx.stats.consumed != 0 {
		t.Fatalf("no credit may be consumed")
	}
	// The gated upload is still counted.
	if len(fx.stats.incremented) != 1 {
		t.Fatalf("increment calls = %d", len(fx.stats.incremented))
	}
}

func TestUploadPDFWithoutTextLayerDegrades(t *testing.T) {
	fx := newUploadFixture()
	fx.ocr.result = domain.OCRResult{Text: "   "}

	result, err := fx.uc.Upload(context.Background(), "scan.pdf", domain.MimePDF, strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.File.Summary != "PDF contains no readable text." {
		t.Fatalf("summary = %q", result.File.Summary)
	}
	if fx.ai.textCalls != 0 {
		t.Fatalf("AI must not run on blank OCR output")
	}
	if fx.stats.consumed != 0 {
		t.Fatalf("no credit may be consumed without analysis")
	}
}

func TestUploadAIFailureDegradesButSucceeds(t *testing.T) {
	fx := newUploadFixture()
	fx.ai.textErr = domain.WrapError(domain.ErrAIService, "analyze", errors.New("model offline"))

	result, err := fx.uc.Upload(context.Background(), "a.txt", domain.MimePlainText, strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(result.File.Summary, "Analysis failed:") {
		t.Fatalf("summary = %q", result.File.Summary)
	}
	if len(result.File.Tags) != 1 || result.File.Tags[0] != domain.MimePlainText {
		t.Fatalf("tags = %v", result.File.Tags)
	}
	// Extracted text survives so retry tooling can reprocess later.
	if result.File.ScannedText != "extracted text" {
		t.Fatalf("scanned text = %q", result.File.ScannedText)
	}
}

func TestUploadUnsupportedFormatDegrades(t *testing.T) {
	fx := newUploadFixture()
	fx.ext.err = domain.WrapError(domain.ErrUnsupportedFormat, "extract", errors.New("application/zip"))

	result, err := fx.uc.Upload(context.Background(), "archive.zip", "application/zip", strings.NewReader("PK"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.File.Summary != "Analysis is not supported for this file type." {
		t.Fatalf("summary = %q", result.File.Summary)
	}
	if len(result.File.Tags) != 2 || result.File.Tags[1] != "unsupported" {
		t.Fatalf("tags = %v", result.File.Tags)
	}
}

func TestUploadNonPDFRollsOverExpiredCycle(t *testing.T) {
	fx := newUploadFixture()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reset := start.Add(domain.CycleDuration)
	fx.stats.stats.PDFCycleStart = &start
	fx.stats.stats.PDFNextReset = &reset
	fx.stats.stats.PDFCreditsRemaining = 3

	_, err := fx.uc.Upload(context.Background(), "a.txt", domain.MimePlainText, strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(fx.stats.applied) != 1 {
		t.Fatalf("expected expired window to re-arm on non-PDF upload")
	}
	if fx.stats.appliedGuard[0] == nil || !fx.stats.appliedGuard[0].Equal(reset) {
		t.Fatalf("guard = %v, want old reset %v", fx.stats.appliedGuard[0], reset)
	}
	if fx.stats.applied[0].Credits != domain.DefaultPDFMonthlyLimit {
		t.Fatalf("credits = %d", fx.stats.applied[0].Credits)
	}
}

func TestUploadImageUsesVisionSummaryAsText(t *testing.T) {
	fx := newUploadFixture()

	result, err := fx.uc.Upload(context.Background(), "photo.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if fx.ai.imageCalls != 1 || fx.ai.gotMime != "image/png" {
		t.Fatalf("vision call mime = %q calls = %d", fx.ai.gotMime, fx.ai.imageCalls)
	}
	if result.File.ScannedText != result.File.Summary {
		t.Fatalf("image scanned text must mirror the summary")
	}

	keys := fx.stats.incremented[0]
	if len(keys) != 2 || keys[0] != domain.CounterImageUploads {
		t.Fatalf("counter keys = %v", keys)
	}
}

func TestUploadCapsTextSentToAI(t *testing.T) {
	fx := newUploadFixture()
	fx.ext.text = strings.Repeat("y", maxAnalyzedTextChars+100)

	result, err := fx.uc.Upload(context.Background(), "big.txt", domain.MimePlainText, strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(fx.ai.gotText) != maxAnalyzedTextChars {
		t.Fatalf("AI input length = %d, want %d", len(fx.ai.gotText), maxAnalyzedTextChars)
	}
	// The stored text keeps full fidelity.
	if len(result.File.ScannedText) != maxAnalyzedTextChars+100 {
		t.Fatalf("stored text length = %d", len(result.File.ScannedText))
	}
}
