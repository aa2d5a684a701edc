package domain

import "time"

// File is one ingested document. Records are immutable after creation;
// the only lifecycle transition is deletion.
type File struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	FileType    string    `json:"fileType"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []string  `json:"tags"`
	ScannedText string    `json:"scannedText,omitempty"`
	UploadDate  time.Time `json:"uploadDate"`
}

// Analysis is the enrichment outcome for a single upload. Degraded marks
// results where OCR/AI was skipped or failed; the upload still succeeds.
type Analysis struct {
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	ScannedText string   `json:"scannedText"`
	Degraded    bool     `json:"-"`
}

// Stats is the global counters singleton. Lifetime counters only grow
// (floored at zero on delete); per-cycle PDF fields roll with the credit
// window.
type Stats struct {
	PDFMonthlyLimit     int        `json:"pdfMonthlyLimit"`
	PDFCreditsRemaining int        `json:"pdfCreditsRemaining"`
	PDFCycleStart       *time.Time `json:"pdfCycleStart"`
	PDFNextReset        *time.Time `json:"pdfNextReset"`
	PDFUploads          int        `json:"pdfUploads"`
	PDFUploadsTotal     int        `json:"pdfUploadsTotal"`
	TotalUploads        int        `json:"totalUploads"`
	DocxUploads         int        `json:"docxUploads"`
	XlsxUploads         int        `json:"xlsxUploads"`
	ImageUploads        int        `json:"imageUploads"`
	TextUploads         int        `json:"textUploads"`
	OtherUploads        int        `json:"otherUploads"`
}

// StatsID keys the singleton row in the document store.
const StatsID = "global-stats"

// DefaultPDFMonthlyLimit is the configured ceiling for PDF analyses per
// 30-day cycle when no override is set.
const DefaultPDFMonthlyLimit = 25000

// NewStats returns the lazily-created singleton with default values.
func NewStats() *Stats {
	return &Stats{
		PDFMonthlyLimit:     DefaultPDFMonthlyLimit,
		PDFCreditsRemaining: DefaultPDFMonthlyLimit,
	}
}
