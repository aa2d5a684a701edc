package domain

import "strings"

// Category is the classification bucket driving storage layout, stats
// counters and search filters.
type Category string

const (
	CategoryPDF            Category = "pdf"
	CategoryImage          Category = "image"
	CategoryDocumentText   Category = "document-text"
	CategoryStructuredData Category = "structured-data"
	CategoryOther          Category = "other"
)

// CounterKey names one Stats counter. Column mapping lives in the stats
// repository; everything else refers to counters through these keys.
type CounterKey string

const (
	CounterPDFUploads      CounterKey = "pdfUploads"
	CounterPDFUploadsTotal CounterKey = "pdfUploadsTotal"
	CounterTotalUploads    CounterKey = "totalUploads"
	CounterDocxUploads     CounterKey = "docxUploads"
	CounterXlsxUploads     CounterKey = "xlsxUploads"
	CounterImageUploads    CounterKey = "imageUploads"
	CounterTextUploads     CounterKey = "textUploads"
	CounterOtherUploads    CounterKey = "otherUploads"
)

// MIME patterns shared by ingestion classification and search filters.
// Both sides must derive from these constants so the two cannot drift.
const (
	MimePDF         = "application/pdf"
	MimePlainText   = "text/plain"
	MimeDocxMarker  = "wordprocessingml"
	MimeXlsxMarker  = "spreadsheetml"
	MimeImagePrefix = "image/"
	MimeTextPrefix  = "text/"
)

// StructuredMarkers are substrings identifying structured text formats.
var StructuredMarkers = []string{"json", "xml", "sql", "csv"}

func hasStructuredMarker(mimeType string) bool {
	for _, marker := range StructuredMarkers {
		if strings.Contains(mimeType, marker) {
			return true
		}
	}
	return false
}

func isDocx(mimeType string) bool  { return strings.Contains(mimeType, MimeDocxMarker) }
func isXlsx(mimeType string) bool  { return strings.Contains(mimeType, MimeXlsxMarker) }
func isImage(mimeType string) bool { return strings.HasPrefix(mimeType, MimeImagePrefix) }

// ClassificationRule is one entry of the ordered rule table. First match
// wins; the table is exported so tests can enumerate every rule.
type ClassificationRule struct {
	Name     string
	Category Category
	Counter  CounterKey
	Matches  func(mimeType string) bool
}

// ClassificationRules is evaluated in order. DOCX must be claimed by the
// document-text rule before the structured-data rule sees it; the generic
// text prefix in rule 4 would otherwise leak DOCX into structured-data.
var ClassificationRules = []ClassificationRule{
	{
		Name:     "pdf",
		Category: CategoryPDF,
		Counter:  CounterPDFUploads,
		Matches:  func(m string) bool { return m == MimePDF },
	},
	{
		Name:     "image",
		Category: CategoryImage,
		Counter:  CounterImageUploads,
		Matches:  isImage,
	},
	{
		Name:     "document-text",
		Category: CategoryDocumentText,
		Counter:  CounterDocxUploads,
		Matches:  func(m string) bool { return isDocx(m) || m == MimePlainText },
	},
	{
		Name:     "structured-data",
		Category: CategoryStructuredData,
		Counter:  CounterXlsxUploads,
		Matches: func(m string) bool {
			return isXlsx(m) || hasStructuredMarker(m) ||
				(strings.HasPrefix(m, MimeTextPrefix) && m != MimePlainText)
		},
	},
	{
		Name:     "other",
		Category: CategoryOther,
		Counter:  CounterOtherUploads,
		Matches:  func(string) bool { return true },
	},
}

// Classify maps a MIME type to its category. Total: the final rule
// matches everything.
func Classify(mimeType string) Category {
	for _, rule := range ClassificationRules {
		if rule.Matches(mimeType) {
			return rule.Category
		}
	}
	return CategoryOther
}

// UploadCounters returns the counter keys one upload of the given MIME
// type increments. PDFs increment the per-cycle and lifetime PDF counters;
// every upload increments totalUploads exactly once. Within the
// document-text and structured-data buckets the specific counter still
// depends on the concrete format: only real DOCX counts as docxUploads
// and only real XLSX as xlsxUploads, the rest fall into textUploads.
func UploadCounters(mimeType string) []CounterKey {
	switch Classify(mimeType) {
	case CategoryPDF:
		return []CounterKey{CounterPDFUploads, CounterPDFUploadsTotal, CounterTotalUploads}
	case CategoryImage:
		return []CounterKey{CounterImageUploads, CounterTotalUploads}
	case CategoryDocumentText:
		if isDocx(mimeType) {
			return []CounterKey{CounterDocxUploads, CounterTotalUploads}
		}
		return []CounterKey{CounterTextUploads, CounterTotalUploads}
	case CategoryStructuredData:
		if isXlsx(mimeType) {
			return []CounterKey{CounterXlsxUploads, CounterTotalUploads}
		}
		return []CounterKey{CounterTextUploads, CounterTotalUploads}
	default:
		return []CounterKey{CounterOtherUploads, CounterTotalUploads}
	}
}

// StorageFolder returns the storage subdirectory for a category.
func StorageFolder(category Category) string {
	switch category {
	case CategoryPDF:
		return "pdfs"
	case CategoryImage:
		return "images"
	case CategoryDocumentText:
		return "texts"
	case CategoryStructuredData:
		return "structured"
	default:
		return "other"
	}
}

// FilterKey is the simplified type filter exposed by the search API.
type FilterKey string

const (
	FilterAll            FilterKey = "all"
	FilterPDF            FilterKey = "pdf"
	FilterDocumentsText  FilterKey = "documents-text"
	FilterStructuredData FilterKey = "structured-data"
	FilterImage          FilterKey = "image"
	FilterOther          FilterKey = "other"
)

// ParseFilterKey normalizes a raw filter value; unknown values fall back
// to FilterAll, matching the pass-through default.
func ParseFilterKey(raw string) FilterKey {
	switch FilterKey(strings.ToLower(strings.TrimSpace(raw))) {
	case FilterPDF:
		return FilterPDF
	case FilterDocumentsText:
		return FilterDocumentsText
	case FilterStructuredData:
		return FilterStructuredData
	case FilterImage:
		return FilterImage
	case FilterOther:
		return FilterOther
	default:
		return FilterAll
	}
}

// MatchesFilter reports whether a MIME type falls inside a filter bucket.
// This is the in-memory reference predicate; the Postgres repository
// renders the same boundaries into SQL, and tests hold the two together.
func MatchesFilter(filter FilterKey, mimeType string) bool {
	switch filter {
	case FilterPDF:
		return mimeType == MimePDF
	case FilterDocumentsText:
		return isDocx(mimeType) || mimeType == MimePlainText
	case FilterStructuredData:
		if isDocx(mimeType) {
			return false
		}
		return isXlsx(mimeType) || hasStructuredMarker(mimeType) ||
			(strings.HasPrefix(mimeType, MimeTextPrefix) && mimeType != MimePlainText)
	case FilterImage:
		return isImage(mimeType)
	case FilterOther:
		return mimeType != MimePDF && !isImage(mimeType) && !isDocx(mimeType) &&
			!isXlsx(mimeType) && !strings.HasPrefix(mimeType, MimeTextPrefix) &&
			!hasStructuredMarker(mimeType)
	default:
		return true
	}
}
