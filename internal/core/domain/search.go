package domain

import "time"

// DefaultSearchLimit caps one page of search results.
const DefaultSearchLimit = 20

// SearchQuery is the retrieval request: optional keyword, simplified type
// filter and inclusive date bounds. A keyword drives ranked matching;
// without one the predicate alone drives a newest-first listing.
type SearchQuery struct {
	Keyword string
	Filter  FilterKey
	From    *time.Time
	To      *time.Time
	Limit   int
}

// Normalize fills defaults: unknown filters pass through as all, the
// limit is capped at the fixed page size, and the upper date bound is
// pushed to end-of-day so it stays inclusive.
func (q SearchQuery) Normalize() SearchQuery {
	out := q
	if out.Filter == "" {
		out.Filter = FilterAll
	}
	if out.Limit <= 0 || out.Limit > DefaultSearchLimit {
		out.Limit = DefaultSearchLimit
	}
	if out.To != nil {
		endOfDay := time.Date(out.To.Year(), out.To.Month(), out.To.Day(),
			23, 59, 59, int(time.Second-time.Nanosecond), out.To.Location())
		out.To = &endOfDay
	}
	return out
}

// OCRResult is the OCR collaborator's response: extracted text plus the
// vendor's remaining-quota hint when the response carries one.
type OCRResult struct {
	Text           string
	RemainingQuota string
}

// AIAnalysis is the summarizer collaborator's structured response.
// Tags carry exactly three entries by contract; tags[0] is the
// document-type classification.
type AIAnalysis struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// UploadResult pairs the created file with the stats snapshot taken after
// bookkeeping. On hard upload failures File is nil and Stats is the
// best-effort snapshot for the caller.
type UploadResult struct {
	File  *File  `json:"file"`
	Stats *Stats `json:"stats"`
}
