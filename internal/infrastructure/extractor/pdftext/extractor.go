// Package pdftext reads the embedded text layer of a PDF locally. It
// stands in for the external OCR collaborator when no OCR credentials are
// configured; scanned PDFs without a text layer come back empty here.
package pdftext

import (
	"bytes"
	"context"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) ExtractPDFText(_ context.Context, data []byte) (domain.OCRResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrOCRService, "open pdf", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrOCRService, "read pdf text layer", err)
	}

	var builder bytes.Buffer
	if _, err := io.Copy(&builder, plain); err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrOCRService, "collect pdf text", err)
	}

	return domain.OCRResult{Text: builder.String()}, nil
}
