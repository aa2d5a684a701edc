// Package office extracts plain text from locally parseable formats:
// DOCX, XLSX and plain/structured text. PDFs and images never reach it.
package office

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract is a pure transformation of bytes into text. Unsupported MIME
// types fail with ErrUnsupportedFormat, corrupt payloads with ErrParse.
func (e *Extractor) Extract(_ context.Context, mimeType string, data []byte) (string, error) {
	switch {
	case strings.Contains(mimeType, domain.MimeDocxMarker):
		return extractDocx(data)
	case strings.Contains(mimeType, domain.MimeXlsxMarker):
		return extractXlsx(data)
	case isTextual(mimeType):
		return decodeText(data)
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text",
			fmt.Errorf("file type %q cannot be analyzed", mimeType))
	}
}

func isTextual(mimeType string) bool {
	if strings.HasPrefix(mimeType, domain.MimeTextPrefix) {
		return true
	}
	for _, marker := range domain.StructuredMarkers {
		if strings.Contains(mimeType, marker) {
			return true
		}
	}
	return false
}

func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.WrapError(domain.ErrParse, "decode text",
			errors.New("content is not valid UTF-8"))
	}
	return string(data), nil
}

// extractDocx pulls the raw text content out of word/document.xml,
// discarding all formatting. Paragraph boundaries become newlines.
func extractDocx(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "open docx archive", err)
	}

	var document *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", domain.WrapError(domain.ErrParse, "parse docx",
			errors.New("word/document.xml missing"))
	}

	reader, err := document.Open()
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "open docx document part", err)
	}
	defer reader.Close()

	text, err := collectDocxText(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "parse docx document xml", err)
	}
	return text, nil
}

func collectDocxText(reader io.Reader) (string, error) {
	decoder := xml.NewDecoder(reader)
	var builder strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				builder.WriteByte('\t')
			case "br":
				builder.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				builder.Write(el)
			}
		}
	}
	return strings.TrimRight(builder.String(), "\n"), nil
}

// extractXlsx serializes the first worksheet to comma-separated text.
// Additional sheets are intentionally ignored.
func extractXlsx(data []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "open xlsx workbook", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "read xlsx rows", err)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n"), nil
}
