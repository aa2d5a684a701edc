// Package ocrspace implements the external OCR collaborator against an
// OCR.space-compatible parse endpoint.
package ocrspace

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/resilience"
)

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

type Options struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	ResilienceExecutor *resilience.Executor
}

func New(endpoint, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	ErrorMessage          any  `json:"ErrorMessage"`
}

// ExtractPDFText submits the PDF bytes and returns the combined text of
// all parsed pages plus the vendor's remaining-quota header when present.
func (c *Client) ExtractPDFText(ctx context.Context, data []byte) (domain.OCRResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrOCRService, "ocr rate wait", err)
	}

	var result domain.OCRResult
	call := func(ctx context.Context) error {
		parsed, err := c.parse(ctx, data)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ocr.parse", call, classifyOCRError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrOCRService, "ocr parse", err)
	}
	return result, nil
}

func (c *Client) parse(ctx context.Context, data []byte) (domain.OCRResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"apikey":            c.apiKey,
		"base64Image":       "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
		"isOverlayRequired": "false",
		"detectOrientation": "true",
		"scale":             "true",
		"OCREngine":         "2",
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return domain.OCRResult{}, fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	if err := form.Close(); err != nil {
		return domain.OCRResult{}, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return domain.OCRResult{}, fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OCRResult{}, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	remaining := resp.Header.Get("X-RateLimit-Remaining")

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.OCRResult{}, &resilience.HTTPStatusError{
			Operation:  "ocr.parse",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(payload),
		}
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.OCRResult{}, fmt.Errorf("decode ocr response: %w", err)
	}
	if parsed.IsErroredOnProcessing || len(parsed.ParsedResults) == 0 {
		return domain.OCRResult{}, fmt.Errorf("ocr vendor failure: %v", parsed.ErrorMessage)
	}

	pages := make([]string, 0, len(parsed.ParsedResults))
	for _, page := range parsed.ParsedResults {
		pages = append(pages, page.ParsedText)
	}
	return domain.OCRResult{
		Text:           strings.Join(pages, "\n"),
		RemainingQuota: remaining,
	}, nil
}
