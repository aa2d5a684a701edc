// Package openrouter implements the summarizer port against an
// OpenRouter-compatible chat completions endpoint.
package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

type Options struct {
	Timeout            time.Duration
	RequestsPerSecond  float64
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// AnalyzeText asks the model for a short summary plus exactly three
// tags for the given document text. The context hint is appended to
// the analysis instruction, e.g. to mark PDF-sourced text.
func (c *Client) AnalyzeText(ctx context.Context, text, contextHint string) (domain.AIAnalysis, error) {
	messages := []chatMessage{{
		Role:    "user",
		Content: buildTextPrompt(text, contextHint),
	}}
	return c.complete(ctx, "ai.analyze_text", messages)
}

// AnalyzeImage sends the image bytes inline as a data URL and asks the
// vision model for the same summary-plus-tags shape.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (domain.AIAnalysis, error) {
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	messages := []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
			{Type: "text", Text: buildImagePrompt("")},
		},
	}}
	return c.complete(ctx, "ai.analyze_image", messages)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, operation string, messages []chatMessage) (domain.AIAnalysis, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.AIAnalysis{}, domain.WrapError(domain.ErrAIService, "ai rate wait", err)
	}

	var analysis domain.AIAnalysis
	call := func(ctx context.Context) error {
		parsed, err := c.chatCompletion(ctx, operation, messages)
		if err != nil {
			return err
		}
		analysis = parsed
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.AIAnalysis{}, domain.WrapError(domain.ErrAIService, operation, err)
	}
	return analysis, nil
}

func (c *Client) chatCompletion(ctx context.Context, operation string, messages []chatMessage) (domain.AIAnalysis, error) {
	payload := map[string]any{
		"model":           c.model,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.AIAnalysis{}, fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.AIAnalysis{}, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AIAnalysis{}, fmt.Errorf("ai %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.AIAnalysis{}, &resilience.HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(payload),
		}
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.AIAnalysis{}, fmt.Errorf("decode %s response: %w", operation, err)
	}
	if completion.Error != nil {
		return domain.AIAnalysis{}, fmt.Errorf("ai vendor failure: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return domain.AIAnalysis{}, fmt.Errorf("ai response has no choices")
	}

	return parseAnalysis(completion.Choices[0].Message.Content)
}

// parseAnalysis tolerates markdown code fences and leading prose around
// the JSON object some models still emit despite json_object mode.
func parseAnalysis(raw string) (domain.AIAnalysis, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = extractJSONObject(strings.TrimSpace(cleaned))

	var analysis domain.AIAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return domain.AIAnalysis{}, fmt.Errorf("parse analysis json: %w", err)
	}
	if analysis.Tags == nil {
		analysis.Tags = []string{}
	}
	return analysis, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
