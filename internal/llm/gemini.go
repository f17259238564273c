package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lokasewa/evaluator/internal/ratelimit"
)

// DefaultGeminiBaseURL is the Google AI Studio endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const geminiSource = "google_ai_studio"

// minVisionResponseLen guards against the vision model returning an empty
// or near-empty answer for an unreadable page.
const minVisionResponseLen = 5

// GeminiClient calls the Gemini vision API for text extraction. Calls are
// gated by a daily-quota limiter since the free tier is tightly bounded.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *ratelimit.DailyQuota
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithGeminiBaseURL overrides the API endpoint, used by tests.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = url }
}

// WithQuota attaches a request-quota limiter.
func WithQuota(q *ratelimit.DailyQuota) GeminiOption {
	return func(c *GeminiClient) { c.limiter = q }
}

// NewGeminiClient creates a vision client for the given model.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:     apiKey,
		baseURL:    DefaultGeminiBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Call implements [Caller] for the vision role.
func (c *GeminiClient) Call(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return &Response{Success: false, Source: geminiSource,
			Err: "daily vision request quota exhausted"}, nil
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: req.Prompt},
				{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: req.Image}},
			},
		}},
	})
	if err != nil {
		return &Response{Success: false, Source: geminiSource, Err: err.Error()}, nil
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &Response{Success: false, Source: geminiSource, Err: err.Error()}, nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Response{Success: false, Source: geminiSource, Err: err.Error()}, nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Response{Success: false, Source: geminiSource, Err: err.Error()}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return &Response{Success: false, Source: geminiSource,
			Err: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, payload)}, nil
	}

	var parsed geminiResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return &Response{Success: false, Source: geminiSource, Err: err.Error()}, nil
	}

	var b strings.Builder
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	content := b.String()

	if len(strings.TrimSpace(content)) < minVisionResponseLen {
		return &Response{Success: false, Source: geminiSource,
			Err: fmt.Sprintf("vision model returned insufficient text (length %d); the page may be unreadable", len(content))}, nil
	}

	if c.limiter != nil {
		c.limiter.Record()
	}

	return &Response{
		Success:    true,
		Content:    content,
		TokensUsed: parsed.UsageMetadata.TotalTokenCount,
		Source:     geminiSource,
	}, nil
}
