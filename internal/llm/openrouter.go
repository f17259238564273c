package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultOpenRouterBaseURL is the production API endpoint.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

const openRouterSource = "openrouter"

// ModelConfig holds the per-role generation settings.
type ModelConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// OpenRouterClient calls OpenRouter's chat-completions API. One client
// serves all text roles; the role on the request selects the model config.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	models     map[Role]ModelConfig
	maxRetries int
}

// OpenRouterOption configures an OpenRouterClient.
type OpenRouterOption func(*OpenRouterClient)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) OpenRouterOption {
	return func(c *OpenRouterClient) { c.baseURL = url }
}

// WithTimeout overrides the per-call transport timeout.
func WithTimeout(d time.Duration) OpenRouterOption {
	return func(c *OpenRouterClient) { c.httpClient.Timeout = d }
}

// NewOpenRouterClient creates a client with the given per-role model
// settings. Roles absent from the map fail at call time.
func NewOpenRouterClient(apiKey string, models map[Role]ModelConfig, opts ...OpenRouterOption) *OpenRouterClient {
	c := &OpenRouterClient{
		apiKey:     apiKey,
		baseURL:    DefaultOpenRouterBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		models:     models,
		maxRetries: 2,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Call implements [Caller]. Transport failures and non-2xx statuses are
// retried up to the retry budget; anything still failing is reported as an
// unsuccessful Response rather than an error.
func (c *OpenRouterClient) Call(ctx context.Context, req Request) (*Response, error) {
	cfg, ok := c.models[req.Role]
	if !ok {
		return &Response{Success: false, Source: openRouterSource,
			Err: fmt.Sprintf("no model configured for role %q", req.Role)}, nil
	}

	body, err := json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return &Response{Success: false, Source: openRouterSource, Err: err.Error()}, nil
	}

	var lastErr string
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying model call", "role", req.Role, "attempt", attempt)
		}

		resp, err := c.post(ctx, c.baseURL+"/chat/completions", body)
		if err != nil {
			lastErr = err.Error()
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Sprintf("HTTP %d", resp.StatusCode)
			resp.Body.Close()
			continue
		}

		payload, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr.Error()
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// 4xx is not retryable.
			return &Response{Success: false, Source: openRouterSource,
				Err: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, payload)}, nil
		}

		var parsed chatResponse
		if err := json.Unmarshal(payload, &parsed); err != nil {
			return &Response{Success: false, Source: openRouterSource, Err: err.Error()}, nil
		}
		if len(parsed.Choices) == 0 {
			return &Response{Success: false, Source: openRouterSource, Err: "response carried no choices"}, nil
		}

		out := &Response{
			Success:    true,
			Content:    parsed.Choices[0].Message.Content,
			TokensUsed: parsed.Usage.TotalTokens,
			Source:     openRouterSource,
		}
		if ValidGenerationID(parsed.ID) {
			out.GenerationID = parsed.ID
		}
		return out, nil
	}

	return &Response{Success: false, Source: openRouterSource, Err: lastErr}, nil
}

func (c *OpenRouterClient) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Title", "Lokasewa Evaluator")
	return c.httpClient.Do(httpReq)
}
