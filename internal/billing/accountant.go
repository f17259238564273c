// Package billing resolves the true monetary cost of a model call after the
// fact. Providers do not attach cost to the generating request; the billing
// record is fetched separately by generation ID and may lag the call by a
// few seconds, so lookups retry against that eventual-consistency delay.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Defaults for the lookup retry policy and currency conversion.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultUSDToNPR    = 142.0

	lookupTimeout = 10 * time.Second
)

// Result is the best-effort outcome of one cost lookup. Lookups never fail
// with a Go error: cost is cosmetic to an evaluation's correctness, so any
// terminal problem degrades to Success false with zeroed costs.
type Result struct {
	Success          bool
	GenerationID     string
	CostUSD          float64
	CostNPR          float64
	PromptTokens     int
	CompletionTokens int
	Model            string
	Err              string
}

// Accountant looks up generation costs from the provider's billing
// endpoint.
type Accountant struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	usdToNPR    float64
	maxAttempts int
	retryDelay  time.Duration
}

// Option configures an Accountant.
type Option func(*Accountant)

// WithBaseURL overrides the billing endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(a *Accountant) { a.baseURL = url }
}

// WithRetryPolicy overrides the attempt budget and inter-attempt delay.
func WithRetryPolicy(maxAttempts int, delay time.Duration) Option {
	return func(a *Accountant) {
		a.maxAttempts = maxAttempts
		a.retryDelay = delay
	}
}

// WithConversionRate overrides the USD to NPR rate.
func WithConversionRate(rate float64) Option {
	return func(a *Accountant) { a.usdToNPR = rate }
}

// New creates an Accountant against the given provider base URL.
func New(apiKey, baseURL string, opts ...Option) *Accountant {
	a := &Accountant{
		apiKey:      apiKey,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: lookupTimeout},
		usdToNPR:    DefaultUSDToNPR,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type generationPayload struct {
	Data struct {
		TotalCost              float64 `json:"total_cost"`
		NativeTokensPrompt     int     `json:"native_tokens_prompt"`
		NativeTokensCompletion int     `json:"native_tokens_completion"`
		Model                  string  `json:"model"`
	} `json:"data"`
}

// Lookup fetches the billing record for a generation. A 404 means the
// record is not yet available and is retried up to the attempt budget with
// a fixed delay; a request timeout is retried once; any other error status
// is terminal.
func (a *Accountant) Lookup(ctx context.Context, generationID string) Result {
	failed := Result{GenerationID: generationID}

	timeoutRetried := false
	var lastErr string

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		res, retryable, err := a.fetch(ctx, generationID)
		if err == nil {
			slog.Debug("generation cost resolved",
				"generation_id", generationID, "cost_usd", res.CostUSD)
			return res
		}
		lastErr = err.Error()

		if isTimeout(err) {
			if timeoutRetried {
				break
			}
			timeoutRetried = true
			if !a.wait(ctx) {
				break
			}
			continue
		}

		if !retryable || attempt == a.maxAttempts {
			break
		}
		slog.Debug("generation record not yet available, retrying",
			"generation_id", generationID, "attempt", attempt, "max", a.maxAttempts)
		if !a.wait(ctx) {
			break
		}
	}

	slog.Warn("cost lookup failed", "generation_id", generationID, "error", lastErr)
	failed.Err = lastErr
	return failed
}

// fetch performs one billing request. retryable is true only for the
// not-yet-found case.
func (a *Accountant) fetch(ctx context.Context, generationID string) (Result, bool, error) {
	url := fmt.Sprintf("%s/generation?id=%s", a.baseURL, generationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, false, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Result{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Result{}, true, errors.New("HTTP 404 (not yet available)")
	default:
		return Result{}, false, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, false, err
	}

	var payload generationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, false, fmt.Errorf("decoding billing record: %w", err)
	}

	costUSD := payload.Data.TotalCost
	return Result{
		Success:          true,
		GenerationID:     generationID,
		CostUSD:          costUSD,
		CostNPR:          costUSD * a.usdToNPR,
		PromptTokens:     payload.Data.NativeTokensPrompt,
		CompletionTokens: payload.Data.NativeTokensCompletion,
		Model:            payload.Data.Model,
	}, false, nil
}

// wait sleeps for the retry delay, or returns false if the context ends
// first.
func (a *Accountant) wait(ctx context.Context) bool {
	if a.retryDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(a.retryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
