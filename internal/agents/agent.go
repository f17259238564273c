// Package agents implements the five evaluation roles. Each agent wraps a
// single model call with input validation, response normalization,
// role-specific output shaping, timing and best-effort cost resolution.
// Agents never return Go errors: every failure is converted at the agent
// boundary into an error-status output so the task graph can keep running
// its remaining nodes.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lokasewa/evaluator/internal/billing"
	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/schema"
)

// CostResolver resolves the billed cost of a generation after the fact.
// *billing.Accountant satisfies it.
type CostResolver interface {
	Lookup(ctx context.Context, generationID string) billing.Result
}

// timer measures one agent invocation, from input validation through output
// shaping and cost lookup.
type timer struct {
	start time.Time
}

func startTimer() timer {
	return timer{start: time.Now()}
}

func (t timer) elapsed() float64 {
	return time.Since(t.start).Seconds()
}

// validateInputs fails on the first empty/whitespace-only required input,
// before any model call is made.
func validateInputs(inputs map[string]string) error {
	for name, v := range inputs {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("missing required input: %s", name)
		}
	}
	return nil
}

// callModel performs the model call and treats an unsuccessful response
// exactly like a transport error.
func callModel(ctx context.Context, caller llm.Caller, req llm.Request) (*llm.Response, error) {
	resp, err := caller.Call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("model call failed: %s", resp.Err)
	}
	return resp, nil
}

// resolveCost merges the billed cost into meta when the call produced a
// valid generation identifier. Lookup failure is non-fatal; cost fields
// stay zero.
func resolveCost(ctx context.Context, resolver CostResolver, generationID string, meta *schema.CallMeta) {
	if resolver == nil || !llm.ValidGenerationID(generationID) {
		return
	}
	meta.GenerationID = generationID
	res := resolver.Lookup(ctx, generationID)
	if !res.Success {
		return
	}
	meta.CostUSD = res.CostUSD
	meta.CostNPR = res.CostNPR
}

// fail stamps a CallMeta as failed. The agent's result fields stay zeroed.
func fail(meta *schema.CallMeta, t timer, role string, err error) {
	meta.Status = schema.StatusError
	meta.Error = err.Error()
	meta.TimeTakenSeconds = t.elapsed()
	slog.Error("agent failed", "role", role, "error", err, "seconds", meta.TimeTakenSeconds)
}

// succeed stamps a CallMeta as successful.
func succeed(meta *schema.CallMeta, t timer) {
	meta.Status = schema.StatusSuccess
	meta.Error = ""
	meta.TimeTakenSeconds = t.elapsed()
}

// recoverTo converts a panic anywhere in an agent into an error-status
// output; nothing may propagate past the agent boundary.
func recoverTo(meta *schema.CallMeta, t timer, role string) {
	if r := recover(); r != nil {
		fail(meta, t, role, fmt.Errorf("unexpected agent failure: %v", r))
	}
}
