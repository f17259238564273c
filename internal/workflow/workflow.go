// Package workflow runs one evaluation as a small task graph: text
// extraction and ideal-answer generation in parallel, then the advocate and
// critic analyses in parallel, then the final synthesis. The executor owns
// the shared state; nodes only ever return partial updates, and the merge
// combines list-valued fields by concatenation so no error report is lost
// to a concurrent sibling.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lokasewa/evaluator/internal/schema"
	"github.com/lokasewa/evaluator/internal/session"
)

// Node names, also used as failed-agent labels in the state.
const (
	NodeOCR         = "ocr"
	NodeIdealAnswer = "ideal_answer"
	NodeAdvocate    = "advocate"
	NodeCritic      = "critic"
	NodeSynthesizer = "synthesizer"
)

// predecessors declares the graph: a node runs once every predecessor has
// finished, successfully or not.
var predecessors = map[string][]string{
	NodeOCR:         {},
	NodeIdealAnswer: {},
	NodeAdvocate:    {NodeOCR, NodeIdealAnswer},
	NodeCritic:      {NodeOCR, NodeIdealAnswer},
	NodeSynthesizer: {NodeAdvocate, NodeCritic},
}

// Update is the partial state a node hands back to the executor. Pointer
// fields overwrite their target when set; Errors and FailedAgents are
// combined by the concatenation reducer, never overwritten.
type Update struct {
	StudentAnswer *string
	IdealAnswer   *string

	OCROutput         *schema.OCROutput
	IdealOutput       *schema.IdealAnswerOutput
	AdvocateOutput    *schema.AdvocateOutput
	CriticOutput      *schema.CriticOutput
	SynthesizerOutput *schema.SynthesizerOutput

	Errors       []string
	FailedAgents []string
}

// concatReducer is the merge rule for the append-only list fields.
func concatReducer(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	merged := make([]string, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	return merged
}

// merge applies one update to the state. Callers serialize merges; the
// executor holds its mutex across every call.
func merge(s *schema.State, u Update) {
	if u.StudentAnswer != nil {
		s.StudentAnswer = *u.StudentAnswer
	}
	if u.IdealAnswer != nil {
		s.IdealAnswer = *u.IdealAnswer
	}
	if u.OCROutput != nil {
		s.OCROutput = *u.OCROutput
		s.OCRTimeSeconds = u.OCROutput.TimeTakenSeconds
		s.TotalCostUSD += u.OCROutput.CostUSD
		s.TotalCostNPR += u.OCROutput.CostNPR
	}
	if u.IdealOutput != nil {
		s.IdealOutput = *u.IdealOutput
		s.IdealAnswerTimeSeconds = u.IdealOutput.TimeTakenSeconds
		s.TotalCostUSD += u.IdealOutput.CostUSD
		s.TotalCostNPR += u.IdealOutput.CostNPR
	}
	if u.AdvocateOutput != nil {
		s.AdvocateOutput = *u.AdvocateOutput
		s.AdvocateTimeSeconds = u.AdvocateOutput.TimeTakenSeconds
		s.TotalCostUSD += u.AdvocateOutput.CostUSD
		s.TotalCostNPR += u.AdvocateOutput.CostNPR
	}
	if u.CriticOutput != nil {
		s.CriticOutput = *u.CriticOutput
		s.CriticTimeSeconds = u.CriticOutput.TimeTakenSeconds
		s.TotalCostUSD += u.CriticOutput.CostUSD
		s.TotalCostNPR += u.CriticOutput.CostNPR
	}
	if u.SynthesizerOutput != nil {
		s.SynthesizerOutput = *u.SynthesizerOutput
		s.SynthesizerTimeSeconds = u.SynthesizerOutput.TimeTakenSeconds
		s.TotalCostUSD += u.SynthesizerOutput.CostUSD
		s.TotalCostNPR += u.SynthesizerOutput.CostNPR
	}
	s.Errors = concatReducer(s.Errors, u.Errors)
	s.FailedAgents = concatReducer(s.FailedAgents, u.FailedAgents)
}

// nodeFunc runs one agent against a read-only snapshot of the state.
type nodeFunc func(ctx context.Context, snapshot schema.State) Update

// Workflow is the configured task graph for one deployment: five agents
// bound to five nodes, plus an optional evaluation trail.
type Workflow struct {
	nodes map[string]nodeFunc
	trail session.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithTrail attaches an evaluation trail logger; every run appends its
// lifecycle events to it.
func WithTrail(trail session.Logger) Option {
	return func(w *Workflow) {
		if trail != nil {
			w.trail = trail
		}
	}
}

// Run executes one evaluation to completion. The graph always reaches the
// end: node failures are recorded in the state, not returned. The error is
// non-nil only when the executor itself cannot proceed (cancelled context,
// misconfigured graph).
func (w *Workflow) Run(ctx context.Context, sessionID, question string, fileData []byte, fileType schema.FileType) (*schema.State, error) {
	start := time.Now()
	state := &schema.State{
		SessionID: sessionID,
		Question:  question,
		FileData:  fileData,
		FileType:  fileType,
	}

	var mu sync.Mutex
	done := make(map[string]bool, len(w.nodes))

	slog.Info("evaluation started", "session_id", sessionID, "file_type", fileType)
	w.logEvent(session.NewEvent(session.EventEvaluationStart,
		session.EvaluationStartData(sessionID, string(fileType), len(fileData))))

	for len(done) < len(w.nodes) {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("evaluation cancelled: %w", err)
		}

		layer := readyNodes(done)
		if len(layer) == 0 {
			return state, errors.New("task graph stalled: no runnable nodes")
		}

		snapshot := *state
		g, gctx := errgroup.WithContext(ctx)
		for _, name := range layer {
			fn, ok := w.nodes[name]
			if !ok {
				return state, fmt.Errorf("task graph names unknown node %q", name)
			}
			g.Go(func() error {
				w.logEvent(session.NewEvent(session.EventAgentStart, session.AgentStartData(name)))
				u := fn(gctx, snapshot)
				mu.Lock()
				merge(state, u)
				mu.Unlock()
				meta := updateMeta(u)
				w.logEvent(session.NewEvent(session.EventAgentComplete,
					session.AgentCompleteData(name, string(meta.Status), meta.TimeTakenSeconds, meta.CostUSD)))
				if meta.GenerationID != "" {
					w.logEvent(session.NewEvent(session.EventCostResolved,
						session.CostResolvedData(name, meta.GenerationID, meta.CostUSD, meta.CostNPR)))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return state, err
		}
		for _, name := range layer {
			done[name] = true
		}
	}

	state.WorkflowComplete = state.SynthesizerOutput.Status == schema.StatusSuccess
	state.TotalTimeSeconds = time.Since(start).Seconds()

	w.logEvent(session.NewEvent(session.EventEvaluationEnd,
		session.EvaluationCompleteData(state.SynthesizerOutput.FinalMarks, state.WorkflowComplete,
			len(state.FailedAgents), state.TotalCostUSD, time.Since(start).Milliseconds())))
	slog.Info("evaluation finished",
		"session_id", sessionID,
		"complete", state.WorkflowComplete,
		"failed_agents", state.FailedAgents,
		"total_cost_usd", state.TotalCostUSD,
		"seconds", state.TotalTimeSeconds)
	return state, nil
}

func (w *Workflow) logEvent(ev session.Event) {
	if err := w.trail.Log(ev); err != nil {
		slog.Warn("trail write failed", "error", err)
	}
}

// updateMeta pulls the bookkeeping of whichever output an update carries.
func updateMeta(u Update) schema.CallMeta {
	switch {
	case u.OCROutput != nil:
		return u.OCROutput.CallMeta
	case u.IdealOutput != nil:
		return u.IdealOutput.CallMeta
	case u.AdvocateOutput != nil:
		return u.AdvocateOutput.CallMeta
	case u.CriticOutput != nil:
		return u.CriticOutput.CallMeta
	case u.SynthesizerOutput != nil:
		return u.SynthesizerOutput.CallMeta
	}
	return schema.CallMeta{Status: "unknown"}
}

// readyNodes lists the nodes whose predecessors have all finished and that
// have not themselves run yet.
func readyNodes(done map[string]bool) []string {
	var ready []string
	for name, preds := range predecessors {
		if done[name] {
			continue
		}
		ok := true
		for _, p := range preds {
			if !done[p] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, name)
		}
	}
	return ready
}
