package workflow

import (
	"context"
	"fmt"

	"github.com/lokasewa/evaluator/internal/agents"
	"github.com/lokasewa/evaluator/internal/schema"
	"github.com/lokasewa/evaluator/internal/session"
)

// Agents binds one constructed agent to each node of the graph.
type Agents struct {
	OCR         *agents.OCRAgent
	IdealAnswer *agents.IdealAnswerAgent
	Advocate    *agents.AdvocateAgent
	Critic      *agents.CriticAgent
	Synthesizer *agents.SynthesizerAgent
}

// New builds the evaluation workflow over the given agents.
func New(ag Agents, opts ...Option) *Workflow {
	w := &Workflow{
		nodes: map[string]nodeFunc{
			NodeOCR:         ocrNode(ag.OCR),
			NodeIdealAnswer: idealAnswerNode(ag.IdealAnswer),
			NodeAdvocate:    advocateNode(ag.Advocate),
			NodeCritic:      criticNode(ag.Critic),
			NodeSynthesizer: synthesizerNode(ag.Synthesizer),
		},
		trail: session.NopLogger{},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func ocrNode(agent *agents.OCRAgent) nodeFunc {
	return func(ctx context.Context, s schema.State) Update {
		out := agent.Extract(ctx, s.FileData, s.FileType)
		u := Update{OCROutput: &out}
		if out.Status == schema.StatusSuccess {
			u.StudentAnswer = &out.StudentAnswer
		} else {
			u.Errors = []string{fmt.Sprintf("OCR extraction failed: %s", out.Error)}
			u.FailedAgents = []string{NodeOCR}
		}
		return u
	}
}

func idealAnswerNode(agent *agents.IdealAnswerAgent) nodeFunc {
	return func(ctx context.Context, s schema.State) Update {
		out := agent.Generate(ctx, s.Question)
		u := Update{IdealOutput: &out}
		if out.Status == schema.StatusSuccess {
			u.IdealAnswer = &out.IdealAnswer
		} else {
			u.Errors = []string{fmt.Sprintf("Ideal answer generation failed: %s", out.Error)}
			u.FailedAgents = []string{NodeIdealAnswer}
		}
		return u
	}
}

// comparisonPrereq reports why a comparison node cannot run, or empty when
// both texts are present.
func comparisonPrereq(s schema.State) string {
	switch {
	case s.StudentAnswer == "" && s.IdealAnswer == "":
		return "no student answer (OCR extraction failed) and no ideal answer"
	case s.StudentAnswer == "":
		return "no student answer (OCR extraction failed)"
	case s.IdealAnswer == "":
		return "no ideal answer (generation failed)"
	default:
		return ""
	}
}

// skipped builds the error-status bookkeeping for a node whose
// prerequisites are unmet. No model call is made.
func skipped(meta *schema.CallMeta, reason string) {
	meta.Status = schema.StatusError
	meta.Error = "prerequisite failed: " + reason
}

func advocateNode(agent *agents.AdvocateAgent) nodeFunc {
	return func(ctx context.Context, s schema.State) Update {
		if reason := comparisonPrereq(s); reason != "" {
			var out schema.AdvocateOutput
			skipped(&out.CallMeta, reason)
			return Update{
				AdvocateOutput: &out,
				Errors:         []string{fmt.Sprintf("Advocate analysis skipped: %s", reason)},
				FailedAgents:   []string{NodeAdvocate},
			}
		}
		out := agent.Analyze(ctx, s.Question, s.StudentAnswer, s.IdealAnswer)
		u := Update{AdvocateOutput: &out}
		if out.Status != schema.StatusSuccess {
			u.Errors = []string{fmt.Sprintf("Advocate analysis failed: %s", out.Error)}
			u.FailedAgents = []string{NodeAdvocate}
		}
		return u
	}
}

func criticNode(agent *agents.CriticAgent) nodeFunc {
	return func(ctx context.Context, s schema.State) Update {
		if reason := comparisonPrereq(s); reason != "" {
			var out schema.CriticOutput
			skipped(&out.CallMeta, reason)
			return Update{
				CriticOutput: &out,
				Errors:       []string{fmt.Sprintf("Critic analysis skipped: %s", reason)},
				FailedAgents: []string{NodeCritic},
			}
		}
		out := agent.Analyze(ctx, s.Question, s.StudentAnswer, s.IdealAnswer)
		u := Update{CriticOutput: &out}
		if out.Status != schema.StatusSuccess {
			u.Errors = []string{fmt.Sprintf("Critic analysis failed: %s", out.Error)}
			u.FailedAgents = []string{NodeCritic}
		}
		return u
	}
}

func synthesizerNode(agent *agents.SynthesizerAgent) nodeFunc {
	return func(ctx context.Context, s schema.State) Update {
		if s.AdvocateOutput.Status != schema.StatusSuccess || s.CriticOutput.Status != schema.StatusSuccess {
			reason := "advocate and critic analyses must both succeed"
			var out schema.SynthesizerOutput
			skipped(&out.CallMeta, reason)
			return Update{
				SynthesizerOutput: &out,
				Errors:            []string{fmt.Sprintf("Synthesis skipped: %s", reason)},
				FailedAgents:      []string{NodeSynthesizer},
			}
		}
		out := agent.Synthesize(ctx, s.Question, s.StudentAnswer, s.IdealAnswer,
			s.AdvocateOutput, s.CriticOutput)
		u := Update{SynthesizerOutput: &out}
		if out.Status != schema.StatusSuccess {
			u.Errors = []string{fmt.Sprintf("Synthesis failed: %s", out.Error)}
			u.FailedAgents = []string{NodeSynthesizer}
		}
		return u
	}
}
