package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/normalize"
	"github.com/lokasewa/evaluator/internal/schema"
)

// CriticAgent finds the substantive gaps between the student's answer and
// the ideal.
type CriticAgent struct {
	caller   llm.Caller
	resolver CostResolver
}

func NewCriticAgent(caller llm.Caller, resolver CostResolver) *CriticAgent {
	return &CriticAgent{caller: caller, resolver: resolver}
}

// Analyze compares the student's answer with the ideal and reports its
// gaps. Both texts must be present before any model call.
func (a *CriticAgent) Analyze(ctx context.Context, question, studentAnswer, idealAnswer string) (out schema.CriticOutput) {
	t := startTimer()
	defer recoverTo(&out.CallMeta, t, string(llm.RoleCritic))

	if err := validateInputs(map[string]string{
		"question":       question,
		"student_answer": studentAnswer,
		"ideal_answer":   idealAnswer,
	}); err != nil {
		fail(&out.CallMeta, t, string(llm.RoleCritic), err)
		return out
	}

	resp, err := callModel(ctx, a.caller, llm.Request{
		Role:   llm.RoleCritic,
		Prompt: fmt.Sprintf(criticPrompt, question, idealAnswer, studentAnswer),
	})
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleCritic), err)
		return out
	}

	rec, err := normalize.Critic(resp.Content)
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleCritic), err)
		return out
	}

	out.GapsIdentified = rec.GapsIdentified
	if len(out.GapsIdentified) == 0 {
		out.GapsIdentified = []string{"Consider adding more specific examples"}
	}
	out.AreasForImprovement = rec.AreasForImprovement
	out.ConstructiveFeedback = rec.ConstructiveFeedback
	out.Severity = schema.ParseSeverity(rec.Severity)

	resolveCost(ctx, a.resolver, resp.GenerationID, &out.CallMeta)
	succeed(&out.CallMeta, t)
	slog.Info("critic analysis complete",
		"gaps", len(out.GapsIdentified), "severity", out.Severity)
	return out
}
