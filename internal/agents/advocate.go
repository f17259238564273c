package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/normalize"
	"github.com/lokasewa/evaluator/internal/schema"
)

// AdvocateAgent argues the case for the student: it finds genuine
// strengths in the answer relative to the ideal.
type AdvocateAgent struct {
	caller   llm.Caller
	resolver CostResolver
}

func NewAdvocateAgent(caller llm.Caller, resolver CostResolver) *AdvocateAgent {
	return &AdvocateAgent{caller: caller, resolver: resolver}
}

// Analyze compares the student's answer with the ideal and reports its
// strengths. Both texts must be present; the prerequisite is checked before
// any model call.
func (a *AdvocateAgent) Analyze(ctx context.Context, question, studentAnswer, idealAnswer string) (out schema.AdvocateOutput) {
	t := startTimer()
	defer recoverTo(&out.CallMeta, t, string(llm.RoleAdvocate))

	if err := validateInputs(map[string]string{
		"question":       question,
		"student_answer": studentAnswer,
		"ideal_answer":   idealAnswer,
	}); err != nil {
		fail(&out.CallMeta, t, string(llm.RoleAdvocate), err)
		return out
	}

	resp, err := callModel(ctx, a.caller, llm.Request{
		Role:   llm.RoleAdvocate,
		Prompt: fmt.Sprintf(advocatePrompt, question, idealAnswer, studentAnswer),
	})
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleAdvocate), err)
		return out
	}

	rec, err := normalize.Advocate(resp.Content)
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleAdvocate), err)
		return out
	}

	out.Strengths = rec.Strengths
	if len(out.Strengths) == 0 {
		out.Strengths = []string{"Student attempted to answer the question"}
	}
	out.PositiveComparison = rec.PositiveComparison
	out.Encouragement = rec.Encouragement
	out.CoveragePercentage = schema.ClampPercent(rec.CoveragePercentage)

	resolveCost(ctx, a.resolver, resp.GenerationID, &out.CallMeta)
	succeed(&out.CallMeta, t)
	slog.Info("advocate analysis complete",
		"strengths", len(out.Strengths), "coverage", out.CoveragePercentage)
	return out
}
