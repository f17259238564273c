package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/normalize"
	"github.com/lokasewa/evaluator/internal/schema"
)

const (
	// minQuestionLen guards against fragments that cannot produce a
	// meaningful model answer.
	minQuestionLen = 10
	// shortIdealWords is the word count below which a generated answer is
	// suspicious but still accepted.
	shortIdealWords = 50
)

// IdealAnswerAgent generates the model answer the student's work is
// compared against.
type IdealAnswerAgent struct {
	caller   llm.Caller
	resolver CostResolver
}

func NewIdealAnswerAgent(caller llm.Caller, resolver CostResolver) *IdealAnswerAgent {
	return &IdealAnswerAgent{caller: caller, resolver: resolver}
}

// Generate produces the ideal answer for a question. Normalization never
// hard-fails for this role: a prose response degrades to being the answer
// body itself.
func (a *IdealAnswerAgent) Generate(ctx context.Context, question string) (out schema.IdealAnswerOutput) {
	t := startTimer()
	defer recoverTo(&out.CallMeta, t, string(llm.RoleIdealAnswer))

	if err := validateInputs(map[string]string{"question": question}); err != nil {
		fail(&out.CallMeta, t, string(llm.RoleIdealAnswer), err)
		return out
	}
	if len(strings.TrimSpace(question)) < minQuestionLen {
		fail(&out.CallMeta, t, string(llm.RoleIdealAnswer),
			fmt.Errorf("question too short: need at least %d characters", minQuestionLen))
		return out
	}

	resp, err := callModel(ctx, a.caller, llm.Request{
		Role:   llm.RoleIdealAnswer,
		Prompt: fmt.Sprintf(idealAnswerPrompt, question),
	})
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleIdealAnswer), err)
		return out
	}

	rec, err := normalize.Ideal(resp.Content)
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleIdealAnswer), err)
		return out
	}

	out.IdealAnswer = rec.IdealAnswer
	out.KeyPoints = rec.KeyPoints
	// The model's self-reported count is not trusted.
	out.WordCount = len(strings.Fields(rec.IdealAnswer))
	if out.WordCount < shortIdealWords {
		slog.Warn("generated ideal answer is unusually short", "words", out.WordCount)
	}

	resolveCost(ctx, a.resolver, resp.GenerationID, &out.CallMeta)
	succeed(&out.CallMeta, t)
	slog.Info("ideal answer generated", "words", out.WordCount, "key_points", len(out.KeyPoints))
	return out
}
