package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/normalize"
	"github.com/lokasewa/evaluator/internal/schema"
)

// SynthesizerAgent weighs the advocate's and the critic's analyses into
// the final graded evaluation.
type SynthesizerAgent struct {
	caller   llm.Caller
	resolver CostResolver
}

func NewSynthesizerAgent(caller llm.Caller, resolver CostResolver) *SynthesizerAgent {
	return &SynthesizerAgent{caller: caller, resolver: resolver}
}

// Synthesize produces the final evaluation. Both panel analyses must have
// succeeded; otherwise the synthesis fails without a model call.
func (a *SynthesizerAgent) Synthesize(
	ctx context.Context,
	question, studentAnswer, idealAnswer string,
	advocate schema.AdvocateOutput,
	critic schema.CriticOutput,
) (out schema.SynthesizerOutput) {
	t := startTimer()
	defer recoverTo(&out.CallMeta, t, string(llm.RoleSynthesizer))

	if advocate.Status != schema.StatusSuccess || critic.Status != schema.StatusSuccess {
		fail(&out.CallMeta, t, string(llm.RoleSynthesizer),
			errors.New("prerequisite analyses incomplete: advocate and critic must both succeed"))
		return out
	}
	if err := validateInputs(map[string]string{
		"question":       question,
		"student_answer": studentAnswer,
		"ideal_answer":   idealAnswer,
	}); err != nil {
		fail(&out.CallMeta, t, string(llm.RoleSynthesizer), err)
		return out
	}

	resp, err := callModel(ctx, a.caller, llm.Request{
		Role: llm.RoleSynthesizer,
		Prompt: fmt.Sprintf(synthesizerPrompt,
			question, idealAnswer, studentAnswer,
			analysisJSON(advocate), analysisJSON(critic)),
	})
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleSynthesizer), err)
		return out
	}

	rec, err := normalize.Synthesizer(resp.Content)
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleSynthesizer), err)
		return out
	}

	out.EvaluationParameters = shapeParameters(rec.EvaluationParameters)
	sum := 0
	for _, p := range out.EvaluationParameters {
		sum += p.Score
	}
	// Final marks are derived from the shaped parameters, not the model's
	// self-reported total.
	out.FinalMarks = schema.ClampMarks(sum)
	out.PersonalizedFeedback = rec.PersonalizedFeedback
	out.StrengthsSummary = rec.StrengthsSummary
	out.ImprovementAreas = rec.ImprovementAreas
	out.Recommendations = rec.Recommendations

	resolveCost(ctx, a.resolver, resp.GenerationID, &out.CallMeta)
	succeed(&out.CallMeta, t)
	slog.Info("synthesis complete", "final_marks", out.FinalMarks)
	return out
}

// analysisJSON renders a panel analysis for prompt inclusion. Marshaling a
// plain output struct cannot fail; a defensive fallback keeps the prompt
// usable regardless.
func analysisJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// shapeParameters sizes the scored criteria to exactly
// schema.NumEvaluationParameters entries: extra entries are dropped from the
// end, missing ones are padded with neutral placeholders, and every score is
// clamped to its range.
func shapeParameters(params []schema.EvaluationParameter) []schema.EvaluationParameter {
	n := schema.NumEvaluationParameters
	shaped := make([]schema.EvaluationParameter, 0, n)
	for i := 0; i < len(params) && i < n; i++ {
		p := params[i]
		p.Score = schema.ClampScore(p.Score)
		p.MaxScore = 10
		shaped = append(shaped, p)
	}
	for i := len(shaped); i < n; i++ {
		shaped = append(shaped, schema.EvaluationParameter{
			Parameter: fmt.Sprintf("Additional Criterion %d", i+1),
			Score:     5,
			MaxScore:  10,
			Comment:   "Standard evaluation criterion",
		})
	}
	return shaped
}
