// Package reporting renders a finished evaluation for people: a markdown
// report with the scored rubric and the per-agent cost table, an HTML
// rendering of the same report, and plain-language interpretations of the
// numeric results.
package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lokasewa/evaluator/internal/schema"
)

// CostRow is one line of the per-agent cost table.
type CostRow struct {
	Agent   string
	USD     string
	NPR     string
	Elapsed string
}

// CostBreakdown builds the per-agent cost table with a trailing TOTAL row.
// Extraction is excluded: the vision provider is not billed per generation.
func CostBreakdown(state *schema.State) []CostRow {
	rows := []CostRow{
		costRow("Ideal Answer", state.IdealOutput.CallMeta, state.IdealAnswerTimeSeconds),
		costRow("Advocate", state.AdvocateOutput.CallMeta, state.AdvocateTimeSeconds),
		costRow("Critic", state.CriticOutput.CallMeta, state.CriticTimeSeconds),
		costRow("Synthesizer", state.SynthesizerOutput.CallMeta, state.SynthesizerTimeSeconds),
	}
	rows = append(rows, CostRow{
		Agent:   "**TOTAL**",
		USD:     fmt.Sprintf("**$%.6f**", state.TotalCostUSD),
		NPR:     fmt.Sprintf("**रू %.4f**", state.TotalCostNPR),
		Elapsed: fmt.Sprintf("**%.2fs**", state.TotalTimeSeconds),
	})
	return rows
}

func costRow(agent string, meta schema.CallMeta, seconds float64) CostRow {
	return CostRow{
		Agent:   agent,
		USD:     fmt.Sprintf("$%.6f", meta.CostUSD),
		NPR:     fmt.Sprintf("रू %.4f", meta.CostNPR),
		Elapsed: fmt.Sprintf("%.2fs", seconds),
	}
}

// Markdown renders the full evaluation report.
func Markdown(state *schema.State) string {
	var b strings.Builder
	p := message.NewPrinter(language.English)
	synth := state.SynthesizerOutput

	b.WriteString("# Evaluation Report\n\n")

	if !state.WorkflowComplete {
		b.WriteString("> ⚠️ The evaluation did not complete. Results below are partial.\n\n")
		if len(state.Errors) > 0 {
			b.WriteString("## Errors\n\n")
			for _, e := range state.Errors {
				fmt.Fprintf(&b, "- %s\n", e)
			}
			b.WriteString("\n")
		}
	}

	if synth.Status == schema.StatusSuccess {
		p.Fprintf(&b, "## Final Marks: %d / 100\n\n", synth.FinalMarks)
		fmt.Fprintf(&b, "%s\n\n", InterpretMarks(synth.FinalMarks))

		b.WriteString("## Evaluation Parameters\n\n")
		b.WriteString("| Parameter | Score | Max | Comment |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, param := range synth.EvaluationParameters {
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n",
				param.Parameter, param.Score, param.MaxScore, param.Comment)
		}
		b.WriteString("\n")

		writeSection(&b, "Personalized Feedback", synth.PersonalizedFeedback)
		writeSection(&b, "Strengths", synth.StrengthsSummary)
		writeSection(&b, "Areas for Improvement", synth.ImprovementAreas)

		if len(synth.Recommendations) > 0 {
			b.WriteString("## Recommendations\n\n")
			for _, r := range synth.Recommendations {
				fmt.Fprintf(&b, "- %s\n", r)
			}
			b.WriteString("\n")
		}
	}

	if state.OCROutput.Status == schema.StatusSuccess {
		b.WriteString("## Extraction\n\n")
		fmt.Fprintf(&b, "Confidence %.2f across %d page(s). %s\n\n",
			state.OCROutput.ConfidenceScore,
			state.OCROutput.PagesProcessed,
			InterpretConfidence(state.OCROutput.ConfidenceScore))
	}

	b.WriteString("## Cost Breakdown\n\n")
	fmt.Fprintf(&b, "*Exchange rate: 1 USD = %.0f NPR. OCR cost not included (Google AI Studio).*\n\n",
		impliedRate(state))
	b.WriteString("| Agent | Cost (USD) | Cost (NPR) | Time |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, row := range CostBreakdown(state) {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", row.Agent, row.USD, row.NPR, row.Elapsed)
	}
	b.WriteString("\n")

	return b.String()
}

// HTML renders the markdown report to HTML with table support.
func HTML(state *schema.State) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var out bytes.Buffer
	if err := md.Convert([]byte(Markdown(state)), &out); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return out.String(), nil
}

func writeSection(b *strings.Builder, title, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, body)
}

// impliedRate recovers the conversion rate from the accumulated totals so
// the report states the rate that was actually applied.
func impliedRate(state *schema.State) float64 {
	if state.TotalCostUSD > 0 {
		return state.TotalCostNPR / state.TotalCostUSD
	}
	return 142
}
