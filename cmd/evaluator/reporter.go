package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/lokasewa/evaluator/internal/reporting"
	"github.com/lokasewa/evaluator/internal/schema"
)

const (
	minTermWidth     = 60
	defaultTermWidth = 100
)

// terminalWidth returns the rendering width for tables. Non-terminal
// output (pipes, CI) gets a fixed width for stable diffs.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	if w < minTermWidth {
		return minTermWidth
	}
	return w
}

// renderState writes the evaluation summary to the terminal.
//
//nolint:errcheck // display-only writes; errors are not actionable
func renderState(w io.Writer, state *schema.State) {
	width := terminalWidth()
	rule := strings.Repeat("═", width)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, " EVALUATION RESULT")
	fmt.Fprintln(w, rule)

	synth := state.SynthesizerOutput
	if synth.Status == schema.StatusSuccess {
		fmt.Fprintf(w, "\n Final Marks: %d / 100  (%s)\n\n", synth.FinalMarks, reporting.InterpretMarks(synth.FinalMarks))
		renderParameters(w, synth.EvaluationParameters, width)

		if synth.PersonalizedFeedback != "" {
			fmt.Fprintf(w, "\n Feedback: %s\n", synth.PersonalizedFeedback)
		}
		if len(synth.Recommendations) > 0 {
			fmt.Fprintln(w, "\n Recommendations:")
			for _, r := range synth.Recommendations {
				fmt.Fprintf(w, "   • %s\n", r)
			}
		}
	} else {
		fmt.Fprintln(w, "\n ⚠ Evaluation incomplete")
	}

	if len(state.Errors) > 0 {
		fmt.Fprintln(w, "\n Errors:")
		for _, e := range state.Errors {
			fmt.Fprintf(w, "   ✗ %s\n", e)
		}
	}

	fmt.Fprintln(w, "\n Cost & Time:")
	renderCosts(w, reporting.CostBreakdown(state))
	fmt.Fprintln(w, rule)
}

// renderParameters prints the scored rubric, padding the name column to the
// widest entry so scores line up even with non-ASCII parameter names.
func renderParameters(w io.Writer, params []schema.EvaluationParameter, width int) {
	nameWidth := 0
	for _, p := range params {
		if n := runewidth.StringWidth(p.Parameter); n > nameWidth {
			nameWidth = n
		}
	}

	commentBudget := width - nameWidth - 12
	for _, p := range params {
		comment := p.Comment
		if commentBudget > 3 && runewidth.StringWidth(comment) > commentBudget {
			comment = runewidth.Truncate(comment, commentBudget, "…")
		}
		fmt.Fprintf(w, " %s  %2d/%-2d  %s\n",
			runewidth.FillRight(p.Parameter, nameWidth), p.Score, p.MaxScore, comment)
	}
}

//nolint:errcheck // display-only writes
func renderCosts(w io.Writer, rows []reporting.CostRow) {
	agentWidth := 0
	for _, r := range rows {
		if n := runewidth.StringWidth(r.Agent); n > agentWidth {
			agentWidth = n
		}
	}
	for _, r := range rows {
		fmt.Fprintf(w, "   %s  %-12s %-14s %s\n",
			runewidth.FillRight(r.Agent, agentWidth), r.USD, r.NPR, r.Elapsed)
	}
}
