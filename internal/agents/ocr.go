package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lokasewa/evaluator/internal/fileproc"
	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/normalize"
	"github.com/lokasewa/evaluator/internal/schema"
)

// shortAnswerLen is the extracted-text length below which the transcription
// confidence is discounted; a four-character answer from a full page scan
// usually means the extraction mostly failed.
const shortAnswerLen = 5

// OCRAgent extracts the student's answer text from the uploaded file via a
// vision model.
type OCRAgent struct {
	caller   llm.Caller
	resolver CostResolver
}

// NewOCRAgent creates the extraction agent. resolver may be nil when the
// vision provider is not billed per generation.
func NewOCRAgent(caller llm.Caller, resolver CostResolver) *OCRAgent {
	return &OCRAgent{caller: caller, resolver: resolver}
}

// Extract runs preprocessing, the vision call and normalization. The result
// always carries a terminal status and elapsed time; it never panics.
func (a *OCRAgent) Extract(ctx context.Context, fileData []byte, fileType schema.FileType) (out schema.OCROutput) {
	t := startTimer()
	defer recoverTo(&out.CallMeta, t, string(llm.RoleOCR))

	if len(fileData) == 0 {
		fail(&out.CallMeta, t, string(llm.RoleOCR), errors.New("missing required input: file_data"))
		return out
	}

	processed, err := fileproc.Process(fileData, fileType)
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleOCR), fmt.Errorf("file preprocessing failed: %w", err))
		return out
	}
	out.PagesProcessed = processed.PagesProcessed

	resp, err := callModel(ctx, a.caller, llm.Request{
		Role:   llm.RoleOCR,
		Prompt: ocrPrompt,
		Image:  processed.EncodedPayload,
	})
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleOCR), err)
		return out
	}
	out.APISource = resp.Source

	rec, err := normalize.OCR(resp.Content)
	if err != nil {
		fail(&out.CallMeta, t, string(llm.RoleOCR), err)
		return out
	}

	answer := strings.TrimSpace(rec.StudentAnswer)
	if answer == "" {
		fail(&out.CallMeta, t, string(llm.RoleOCR), errors.New("no text extracted from file"))
		return out
	}

	confidence := rec.ConfidenceScore * processed.QualityModifier
	if len(answer) < shortAnswerLen {
		confidence *= 0.7
	}
	out.StudentAnswer = answer
	out.ConfidenceScore = schema.ClampUnit(confidence)

	resolveCost(ctx, a.resolver, resp.GenerationID, &out.CallMeta)
	succeed(&out.CallMeta, t)
	slog.Info("text extraction complete",
		"chars", len(answer),
		"confidence", out.ConfidenceScore,
		"pages", out.PagesProcessed,
		"source", out.APISource)
	return out
}
