package normalize

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/lokasewa/evaluator/internal/schema"
)

// Role records are the normalizer's view of a model response: every field
// the role's output schema documents, before the agent applies its own
// shaping policy. Fields the model self-reports but the agents recompute
// (word counts) or ignore (subject area) are still captured here.

type OCRRecord struct {
	StudentAnswer   string  `json:"student_answer"`
	ConfidenceScore float64 `json:"confidence_score"`
	Notes           string  `json:"notes"`
}

type IdealRecord struct {
	IdealAnswer string   `json:"ideal_answer"`
	KeyPoints   []string `json:"key_points"`
	WordCount   int      `json:"word_count"`
	SubjectArea string   `json:"subject_area"`
}

type AdvocateRecord struct {
	Strengths          []string `json:"strengths"`
	PositiveComparison string   `json:"positive_comparison"`
	Encouragement      string   `json:"encouragement"`
	CoveragePercentage float64  `json:"coverage_percentage"`
	EffortRecognition  string   `json:"effort_recognition"`
}

type CriticRecord struct {
	GapsIdentified       []string `json:"gaps_identified"`
	AreasForImprovement  []string `json:"areas_for_improvement"`
	ConstructiveFeedback string   `json:"constructive_feedback"`
	Severity             string   `json:"severity"`
	MissingKeyConcepts   []string `json:"missing_key_concepts"`
}

type SynthesizerRecord struct {
	FinalMarks           int                          `json:"final_marks"`
	EvaluationParameters []schema.EvaluationParameter `json:"evaluation_parameters"`
	PersonalizedFeedback string                       `json:"personalized_feedback"`
	StrengthsSummary     string                       `json:"strengths_summary"`
	ImprovementAreas     string                       `json:"improvement_areas"`
	Recommendations      []string                     `json:"recommendations"`
	OverallAssessment    string                       `json:"overall_assessment"`
}

var (
	ocrSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["student_answer"]
	}`)
	idealSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["ideal_answer"]
	}`)
	objectSchema = mustCompileSchema(`{
		"type": "object"
	}`)
)

// OCR normalizes a text-extraction response. A response with no locatable
// payload, or one that cannot be parsed even after repair, is treated as
// raw extracted text (the model answered in prose); a parsed payload
// missing the extracted text is a hard failure.
func OCR(text string) (*OCRRecord, error) {
	candidate, located := locatePayload(text)
	if !located {
		return &OCRRecord{
			StudentAnswer:   strings.TrimSpace(text),
			ConfidenceScore: 0.8,
			Notes:           "response was not in JSON format",
		}, nil
	}

	doc, err := parsePayload(candidate)
	if err != nil {
		slog.Warn("ocr payload unparseable, treating response as raw text", "error", err)
		return &OCRRecord{
			StudentAnswer:   strings.TrimSpace(text),
			ConfidenceScore: 0.7,
			Notes:           "payload could not be repaired",
		}, nil
	}

	if err := validateRequired(ocrSchema, doc); err != nil {
		return nil, err
	}

	rec := &OCRRecord{}
	if err := decodeRecord(doc, rec); err != nil {
		return nil, err
	}
	if _, ok := doc["confidence_score"]; !ok {
		rec.ConfidenceScore = 0.8
	}
	rec.ConfidenceScore = schema.ClampUnit(rec.ConfidenceScore)
	return rec, nil
}

// Ideal normalizes an ideal-answer response. Unlike the other roles a
// missing required field does not fail: the whole raw text degrades to
// being the answer body.
func Ideal(text string) (*IdealRecord, error) {
	candidate, located := locatePayload(text)
	if !located {
		return idealFromRawText(text), nil
	}

	doc, err := parsePayload(candidate)
	if err != nil {
		slog.Warn("ideal-answer payload unparseable, treating response as raw answer", "error", err)
		return idealFromRawText(text), nil
	}

	if err := validateRequired(idealSchema, doc); err != nil {
		if errors.Is(err, ErrMissingField) {
			return idealFromRawText(text), nil
		}
		return nil, err
	}

	rec := &IdealRecord{}
	if err := decodeRecord(doc, rec); err != nil {
		return nil, err
	}
	if len(rec.KeyPoints) == 0 {
		rec.KeyPoints = extractKeyPoints(rec.IdealAnswer)
	}
	if rec.WordCount == 0 {
		rec.WordCount = len(strings.Fields(rec.IdealAnswer))
	}
	if rec.SubjectArea == "" {
		rec.SubjectArea = "General"
	}
	return rec, nil
}

func idealFromRawText(text string) *IdealRecord {
	text = strings.TrimSpace(text)
	return &IdealRecord{
		IdealAnswer: text,
		KeyPoints:   extractKeyPoints(text),
		WordCount:   len(strings.Fields(text)),
		SubjectArea: "General",
	}
}

// Advocate normalizes a strengths-analysis response. The heuristic fallback
// is total; a parsed payload has every field defaulted, so this role never
// hard-fails on content.
func Advocate(text string) (*AdvocateRecord, error) {
	candidate, located := locatePayload(text)
	if !located {
		return advocateFallback(text), nil
	}

	doc, err := parsePayload(candidate)
	if err != nil {
		slog.Warn("advocate payload unparseable, extracting basic analysis", "error", err)
		return advocateFallback(text), nil
	}

	if err := validateRequired(objectSchema, doc); err != nil {
		return nil, err
	}

	rec := &AdvocateRecord{}
	if err := decodeRecord(doc, rec); err != nil {
		return nil, err
	}
	if len(rec.Strengths) == 0 {
		rec.Strengths = []string{"Student attempted the answer"}
	}
	if rec.PositiveComparison == "" {
		rec.PositiveComparison = "Shows basic understanding"
	}
	if rec.Encouragement == "" {
		rec.Encouragement = "Continue practicing to improve"
	}
	if _, ok := doc["coverage_percentage"]; !ok {
		rec.CoveragePercentage = 50.0
	}
	if rec.EffortRecognition == "" {
		rec.EffortRecognition = "Clear effort demonstrated"
	}
	rec.CoveragePercentage = schema.ClampPercent(rec.CoveragePercentage)
	return rec, nil
}

// Critic normalizes a gap-analysis response.
func Critic(text string) (*CriticRecord, error) {
	candidate, located := locatePayload(text)
	if !located {
		return criticFallback(text), nil
	}

	doc, err := parsePayload(candidate)
	if err != nil {
		slog.Warn("critic payload unparseable, extracting basic criticism", "error", err)
		return criticFallback(text), nil
	}

	if err := validateRequired(objectSchema, doc); err != nil {
		return nil, err
	}

	rec := &CriticRecord{}
	if err := decodeRecord(doc, rec); err != nil {
		return nil, err
	}
	if len(rec.GapsIdentified) == 0 {
		rec.GapsIdentified = []string{"Could be more comprehensive"}
	}
	if len(rec.AreasForImprovement) == 0 {
		rec.AreasForImprovement = []string{"Add more depth and examples"}
	}
	if rec.ConstructiveFeedback == "" {
		rec.ConstructiveFeedback = "Consider strengthening your analysis with more details"
	}
	if rec.Severity == "" {
		rec.Severity = string(schema.SeverityModerate)
	}
	return rec, nil
}

// Synthesizer normalizes a final-evaluation response. Parameter list
// validation (each entry needs a name and a score) happens here; sizing to
// exactly ten entries is the agent's shaping policy.
func Synthesizer(text string) (*SynthesizerRecord, error) {
	candidate, located := locatePayload(text)
	if !located {
		return synthesizerFallback(text), nil
	}

	doc, err := parsePayload(candidate)
	if err != nil {
		slog.Warn("synthesizer payload unparseable, building fallback evaluation", "error", err)
		return synthesizerFallback(text), nil
	}

	if err := validateRequired(objectSchema, doc); err != nil {
		return nil, err
	}

	// Entries without both a name and a score are dropped before decoding;
	// weak typing would otherwise manufacture zero values for them.
	if rawParams, ok := doc["evaluation_parameters"].([]any); ok {
		doc["evaluation_parameters"] = filterParams(rawParams)
	}

	rec := &SynthesizerRecord{}
	if err := decodeRecord(doc, rec); err != nil {
		return nil, err
	}
	if len(rec.EvaluationParameters) == 0 {
		rec.EvaluationParameters = DefaultParameters()
	}
	for i := range rec.EvaluationParameters {
		p := &rec.EvaluationParameters[i]
		p.Score = schema.ClampScore(p.Score)
		p.MaxScore = 10
		if p.Comment == "" {
			p.Comment = "Standard evaluation"
		}
	}
	if rec.PersonalizedFeedback == "" {
		rec.PersonalizedFeedback = "Evaluation completed successfully"
	}
	if rec.StrengthsSummary == "" {
		rec.StrengthsSummary = "Various strengths identified"
	}
	if rec.ImprovementAreas == "" {
		rec.ImprovementAreas = "Areas for improvement noted"
	}
	if len(rec.Recommendations) == 0 {
		rec.Recommendations = []string{"Continue studying and practicing"}
	}
	return rec, nil
}

func filterParams(raw []any) []any {
	kept := make([]any, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if _, hasName := m["parameter"]; !hasName {
			continue
		}
		if _, hasScore := m["score"]; !hasScore {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// DefaultParameters is the fixed ten-criterion rubric used when a synthesis
// response carries no usable parameter list.
func DefaultParameters() []schema.EvaluationParameter {
	return []schema.EvaluationParameter{
		{Parameter: "Content Accuracy", Score: 6, MaxScore: 10, Comment: "Basic accuracy demonstrated"},
		{Parameter: "Completeness", Score: 5, MaxScore: 10, Comment: "Partially complete response"},
		{Parameter: "Structure & Organization", Score: 6, MaxScore: 10, Comment: "Adequate organization"},
		{Parameter: "Depth of Analysis", Score: 5, MaxScore: 10, Comment: "Surface-level analysis"},
		{Parameter: "Examples & Evidence", Score: 4, MaxScore: 10, Comment: "Limited examples provided"},
		{Parameter: "Relevance", Score: 7, MaxScore: 10, Comment: "Generally relevant to question"},
		{Parameter: "Clarity of Expression", Score: 6, MaxScore: 10, Comment: "Clear but could be improved"},
		{Parameter: "Understanding of Concepts", Score: 6, MaxScore: 10, Comment: "Basic understanding shown"},
		{Parameter: "Critical Thinking", Score: 4, MaxScore: 10, Comment: "Limited critical analysis"},
		{Parameter: "Overall Quality", Score: 5, MaxScore: 10, Comment: "Average quality response"},
	}
}
