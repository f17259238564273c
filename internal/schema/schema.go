// Package schema defines the data model shared by the agents, the workflow
// executor and the reporting layer: per-role output records, the workflow
// state threaded through the task graph, and the enumerations they use.
package schema

import "strings"

// Status represents the execution status of one agent.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Severity describes how serious the gaps found by the critic are.
type Severity string

const (
	SeverityMinor       Severity = "minor"
	SeverityModerate    Severity = "moderate"
	SeveritySignificant Severity = "significant"
)

// ParseSeverity coerces an externally supplied value into the valid set.
// Anything unrecognized (including the "critical" label the critic prompt
// mentions) becomes SeverityModerate.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityMinor:
		return SeverityMinor
	case SeverityModerate:
		return SeverityModerate
	case SeveritySignificant:
		return SeveritySignificant
	default:
		return SeverityModerate
	}
}

// FileType identifies the kind of answer file a student uploaded.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypePDF   FileType = "pdf"
)

// CallMeta carries the bookkeeping fields every agent output shares:
// status, error text, the provider-issued generation ID (when the call was
// billable) and resolved cost/latency figures.
type CallMeta struct {
	Status           Status  `json:"status"`
	Error            string  `json:"error,omitempty"`
	GenerationID     string  `json:"generation_id,omitempty"`
	CostUSD          float64 `json:"cost_usd"`
	CostNPR          float64 `json:"cost_npr"`
	TimeTakenSeconds float64 `json:"time_taken_seconds"`
}

// OCROutput is the text-extraction agent's result.
type OCROutput struct {
	StudentAnswer   string  `json:"student_answer"`
	ConfidenceScore float64 `json:"confidence_score"`
	PagesProcessed  int     `json:"pages_processed"`
	APISource       string  `json:"api_source"`
	CallMeta
}

// IdealAnswerOutput is the model-answer generator's result.
type IdealAnswerOutput struct {
	IdealAnswer string   `json:"ideal_answer"`
	KeyPoints   []string `json:"key_points"`
	WordCount   int      `json:"word_count"`
	CallMeta
}

// AdvocateOutput is the strengths-finding agent's result.
type AdvocateOutput struct {
	Strengths          []string `json:"strengths"`
	PositiveComparison string   `json:"positive_comparison"`
	Encouragement      string   `json:"encouragement"`
	CoveragePercentage float64  `json:"coverage_percentage"`
	CallMeta
}

// CriticOutput is the gap-finding agent's result.
type CriticOutput struct {
	GapsIdentified       []string `json:"gaps_identified"`
	AreasForImprovement  []string `json:"areas_for_improvement"`
	ConstructiveFeedback string   `json:"constructive_feedback"`
	Severity             Severity `json:"severity"`
	CallMeta
}

// EvaluationParameter is one of the ten scored criteria in the final report.
type EvaluationParameter struct {
	Parameter string `json:"parameter"`
	Score     int    `json:"score"`
	MaxScore  int    `json:"max_score"`
	Comment   string `json:"comment"`
}

// NumEvaluationParameters is the fixed size of a synthesizer parameter list.
const NumEvaluationParameters = 10

// SynthesizerOutput is the final graded evaluation.
type SynthesizerOutput struct {
	FinalMarks           int                   `json:"final_marks"`
	EvaluationParameters []EvaluationParameter `json:"evaluation_parameters"`
	PersonalizedFeedback string                `json:"personalized_feedback"`
	StrengthsSummary     string                `json:"strengths_summary"`
	ImprovementAreas     string                `json:"improvement_areas"`
	Recommendations      []string              `json:"recommendations"`
	CallMeta
}

// State is the single record threaded through the task graph. It is owned by
// the executor for the duration of one evaluation; nodes never touch it
// directly, they return partial updates the executor merges in.
type State struct {
	SessionID string   `json:"session_id"`
	Question  string   `json:"question"`
	FileData  []byte   `json:"-"`
	FileType  FileType `json:"file_type"`

	// Intermediate texts promoted out of agent outputs so downstream
	// nodes do not have to reach into them.
	StudentAnswer string `json:"student_answer"`
	IdealAnswer   string `json:"ideal_answer"`

	OCROutput         OCROutput         `json:"ocr_output"`
	IdealOutput       IdealAnswerOutput `json:"ideal_output"`
	AdvocateOutput    AdvocateOutput    `json:"advocate_output"`
	CriticOutput      CriticOutput      `json:"critic_output"`
	SynthesizerOutput SynthesizerOutput `json:"synthesizer_output"`

	// Errors and FailedAgents are append-only: concurrent node updates are
	// combined by concatenation, never overwritten.
	Errors       []string `json:"errors"`
	FailedAgents []string `json:"failed_agents"`

	WorkflowComplete bool `json:"workflow_complete"`

	TotalCostUSD     float64 `json:"total_cost_usd"`
	TotalCostNPR     float64 `json:"total_cost_npr"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`

	OCRTimeSeconds         float64 `json:"ocr_time_seconds"`
	IdealAnswerTimeSeconds float64 `json:"ideal_answer_time_seconds"`
	AdvocateTimeSeconds    float64 `json:"advocate_time_seconds"`
	CriticTimeSeconds      float64 `json:"critic_time_seconds"`
	SynthesizerTimeSeconds float64 `json:"synthesizer_time_seconds"`
}

// StageOneDone reports whether both first-layer agents have finished,
// successfully or not.
func (s *State) StageOneDone() bool {
	return s.OCROutput.Status != StatusNotStarted && s.OCROutput.Status != StatusInProgress &&
		s.IdealOutput.Status != StatusNotStarted && s.IdealOutput.Status != StatusInProgress
}

// StageTwoDone reports whether both comparison agents have finished.
func (s *State) StageTwoDone() bool {
	return s.AdvocateOutput.Status != StatusNotStarted && s.AdvocateOutput.Status != StatusInProgress &&
		s.CriticOutput.Status != StatusNotStarted && s.CriticOutput.Status != StatusInProgress
}

// ClampScore constrains a single parameter score to [0, 10].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// ClampMarks constrains final marks to [0, 100].
func ClampMarks(marks int) int {
	if marks < 0 {
		return 0
	}
	if marks > 100 {
		return 100
	}
	return marks
}

// ClampUnit constrains a confidence value to [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampPercent constrains a coverage value to [0, 100].
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
