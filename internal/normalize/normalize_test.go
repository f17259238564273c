package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokasewa/evaluator/internal/schema"
)

func TestLocatePayload(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		located bool
	}{
		{
			name:    "tagged fence",
			text:    "Here you go:\n```json\n{\"a\": 1}\n```\nthanks",
			want:    `{"a": 1}`,
			located: true,
		},
		{
			name:    "generic fence with brace",
			text:    "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
			located: true,
		},
		{
			name:    "bare object",
			text:    "  {\"a\": 1}  ",
			want:    `{"a": 1}`,
			located: true,
		},
		{
			name:    "embedded object",
			text:    "The result is {\"a\": 1} as requested.",
			want:    `{"a": 1}`,
			located: true,
		},
		{
			name:    "unterminated tagged fence",
			text:    "```json\n{\"a\": 1}",
			want:    `{"a": 1}`,
			located: true,
		},
		{
			name:    "no payload",
			text:    "The answer demonstrates a good grasp of the topic.",
			located: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, located := locatePayload(tt.text)
			require.Equal(t, tt.located, located)
			if located {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsePayloadRepairsMalformedJSON(t *testing.T) {
	// Trailing comma and single quotes, typical model sloppiness.
	doc, err := parsePayload(`{'student_answer': 'text', 'confidence_score': 0.9,}`)
	require.NoError(t, err)
	require.Equal(t, "text", doc["student_answer"])
}

func TestOCRWellFormedIsIdentityModuloClamping(t *testing.T) {
	rec, err := OCR(`{"student_answer": "Separation of powers divides the state.", "confidence_score": 1.5}`)
	require.NoError(t, err)
	require.Equal(t, "Separation of powers divides the state.", rec.StudentAnswer)
	require.Equal(t, 1.0, rec.ConfidenceScore, "confidence must clamp to 1.0")
}

func TestOCRMissingRequiredFieldIsHardFailure(t *testing.T) {
	_, err := OCR(`{"confidence_score": 0.9}`)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestOCRNoPayloadDegradesToRawText(t *testing.T) {
	rec, err := OCR("This is just extracted prose with no JSON markers at all")
	require.NoError(t, err)
	require.Equal(t, "This is just extracted prose with no JSON markers at all", rec.StudentAnswer)
	require.Equal(t, 0.8, rec.ConfidenceScore)
}

func TestOCRDefaultConfidence(t *testing.T) {
	rec, err := OCR(`{"student_answer": "hello world"}`)
	require.NoError(t, err)
	require.Equal(t, 0.8, rec.ConfidenceScore)
}

func TestIdealMissingFieldDegradesToWholeText(t *testing.T) {
	raw := `{"key_points": ["a point about governance"]}`
	rec, err := Ideal(raw)
	require.NoError(t, err)
	// The whole raw text becomes the answer body, not a failure.
	require.Equal(t, raw, rec.IdealAnswer)
	require.NotEmpty(t, rec.KeyPoints)
}

func TestIdealRecomputesDerivedFields(t *testing.T) {
	rec, err := Ideal(`{"ideal_answer": "One two three four five."}`)
	require.NoError(t, err)
	require.Equal(t, 5, rec.WordCount)
	require.Equal(t, "General", rec.SubjectArea)
	require.NotEmpty(t, rec.KeyPoints)
}

func TestAdvocateScalarStrengthBecomesList(t *testing.T) {
	rec, err := Advocate(`{"strengths": "clearly written introduction", "coverage_percentage": 45}`)
	require.NoError(t, err)
	require.Equal(t, []string{"clearly written introduction"}, rec.Strengths)
	require.Equal(t, 45.0, rec.CoveragePercentage)
}

func TestAdvocateCoverageClamped(t *testing.T) {
	rec, err := Advocate(`{"strengths": ["x"], "coverage_percentage": -10}`)
	require.NoError(t, err)
	require.Equal(t, 0.0, rec.CoveragePercentage)

	rec, err = Advocate(`{"strengths": ["x"], "coverage_percentage": 250}`)
	require.NoError(t, err)
	require.Equal(t, 100.0, rec.CoveragePercentage)
}

func TestAdvocateDefaultsFilled(t *testing.T) {
	rec, err := Advocate(`{}`)
	require.NoError(t, err)
	require.Equal(t, []string{"Student attempted the answer"}, rec.Strengths)
	require.Equal(t, 50.0, rec.CoveragePercentage)
	require.NotEmpty(t, rec.PositiveComparison)
	require.NotEmpty(t, rec.Encouragement)
}

func TestCriticScalarGapBecomesList(t *testing.T) {
	rec, err := Critic(`{"gaps_identified": "only one gap", "severity": "minor"}`)
	require.NoError(t, err)
	require.Equal(t, []string{"only one gap"}, rec.GapsIdentified)
	require.Equal(t, "minor", rec.Severity)
}

func TestCriticDefaults(t *testing.T) {
	rec, err := Critic(`{}`)
	require.NoError(t, err)
	require.NotEmpty(t, rec.GapsIdentified)
	require.NotEmpty(t, rec.AreasForImprovement)
	require.Equal(t, string(schema.SeverityModerate), rec.Severity)
}

func TestSynthesizerScoresClamped(t *testing.T) {
	rec, err := Synthesizer(`{
		"final_marks": 90,
		"evaluation_parameters": [
			{"parameter": "Accuracy", "score": 14, "comment": "great"},
			{"parameter": "Depth", "score": -2, "comment": "thin"}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, rec.EvaluationParameters, 2)
	assert.Equal(t, 10, rec.EvaluationParameters[0].Score)
	assert.Equal(t, 0, rec.EvaluationParameters[1].Score)
	assert.Equal(t, 10, rec.EvaluationParameters[0].MaxScore)
}

func TestSynthesizerDropsMalformedParameters(t *testing.T) {
	rec, err := Synthesizer(`{
		"evaluation_parameters": [
			{"parameter": "Accuracy", "score": 7},
			{"score": 9},
			{"parameter": "No score"},
			"not even an object"
		]
	}`)
	require.NoError(t, err)
	require.Len(t, rec.EvaluationParameters, 1)
	require.Equal(t, "Accuracy", rec.EvaluationParameters[0].Parameter)
}

func TestSynthesizerEmptyParameterListGetsDefaults(t *testing.T) {
	rec, err := Synthesizer(`{"evaluation_parameters": []}`)
	require.NoError(t, err)
	require.Len(t, rec.EvaluationParameters, schema.NumEvaluationParameters)
}
