package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lokasewa/evaluator/internal/schema"
)

// Heuristic fallback extraction. These paths run only when no JSON payload
// could be located in the model text; they scan sentences for role-specific
// keyword classes and always return a minimally valid record.

var (
	positiveKeywords = []string{
		"good", "well", "correct", "accurate", "clear", "demonstrates",
		"shows", "understands", "relevant", "appropriate", "solid",
	}
	criticalKeywords = []string{
		"missing", "lacks", "incomplete", "insufficient", "could", "should",
		"needs", "requires", "absent", "overlooks", "fails", "weak",
	}
	gapKeywords = []string{"missing", "lacks"}

	mildSentiment   = []string{"excellent", "good", "strong"}
	harshSentiment  = []string{"poor", "inadequate", "seriously"}
	percentageRegex = regexp.MustCompile(`(\d+)%`)
)

const (
	maxBucketedItems = 6
	fragmentCap      = 150
)

func advocateFallback(text string) *AdvocateRecord {
	var strengths []string
	for _, sentence := range sentences(text) {
		if len(sentence) > 20 && containsAny(sentence, positiveKeywords) {
			strengths = append(strengths, truncate(sentence, fragmentCap))
			if len(strengths) == maxBucketedItems {
				break
			}
		}
	}
	if len(strengths) == 0 {
		strengths = []string{"Student provided a response to the question"}
	}

	coverage := 50.0
	if m := percentageRegex.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			coverage = schema.ClampPercent(v)
		}
	}

	return &AdvocateRecord{
		Strengths:          strengths,
		PositiveComparison: "Analysis shows some positive aspects",
		Encouragement:      "Continue working to improve your responses",
		CoveragePercentage: coverage,
		EffortRecognition:  "Effort demonstrated in attempting the question",
	}
}

func criticFallback(text string) *CriticRecord {
	var gaps, improvements []string
	for _, sentence := range sentences(text) {
		if len(sentence) <= 15 || !containsAny(sentence, criticalKeywords) {
			continue
		}
		fragment := truncate(sentence, fragmentCap)
		if containsAny(sentence, gapKeywords) {
			if len(gaps) < maxBucketedItems {
				gaps = append(gaps, fragment)
			}
		} else if len(improvements) < maxBucketedItems {
			improvements = append(improvements, fragment)
		}
	}
	if len(gaps) == 0 {
		gaps = []string{"Could benefit from more detailed analysis"}
	}
	if len(improvements) == 0 {
		improvements = []string{"Add more specific examples and evidence"}
	}

	severity := schema.SeverityModerate
	if containsAny(text, mildSentiment) {
		severity = schema.SeverityMinor
	} else if containsAny(text, harshSentiment) {
		severity = schema.SeveritySignificant
	}

	return &CriticRecord{
		GapsIdentified:       gaps,
		AreasForImprovement:  improvements,
		ConstructiveFeedback: "Focus on addressing the identified areas for a stronger response",
		Severity:             string(severity),
	}
}

// sentimentScores maps sentiment keywords in an unstructured synthesis
// response to a uniform parameter score. Coarse by design of the scoring
// fallback: this path produces a best-effort estimate, not a rubric grade.
var sentimentScores = []struct {
	keyword string
	score   int
}{
	{"excellent", 8}, {"good", 7}, {"adequate", 6}, {"fair", 5},
	{"poor", 3}, {"weak", 3}, {"strong", 7}, {"solid", 6},
}

func synthesizerFallback(text string) *SynthesizerRecord {
	lower := strings.ToLower(text)
	estimated := 5
	for _, s := range sentimentScores {
		if strings.Contains(lower, s.keyword) {
			estimated = s.score
			break
		}
	}

	params := DefaultParameters()
	total := 0
	for i := range params {
		score := estimated
		if strings.Contains(params[i].Comment, "Limited") {
			score--
		}
		if score < 1 {
			score = 1
		}
		params[i].Score = schema.ClampScore(score)
		total += params[i].Score
	}

	return &SynthesizerRecord{
		FinalMarks:           schema.ClampMarks(total),
		EvaluationParameters: params,
		PersonalizedFeedback: "Your response has been evaluated. Focus on improving depth and providing more specific examples.",
		StrengthsSummary:     "Basic understanding demonstrated",
		ImprovementAreas:     "Depth of analysis, specific examples, comprehensive coverage",
		Recommendations: []string{
			"Study the topic in more detail",
			"Practice writing comprehensive answers",
			"Include more specific examples and evidence",
		},
	}
}

// extractKeyPoints pulls key points out of free answer text: numbered or
// bulleted lines first, then leading substantial sentences.
func extractKeyPoints(answer string) []string {
	var points []string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := line[0]
		if (first >= '0' && first <= '9') || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") {
			point := strings.TrimSpace(strings.TrimLeft(line, "0123456789.-• "))
			if len(point) > 10 {
				points = append(points, truncate(point, 100))
			}
		}
	}

	if len(points) == 0 {
		sents := sentences(answer)
		if len(sents) > 5 {
			sents = sents[:5]
		}
		for _, s := range sents {
			if len(s) > 20 {
				points = append(points, truncate(s, 100))
			}
		}
	}

	if len(points) > 8 {
		points = points[:8]
	}
	if len(points) == 0 {
		points = []string{"Main concepts covered in the answer"}
	}
	return points
}
