package reporting

import (
	"fmt"

	"github.com/lokasewa/evaluator/internal/schema"
)

// InterpretMarks returns a plain-language label for final marks (0-100).
func InterpretMarks(marks int) string {
	switch {
	case marks > 90:
		return "Excellent (>90)"
	case marks >= 70:
		return "Good (70-90)"
	case marks >= 50:
		return "Needs Work (50-70)"
	default:
		return "Poor (<50)"
	}
}

// InterpretCoverage returns a human-readable explanation of how much of the
// ideal answer the student covered.
func InterpretCoverage(pct float64) string {
	switch {
	case pct >= 80:
		return fmt.Sprintf("Covers most of the expected material (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("Covers about half of the expected material (%.0f%%)", pct)
	case pct >= 20:
		return fmt.Sprintf("Covers a small part of the expected material (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Covers very little of the expected material (%.0f%%)", pct)
	}
}

// InterpretSeverity explains the critic's severity rating.
func InterpretSeverity(sev schema.Severity) string {
	switch sev {
	case schema.SeverityMinor:
		return "The gaps found are minor; the answer is close to complete."
	case schema.SeveritySignificant:
		return "The gaps found are significant: key concepts are missing or wrong."
	default:
		return "The gaps found are moderate; the core is there but needs development."
	}
}

// InterpretConfidence explains the extraction confidence to the reader.
func InterpretConfidence(conf float64) string {
	switch {
	case conf >= 0.85:
		return "Transcription is highly reliable."
	case conf >= 0.6:
		return "Transcription is mostly reliable; a few words may differ from the original."
	default:
		return "Transcription is uncertain — consider re-uploading a clearer scan."
	}
}
