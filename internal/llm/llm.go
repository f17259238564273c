// Package llm provides the model-call collaborators the agents depend on:
// a role-agnostic Caller interface, an OpenRouter chat-completions client
// for the text roles and a Gemini vision client for text extraction.
package llm

import "context"

// Role identifies which agent a call is made on behalf of. The client picks
// model, temperature and token limits per role from its settings.
type Role string

const (
	RoleOCR         Role = "ocr"
	RoleIdealAnswer Role = "ideal_answer"
	RoleAdvocate    Role = "advocate"
	RoleCritic      Role = "critic"
	RoleSynthesizer Role = "synthesizer"
)

// GenerationIDPrefix is the prefix a provider-issued generation identifier
// must carry to be considered valid for cost lookup. Anything else (request
// IDs, system fingerprints) is treated as absent.
const GenerationIDPrefix = "gen-"

// Request is a single model call. Image is the base64-encoded page payload
// and is only set for the vision role.
type Request struct {
	Role   Role
	Prompt string
	Image  string
}

// Response is the outcome of one model call. Success false with a non-empty
// Err is an ordinary call failure, equivalent to a transport error; callers
// must not inspect Content in that case.
type Response struct {
	Success      bool
	Content      string
	GenerationID string
	TokensUsed   int
	Source       string
	Err          string
}

// Caller is the single operation the agents need from a model provider.
// Implementations own transport-level timeouts and retries; a timeout
// surfaces as an unsuccessful Response, not a Go error.
type Caller interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// ValidGenerationID reports whether id is a provider generation identifier
// acceptable for cost lookup.
func ValidGenerationID(id string) bool {
	return len(id) > len(GenerationIDPrefix) && id[:len(GenerationIDPrefix)] == GenerationIDPrefix
}
