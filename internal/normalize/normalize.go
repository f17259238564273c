// Package normalize recovers well-formed structured records from the free
// text a generative model returns. Location of the JSON payload is an
// ordered list of stages, first match wins; a located payload is repaired,
// parsed, validated against the role's schema and decoded into a typed
// record. When no payload can be located at all, each role falls through to
// a heuristic extraction that never fails.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrMissingField reports a payload that parsed but lacks a required field.
// This is distinct from the fallback path, which only applies when no
// payload could be located in the first place.
var ErrMissingField = errors.New("required field missing in model response")

const (
	jsonFence    = "```json"
	genericFence = "```"
)

// locatePayload runs the ordered location stages over raw model text and
// returns the best JSON candidate, or ok=false when the text contains no
// recognizable JSON at all.
func locatePayload(text string) (string, bool) {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, jsonFence); idx != -1 {
		start := idx + len(jsonFence)
		if end := strings.Index(text[start:], genericFence); end != -1 {
			return strings.TrimSpace(text[start : start+end]), true
		}
		return strings.TrimSpace(text[start:]), true
	}

	if strings.Contains(text, genericFence) && strings.Contains(text, "{") {
		start := strings.Index(text, genericFence) + len(genericFence)
		if end := strings.Index(text[start:], genericFence); end != -1 {
			return strings.TrimSpace(text[start : start+end]), true
		}
	}

	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1], true
	}

	return "", false
}

// parsePayload repairs and unmarshals a located candidate. Model output is
// routinely malformed (trailing commas, single quotes, unquoted keys), so a
// repair pass runs before strict decoding.
func parsePayload(candidate string) (map[string]any, error) {
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(candidate), &doc); err == nil {
		return doc, nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, fmt.Errorf("payload unrepairable: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return nil, fmt.Errorf("repaired payload still malformed: %w", err)
	}
	return doc, nil
}

// mustCompileSchema compiles an inline JSON schema document. Role schemas
// are package constants, so a compile failure is a programming error.
func mustCompileSchema(schemaJSON string) *jsonschema.Schema {
	var schemaValue any
	if err := json.Unmarshal([]byte(schemaJSON), &schemaValue); err != nil {
		panic(fmt.Sprintf("invalid role schema: %v", err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaValue); err != nil {
		panic(fmt.Sprintf("failed to add role schema resource: %v", err))
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("failed to compile role schema: %v", err))
	}
	return schema
}

// validateRequired checks a parsed document against the role schema. The
// schemas only constrain object shape and required fields; type coercion is
// left to the weakly-typed decode that follows.
func validateRequired(schema *jsonschema.Schema, doc map[string]any) error {
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingField, err)
	}
	return nil
}

// decodeRecord decodes a parsed document into a typed record. Weak typing
// handles the common model mistakes: a list-valued field returned as a bare
// scalar becomes a single-element list, numeric strings become numbers.
func decodeRecord(doc map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(doc); err != nil {
		return fmt.Errorf("decoding model response: %w", err)
	}
	return nil
}

// sentences splits free text into trimmed sentence fragments for the
// heuristic extractors.
func sentences(text string) []string {
	flat := strings.ReplaceAll(text, "\n", " ")
	parts := strings.Split(flat, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// containsAny reports whether s (lowercased) contains one of the keywords.
func containsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// truncate caps a fragment at n bytes, the bound the heuristic extractors
// apply to bucketed sentences.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
