package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/stellaephile/whats-up-doc/internal/model"
)

var (
	fencedJSON     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")
	fenceMarker    = regexp.MustCompile("```(?:json|JSON)?")
	trailingCommas = regexp.MustCompile(`,\s*([}\]])`)
	bareKeys       = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// sampleLen bounds the model text echoed back in extraction errors.
const sampleLen = 200

// ParseAIJSON extracts a single JSON object from model output and decodes it
// into target. Model output may be:
// - Pure JSON
// - JSON wrapped in markdown code blocks (```json ... ```)
// - JSON with surrounding prose
// - JSON with trailing commas, unquoted keys or single quotes
//
// Only syntactic recovery happens here; field semantics are left to the caller.
// Failures wrap model.ErrMalformedModelOutput.
func ParseAIJSON(input string, target interface{}) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: empty model output", model.ErrMalformedModelOutput)
	}

	for _, candidate := range jsonCandidates(input) {
		if decodeObject(candidate, target) {
			return nil
		}
	}

	return fmt.Errorf("%w: no JSON object in: %s", model.ErrMalformedModelOutput, truncateString(input, sampleLen))
}

// ExtractJSONObject returns the raw text of the first recoverable JSON object.
func ExtractJSONObject(input string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := ParseAIJSON(input, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// jsonCandidates lists substrings worth trying, most faithful first.
func jsonCandidates(input string) []string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	candidates := []string{trimmed}

	if m := fencedJSON.FindStringSubmatch(trimmed); len(m) > 1 {
		candidates = append(candidates, m[1])
	}

	unfenced := strings.TrimSpace(fenceMarker.ReplaceAllString(trimmed, ""))
	candidates = append(candidates, unfenced)

	greedy := extractGreedyObject(unfenced)
	if greedy != "" {
		candidates = append(candidates, greedy)
	}

	for _, snippet := range ExtractJSONSnippets(unfenced) {
		if strings.HasPrefix(snippet, "{") {
			candidates = append(candidates, snippet)
		}
	}

	if greedy != "" {
		candidates = append(candidates, cleanAndFixJSON(greedy))
	}
	if balanced := extractBalancedBraces(unfenced[max(strings.Index(unfenced, "{"), 0):], '{', '}'); balanced != "" {
		candidates = append(candidates, cleanAndFixJSON(balanced))
	}

	return candidates
}

// decodeObject decodes s into target only if s is a JSON object. On failure
// target is reset so a later candidate starts clean.
func decodeObject(s string, target interface{}) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return false
	}

	if err := json.Unmarshal([]byte(s), target); err != nil {
		resetTarget(target)
		return false
	}
	return true
}

func resetTarget(target interface{}) {
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}

// extractGreedyObject returns the span from the first '{' to the last '}'.
func extractGreedyObject(input string) string {
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start < 0 || end <= start {
		return ""
	}
	return input[start : end+1]
}

// extractBalancedBraces extracts content with balanced braces
func extractBalancedBraces(input string, open, close rune) string {
	if len(input) == 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		if ch == '\\' {
			escape = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// cleanAndFixJSON attempts to fix common JSON formatting issues
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)
	s = trailingCommas.ReplaceAllString(s, "$1")
	s = bareKeys.ReplaceAllString(s, `$1"$2"$3`)
	s = fixSingleQuotes(s)
	return controlChars.ReplaceAllString(s, "")
}

// fixSingleQuotes converts single-quoted strings to double-quoted ones,
// leaving apostrophes inside double-quoted strings alone.
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDouble := false
	inSingle := false
	escape := false

	for _, ch := range input {
		if escape {
			result.WriteRune(ch)
			escape = false
			continue
		}

		switch {
		case ch == '\\':
			escape = true
			result.WriteRune(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			result.WriteRune(ch)
		case ch == '"' && inSingle:
			result.WriteString(`\"`)
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			result.WriteRune('"')
		default:
			result.WriteRune(ch)
		}
	}

	return result.String()
}

// truncateString truncates a string to at most maxLen bytes without
// splitting a UTF-8 sequence
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// ExtractJSONSnippets finds all top-level JSON objects or arrays in text
func ExtractJSONSnippets(input string) []string {
	var snippets []string

	for i := 0; i < len(input); i++ {
		if input[i] == '{' {
			if extracted := extractBalancedBraces(input[i:], '{', '}'); extracted != "" {
				snippets = append(snippets, extracted)
				i += len(extracted) - 1
			}
		} else if input[i] == '[' {
			if extracted := extractBalancedBraces(input[i:], '[', ']'); extracted != "" {
				snippets = append(snippets, extracted)
				i += len(extracted) - 1
			}
		}
	}

	return snippets
}
