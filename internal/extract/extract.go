package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// excerptLimit bounds how much of the original text a failure diagnostic may
// quote back.
const excerptLimit = 200

// Error reports that no JSON value could be recovered from a text. It is
// returned as a value, never panicked, and quotes at most excerptLimit bytes
// of the input.
type Error struct {
	Excerpt string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Invalid JSON response: no JSON value found in %q", e.Excerpt)
}

// Extract recovers a single JSON value from arbitrary model output.
//
// Strategies are applied in order, stopping at the first success:
//  1. parse the whole text directly,
//  2. strip a surrounding fenced code block and parse again,
//  3. scan for balanced {...} or [...] substrings and parse each candidate
//     in positional order.
//
// The result is deterministic: identical input always yields identical
// output, and the first positionally-occurring candidate that parses wins.
func Extract(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	if isJSON(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	if unfenced, ok := stripFence(trimmed); ok && isJSON(unfenced) {
		return json.RawMessage(unfenced), nil
	}

	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c != '{' && c != '[' {
			continue
		}
		end := balancedEnd(trimmed, i)
		if end < 0 {
			continue
		}
		candidate := trimmed[i : end+1]
		if isJSON(candidate) {
			return json.RawMessage(candidate), nil
		}
		// A balanced candidate that fails to parse does not end the scan;
		// later candidates may still be valid.
	}

	return nil, &Error{Excerpt: excerpt(text)}
}

// ExtractInto extracts a JSON value from text and unmarshals it into v.
func ExtractInto(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding extracted JSON: %w", err)
	}
	return nil
}

// isJSON reports whether s is exactly one valid JSON object or array.
// Primitive values are rejected: the extractor's callers always expect a
// structured value, and accepting bare numbers would make stray digits in
// prose parse "successfully".
func isJSON(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return false
	}
	if s[0] != '{' && s[0] != '[' {
		return false
	}
	return json.Valid([]byte(s))
}

// stripFence removes a leading ``` line (with optional language tag) and a
// trailing ``` line.
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return "", false
	}
	body := lines[1:]
	if strings.TrimSpace(body[len(body)-1]) == "```" {
		body = body[:len(body)-1]
	}
	return strings.TrimSpace(strings.Join(body, "\n")), true
}

// balancedEnd returns the index of the bracket closing the one at start, or
// -1 if the text ends first. Brackets inside quoted strings are ignored and
// escape sequences are respected.
func balancedEnd(s string, start int) int {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1 // mismatched nesting, not a candidate
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > excerptLimit {
		return s[:excerptLimit] + "..."
	}
	return s
}
