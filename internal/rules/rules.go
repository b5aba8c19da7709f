package rules

import (
	"strings"

	"github.com/clearsift/clearsift/internal/finding"
)

// docExtension is the documentation suffix that excludes a finding outright,
// matched case-insensitively.
const docExtension = ".md"

// detector is one ordered phrase rule over a finding's description.
type detector struct {
	reason string
	match  func(desc string) bool
}

// Engine applies the hard-exclusion rules: cheap, deterministic checks that
// drop known-low-value finding categories before any model is consulted.
// Evaluate is pure and idempotent; an Engine is safe for concurrent use.
type Engine struct {
	detectors []detector
}

// NewEngine builds the engine with the built-in rule set.
func NewEngine() *Engine {
	return &Engine{
		detectors: []detector{
			{
				reason: "Excluded: DOS/resource exhaustion finding without concrete exploitability",
				match: func(desc string) bool {
					return strings.Contains(desc, "denial of service") ||
						containsWord(desc, "dos") ||
						strings.Contains(desc, "resource exhaustion") ||
						(strings.Contains(desc, "infinite loop") && strings.Contains(desc, "exhaustion"))
				},
			},
			{
				reason: "Excluded: rate limiting recommendation without a specific abuse path",
				match: func(desc string) bool {
					return strings.Contains(desc, "rate limit") ||
						strings.Contains(desc, "rate-limit")
				},
			},
			{
				reason: "Excluded: open redirect finding",
				match: func(desc string) bool {
					return strings.Contains(desc, "open redirect") ||
						strings.Contains(desc, "unvalidated redirect") ||
						strings.Contains(desc, "redirect attack")
				},
			},
		},
	}
}

// Evaluate returns the exclusion reason for a finding, or false when no hard
// rule applies. First match wins: the documentation-file check runs before
// the phrase detectors and fires regardless of category, security included.
func (e *Engine) Evaluate(f finding.Finding) (string, bool) {
	if hasDocSuffix(f.File) {
		return "Excluded: finding in markdown documentation file", true
	}

	desc := strings.ToLower(f.Description)
	for _, d := range e.detectors {
		if d.match(desc) {
			return d.reason, true
		}
	}
	return "", false
}

func hasDocSuffix(file string) bool {
	return file != "" && strings.HasSuffix(strings.ToLower(file), docExtension)
}

// containsWord reports whether s contains w delimited by non-letter
// boundaries. "dos" must match "DOS attack" but not "windows" or "dosage".
func containsWord(s, w string) bool {
	for i := 0; i+len(w) <= len(s); i++ {
		if s[i:i+len(w)] != w {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		if end := i + len(w); end < len(s) && isWordByte(s[end]) {
			continue
		}
		return true
	}
	return false
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
