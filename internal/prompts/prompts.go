package prompts

import (
	"fmt"
	"strings"

	"github.com/clearsift/clearsift/internal/finding"
)

// ReviewInput is the PR material the review prompt is assembled from.
type ReviewInput struct {
	Number       int
	Title        string
	Body         string
	Author       string
	RepoFullName string
	ChangedFiles int
	Additions    int
	Deletions    int
	Files        []string
}

// ReviewOptions customize prompt assembly.
type ReviewOptions struct {
	// IncludeDiff embeds the unified diff; when false the agent is told to
	// read files itself.
	IncludeDiff bool
	// CustomReviewInstructions are appended after the quality categories.
	CustomReviewInstructions string
	// CustomSecurityInstructions are appended after the security categories.
	CustomSecurityInstructions string
}

// UnifiedReview builds the single-pass quality + security review prompt fed
// to the external reviewer agent.
func UnifiedReview(in ReviewInput, diff string, opts ReviewOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a senior engineer conducting a comprehensive code review of GitHub PR #%d: %q\n\n", in.Number, in.Title)
	fmt.Fprintf(&b, "CONTEXT:\n- Repository: %s\n- Author: %s\n- Files changed: %d\n- Lines added: %d\n- Lines deleted: %d\n\n",
		in.RepoFullName, in.Author, in.ChangedFiles, in.Additions, in.Deletions)

	b.WriteString("Files modified:\n")
	for _, f := range in.Files {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	if opts.IncludeDiff && diff != "" {
		b.WriteString("\nPR DIFF CONTENT:\n```\n")
		b.WriteString(diff)
		b.WriteString("\n```\n\nReview the complete diff above. This contains all code changes in the PR.\n")
	} else {
		b.WriteString(agenticFileInstructions)
	}

	b.WriteString(reviewObjective)
	b.WriteString(qualityCategories)
	if opts.CustomReviewInstructions != "" {
		b.WriteString("\n")
		b.WriteString(opts.CustomReviewInstructions)
		b.WriteString("\n")
	}
	b.WriteString(securityCategories)
	if opts.CustomSecurityInstructions != "" {
		b.WriteString("\n")
		b.WriteString(opts.CustomSecurityInstructions)
		b.WriteString("\n")
	}
	b.WriteString(reviewOutputFormat)

	return b.String()
}

const agenticFileInstructions = `

IMPORTANT - FILE READING INSTRUCTIONS:
You have access to the repository files. For each file listed above, use the Read tool to examine the changes.
Focus on the files that are most likely to contain issues based on the PR context.
`

const reviewObjective = `
OBJECTIVE:
Perform a focused, high-signal code review to identify HIGH-CONFIDENCE issues introduced by this PR. This covers both code quality (correctness, reliability, performance, maintainability, testing) AND security. Do not comment on pre-existing issues or purely stylistic preferences.

CRITICAL INSTRUCTIONS:
1. MINIMIZE FALSE POSITIVES: Only flag issues where you're >80% confident they are real and impactful
2. AVOID NOISE: Skip style nits, subjective preferences, or low-impact suggestions
3. FOCUS ON IMPACT: Prioritize bugs, regressions, data loss, significant performance problems, or security vulnerabilities
4. SCOPE: Only evaluate code introduced or modified in this PR. Ignore unrelated existing issues
`

const qualityCategories = `
CODE QUALITY CATEGORIES:

**Correctness & Logic:** incorrect business logic, edge-case or null handling regressions, broken invariants, missing validations leading to bad state.

**Reliability & Resilience:** races or concurrency bugs introduced by changes, resource leaks, missing timeouts or retries in critical paths, partial-failure or idempotency issues.

**Performance & Scalability:** algorithmic regressions in hot paths, N+1 query patterns, excessive synchronous I/O, unbounded memory growth.

**Maintainability & Design:** changes that significantly increase complexity, tight coupling, misleading APIs or brittle contracts.

**Testing & Observability:** missing tests for high-risk changes, flaky behavior from nondeterminism, no logging around new critical behavior.
`

const securityCategories = `
SECURITY CATEGORIES:

**Input Validation:** SQL/command/NoSQL/template injection, XXE, path traversal in file operations.

**Authentication & Authorization:** auth bypass logic, privilege escalation paths, session or JWT flaws.

**Crypto & Secrets:** hardcoded keys or tokens, weak algorithms, randomness misuse, certificate validation bypasses.

**Injection & Code Execution:** RCE via deserialization, eval injection, XSS (reflected, stored, DOM-based).

**Data Exposure:** sensitive data logging, PII handling violations, endpoint data leakage.

EXCLUSIONS - DO NOT REPORT:
- Denial of Service (DOS) vulnerabilities or resource exhaustion attacks
- Secrets/credentials stored on disk (these are managed separately)
- Rate limiting concerns or service overload scenarios
`

const reviewOutputFormat = `
REQUIRED OUTPUT FORMAT:

You MUST output your findings as structured JSON with this exact schema:

{
  "findings": [
    {
      "file": "path/to/file.py",
      "line": 42,
      "severity": "HIGH",
      "category": "correctness|reliability|performance|maintainability|testing|security",
      "title": "Short summary of the issue",
      "description": "What is wrong and where it happens",
      "impact": "Concrete impact or failure mode (use exploit scenario for security issues)",
      "recommendation": "Actionable fix or mitigation",
      "suggestion": "Exact replacement code (optional). Must replace lines from suggestion_start_line to suggestion_end_line.",
      "suggestion_start_line": 42,
      "suggestion_end_line": 44,
      "confidence": 0.95
    }
  ],
  "analysis_summary": {
    "files_reviewed": 8,
    "high_severity": 1,
    "medium_severity": 0,
    "low_severity": 0,
    "review_completed": true
  }
}

SEVERITY GUIDELINES:
- HIGH: likely production bug, data loss, significant regression, or directly exploitable vulnerability
- MEDIUM: real issue with limited scope or specific triggering conditions
- LOW: minor but real issue; use sparingly and only if clearly actionable

Focus on HIGH and MEDIUM findings only. Better to miss some theoretical issues than flood the report with false positives.

Your final reply must contain the JSON and nothing else. You should not reply again after outputting the JSON.
`

// AdjudicationSystem is the system prompt for per-finding adjudication.
const AdjudicationSystem = `You are a senior code reviewer evaluating findings from an automated review tool.
Your task is to filter out false positives and low-signal findings to reduce noise.
You must maintain high recall (don't miss real issues) while improving precision.

Respond ONLY with valid JSON in the exact format specified in the user prompt.
Do not include explanatory text, markdown formatting, or code blocks.`

// defaultFilteringInstructions is the built-in adjudication policy, used
// when the caller supplies no custom instructions.
const defaultFilteringInstructions = `HARD EXCLUSIONS - Automatically exclude findings matching these patterns:
1. Purely stylistic or formatting preferences (naming, spacing, comment wording) with no functional impact.
2. Documentation-only issues or typos that do not affect behavior or safety.
3. Refactor suggestions without a concrete bug, regression, or risk reduction.
4. Hypothetical issues without a clear failure mode or reproducible impact.

SECURITY-SPECIFIC EXCLUSIONS (apply ONLY if the category indicates security):
1. Denial of Service (DOS) or resource exhaustion concerns without concrete exploitability.
2. Rate limiting recommendations without a specific abuse path.
3. Memory safety issues in memory-safe languages (e.g., Rust).

SIGNAL QUALITY CRITERIA - For remaining findings, assess:
1. Is there a concrete failure mode or exploit path?
2. Is the impact meaningful (bug, regression, security risk, data loss)?
3. Are there specific code locations and reproduction steps?
4. Would this be actionable for the team?

PRECEDENTS -
1. Keep findings that indicate a likely production issue, security vulnerability, or significant regression.
2. Only include MEDIUM findings if they are obvious and concrete issues.
3. For security findings, prefer concrete exploitability and avoid theoretical best-practice gaps.`

// Adjudication builds the user prompt asking the model to judge one finding.
// findingJSON is the serialized finding; fileContent is the section built by
// FileContentSection (may be empty); customInstructions overrides the
// default filtering policy when non-empty.
func Adjudication(findingJSON string, pr *finding.PRContext, fileContent, customInstructions string) string {
	var b strings.Builder

	b.WriteString("I need you to analyze a code review finding from an automated audit and determine if it's a false positive.\n")

	if pr != nil {
		desc := pr.Description
		if desc == "" {
			desc = "No description"
		}
		if len(desc) > 500 {
			desc = desc[:500] + "..."
		}
		fmt.Fprintf(&b, "\nPR Context:\n- Repository: %s\n- PR #%d\n- Title: %s\n- Description: %s\n",
			pr.RepoName, pr.PRNumber, pr.Title, desc)
	}

	b.WriteString("\n")
	if customInstructions != "" {
		b.WriteString(customInstructions)
	} else {
		b.WriteString(defaultFilteringInstructions)
	}

	b.WriteString(`

Assign a confidence score from 1-10:
- 1-3: Low confidence, likely false positive or noise
- 4-6: Medium confidence, needs investigation
- 7-10: High confidence, likely true issue

Finding to analyze:
` + "```json\n" + findingJSON + "\n```\n")

	if fileContent != "" {
		b.WriteString(fileContent)
	}

	b.WriteString(`
Respond with EXACTLY this JSON structure (no markdown, no code blocks):
{
  "original_severity": "HIGH",
  "confidence_score": 8,
  "keep_finding": true,
  "exclusion_reason": null,
  "justification": "Clear off-by-one error that causes data loss on edge cases"
}`)

	return b.String()
}

// FileContentSection formats a file's content for embedding in the
// adjudication prompt. When the read failed, the error text is embedded in
// place of content so the adjudication can proceed.
func FileContentSection(path, content string, readErr error) string {
	if path == "" {
		return ""
	}
	if readErr != nil {
		return fmt.Sprintf("\nFile Content (%s): Error reading file - %s\n", path, readErr)
	}
	return fmt.Sprintf("\nFile Content (%s):\n```\n%s\n```\n", path, content)
}
