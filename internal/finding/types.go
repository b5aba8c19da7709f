package finding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the reviewer-assigned severity, normalized to upper case.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category is the reviewer-assigned finding category, normalized to lower case.
type Category string

const (
	CategoryCorrectness     Category = "correctness"
	CategoryReliability     Category = "reliability"
	CategoryPerformance     Category = "performance"
	CategoryMaintainability Category = "maintainability"
	CategoryTesting         Category = "testing"
	CategorySecurity        Category = "security"
)

// Review types attached at ingestion based on category.
const (
	ReviewTypeSecurity = "security"
	ReviewTypeGeneral  = "general"
)

// Finding is one observation produced by the external reviewer. The filter
// pipeline treats it as immutable: the only fields it ever sets are
// ReviewType (at ingestion) and, on exclusion, the reason paired next to it
// in an ExclusionRecord.
type Finding struct {
	File                string   `json:"file,omitempty"`
	Line                int      `json:"line,omitempty"`
	Severity            Severity `json:"severity"`
	Category            Category `json:"category"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Impact              string   `json:"impact,omitempty"`
	Recommendation      string   `json:"recommendation,omitempty"`
	Suggestion          string   `json:"suggestion,omitempty"`
	SuggestionStartLine int      `json:"suggestion_start_line,omitempty"`
	SuggestionEndLine   int      `json:"suggestion_end_line,omitempty"`
	Confidence          float64  `json:"confidence,omitempty"`
	ReviewType          string   `json:"review_type,omitempty"`
}

// Normalize returns a copy with severity upper-cased, category lower-cased,
// and the review type tag filled in. Unknown severity or category values pass
// through with only their case normalized.
func (f Finding) Normalize() Finding {
	f.Severity = Severity(strings.ToUpper(strings.TrimSpace(string(f.Severity))))
	f.Category = Category(strings.ToLower(strings.TrimSpace(string(f.Category))))
	if f.ReviewType == "" {
		if f.Category == CategorySecurity {
			f.ReviewType = ReviewTypeSecurity
		} else {
			f.ReviewType = ReviewTypeGeneral
		}
	}
	return f
}

// Validate checks the fields required at the ingestion boundary. A finding
// needs at least a title or a description to be adjudicable, and a suggestion
// must carry a coherent inclusive line range.
func (f Finding) Validate() error {
	if strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.Description) == "" {
		return fmt.Errorf("finding has neither title nor description")
	}
	if f.Suggestion != "" {
		if f.SuggestionStartLine < 0 || f.SuggestionEndLine < 0 {
			return fmt.Errorf("suggestion line range must not be negative")
		}
		if f.SuggestionStartLine > f.SuggestionEndLine {
			return fmt.Errorf("suggestion line range %d-%d is inverted",
				f.SuggestionStartLine, f.SuggestionEndLine)
		}
	}
	return nil
}

// ParseList decodes and normalizes a JSON array of findings. Records that
// fail validation are rejected with an error naming their position rather
// than being passed through in an ambiguous shape.
func ParseList(data []byte) ([]Finding, error) {
	var raw []Finding
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing findings list: %w", err)
	}
	findings := make([]Finding, 0, len(raw))
	for i, f := range raw {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		findings = append(findings, f.Normalize())
	}
	return findings, nil
}

// Stage identifies the pipeline phase that produced an exclusion.
type Stage string

const (
	StageRule         Stage = "rule"
	StageAdjudication Stage = "adjudication"
	StagePath         Stage = "path"
)

// ExclusionRecord pairs an excluded finding with the reason and the stage
// that decided it. It exists only for the duration of a run.
type ExclusionRecord struct {
	Finding
	Reason string `json:"exclusion_reason"`
	Stage  Stage  `json:"exclusion_stage"`
}

// AdjudicationResult is the decoded reply of one adjudication attempt.
type AdjudicationResult struct {
	OriginalSeverity string  `json:"original_severity"`
	ConfidenceScore  int     `json:"confidence_score"`
	KeepFinding      bool    `json:"keep_finding"`
	ExclusionReason  *string `json:"exclusion_reason"`
	Justification    string  `json:"justification"`
}

// Reason returns the exclusion reason, falling back to the justification
// when the model left the reason null or empty.
func (r AdjudicationResult) Reason() string {
	if r.ExclusionReason != nil && strings.TrimSpace(*r.ExclusionReason) != "" {
		return *r.ExclusionReason
	}
	return r.Justification
}

// PRContext carries opaque pull-request metadata embedded in adjudication
// requests. It is never parsed by the filter pipeline.
type PRContext struct {
	RepoName    string `json:"repo_name"`
	PRNumber    int    `json:"pr_number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// ComputeSeverityCounts tallies findings by normalized severity.
func ComputeSeverityCounts(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch Severity(strings.ToUpper(string(f.Severity))) {
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		}
	}
	return c
}

// AnalysisSummary aggregates per-stage and per-severity statistics for one
// filter run.
type AnalysisSummary struct {
	TotalFindings        int            `json:"total_findings"`
	KeptFindings         int            `json:"kept_findings"`
	RuleExcluded         int            `json:"rule_excluded_count"`
	AdjudicationExcluded int            `json:"adjudication_excluded_count"`
	PathExcluded         int            `json:"directory_excluded_count"`
	AdjudicationFailures int            `json:"adjudication_failures"`
	AdjudicationSkipped  bool           `json:"adjudication_skipped"`
	Severity             SeverityCounts `json:"severity_counts"`
}

// FilterReport is the aggregate output of a filter run.
//
// Invariant: len(Filtered) + len(Excluded) equals the number of input
// findings; no finding is ever silently dropped.
type FilterReport struct {
	Filtered []Finding         `json:"filtered_findings"`
	Excluded []ExclusionRecord `json:"excluded_findings"`
	Summary  AnalysisSummary   `json:"analysis_summary"`
}
