package output

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/clearsift/clearsift/internal/finding"
)

// AuditSummary is the reviewer-facing accounting of one audit run, counted
// over the kept findings only.
type AuditSummary struct {
	FilesReviewed   int  `json:"files_reviewed"`
	HighSeverity    int  `json:"high_severity"`
	MediumSeverity  int  `json:"medium_severity"`
	LowSeverity     int  `json:"low_severity"`
	ReviewCompleted bool `json:"review_completed"`
}

// FilteringSummary records what the filter did, including full details of
// everything it excluded.
type FilteringSummary struct {
	TotalOriginalFindings   int                       `json:"total_original_findings"`
	ExcludedFindings        int                       `json:"excluded_findings"`
	KeptFindings            int                       `json:"kept_findings"`
	FilterAnalysis          finding.AnalysisSummary   `json:"filter_analysis"`
	ExcludedFindingsDetails []finding.ExclusionRecord `json:"excluded_findings_details"`
}

// AuditReport is the final output of one audit run.
type AuditReport struct {
	RunID            string            `json:"run_id"`
	PRNumber         int               `json:"pr_number"`
	Repo             string            `json:"repo"`
	Commit           string            `json:"commit,omitempty"`
	Findings         []finding.Finding `json:"findings"`
	AnalysisSummary  AuditSummary      `json:"analysis_summary"`
	FilteringSummary FilteringSummary  `json:"filtering_summary"`
}

// NewAuditReport assembles the report from a filter run. filesReviewed
// comes from the reviewer's own summary; the severity counts are recomputed
// over the kept findings.
func NewAuditReport(repo string, prNumber int, commit string, filesReviewed int, report finding.FilterReport) *AuditReport {
	counts := finding.ComputeSeverityCounts(report.Filtered)
	findings := report.Filtered
	if findings == nil {
		findings = []finding.Finding{}
	}
	excluded := report.Excluded
	if excluded == nil {
		excluded = []finding.ExclusionRecord{}
	}

	return &AuditReport{
		RunID:    uuid.NewString(),
		PRNumber: prNumber,
		Repo:     repo,
		Commit:   commit,
		Findings: findings,
		AnalysisSummary: AuditSummary{
			FilesReviewed:   filesReviewed,
			HighSeverity:    counts.High,
			MediumSeverity:  counts.Medium,
			LowSeverity:     counts.Low,
			ReviewCompleted: true,
		},
		FilteringSummary: FilteringSummary{
			TotalOriginalFindings:   report.Summary.TotalFindings,
			ExcludedFindings:        len(excluded),
			KeptFindings:            len(findings),
			FilterAnalysis:          report.Summary,
			ExcludedFindingsDetails: excluded,
		},
	}
}

// HighSeverityCount returns the number of kept HIGH findings.
func (r *AuditReport) HighSeverityCount() int {
	return r.AnalysisSummary.HighSeverity
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *AuditReport) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *AuditReport, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}
