package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsift/clearsift/internal/finding"
)

func sampleFilterReport() finding.FilterReport {
	return finding.FilterReport{
		Filtered: []finding.Finding{
			{File: "auth.go", Line: 10, Severity: "HIGH", Category: "security",
				Title: "SQL injection", Description: "query built from user input", Confidence: 0.9},
			{File: "cache.go", Line: 3, Severity: "LOW", Category: "performance",
				Title: "Repeated allocation", Description: "slice grows in a loop"},
		},
		Excluded: []finding.ExclusionRecord{
			{Finding: finding.Finding{File: "README.md", Title: "doc issue"},
				Reason: "Excluded: finding in markdown documentation file",
				Stage:  finding.StageRule},
		},
		Summary: finding.AnalysisSummary{
			TotalFindings: 3,
			KeptFindings:  2,
			RuleExcluded:  1,
		},
	}
}

func TestNewAuditReport(t *testing.T) {
	report := NewAuditReport("acme/api", 7, "abc123", 5, sampleFilterReport())

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 7, report.PRNumber)
	assert.Equal(t, "acme/api", report.Repo)
	assert.Equal(t, "abc123", report.Commit)

	assert.Equal(t, 5, report.AnalysisSummary.FilesReviewed)
	assert.Equal(t, 1, report.AnalysisSummary.HighSeverity)
	assert.Equal(t, 1, report.AnalysisSummary.LowSeverity)
	assert.True(t, report.AnalysisSummary.ReviewCompleted)

	assert.Equal(t, 3, report.FilteringSummary.TotalOriginalFindings)
	assert.Equal(t, 2, report.FilteringSummary.KeptFindings)
	assert.Equal(t, 1, report.FilteringSummary.ExcludedFindings)
	require.Len(t, report.FilteringSummary.ExcludedFindingsDetails, 1)

	assert.Equal(t, 1, report.HighSeverityCount())
}

func TestNewAuditReportEmptyRun(t *testing.T) {
	report := NewAuditReport("acme/api", 7, "", 0, finding.FilterReport{})

	assert.NotNil(t, report.Findings, "findings must serialize as [], not null")
	assert.NotNil(t, report.FilteringSummary.ExcludedFindingsDetails)
	assert.Zero(t, report.HighSeverityCount())
}

func TestJSONWriterRoundTrip(t *testing.T) {
	report := NewAuditReport("acme/api", 7, "abc123", 5, sampleFilterReport())

	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(7), decoded["pr_number"])
	assert.Contains(t, decoded, "findings")
	assert.Contains(t, decoded, "filtering_summary")

	fs := decoded["filtering_summary"].(map[string]any)
	assert.Equal(t, float64(3), fs["total_original_findings"])
	details := fs["excluded_findings_details"].([]any)
	require.Len(t, details, 1)
	excl := details[0].(map[string]any)
	assert.Equal(t, "rule", excl["exclusion_stage"])
}

func TestTextWriter(t *testing.T) {
	report := NewAuditReport("acme/api", 7, "abc123", 5, sampleFilterReport())

	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "acme/api #7")
	assert.Contains(t, out, "SQL injection")
	assert.Contains(t, out, "auth.go:10")
	assert.Contains(t, out, "Filtered out: 1 of 3")
}

func TestTextWriterNoFindings(t *testing.T) {
	report := NewAuditReport("acme/api", 7, "", 0, finding.FilterReport{})

	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, report))
	assert.Contains(t, buf.String(), "Looks good")
}

func TestGetWriter(t *testing.T) {
	w, err := GetWriter("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONWriter{}, w)

	w, err = GetWriter("text")
	require.NoError(t, err)
	assert.IsType(t, &TextWriter{}, w)

	_, err = GetWriter("sarif")
	assert.Error(t, err)
}
