package finding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	f := Finding{Severity: " high ", Category: "Security", Title: "x"}
	n := f.Normalize()

	assert.Equal(t, SeverityHigh, n.Severity)
	assert.Equal(t, CategorySecurity, n.Category)
	assert.Equal(t, ReviewTypeSecurity, n.ReviewType)

	// Original is untouched.
	assert.Equal(t, Severity(" high "), f.Severity)
}

func TestNormalizeGeneralReviewType(t *testing.T) {
	n := Finding{Severity: "medium", Category: "PERFORMANCE", Title: "x"}.Normalize()
	assert.Equal(t, ReviewTypeGeneral, n.ReviewType)
}

func TestNormalizeKeepsExistingReviewType(t *testing.T) {
	n := Finding{Category: "security", ReviewType: "general", Title: "x"}.Normalize()
	assert.Equal(t, "general", n.ReviewType)
}

func TestNormalizeUnknownValuesPassThrough(t *testing.T) {
	n := Finding{Severity: "Critical", Category: "Style", Title: "x"}.Normalize()
	assert.Equal(t, Severity("CRITICAL"), n.Severity)
	assert.Equal(t, Category("style"), n.Category)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Finding
		wantErr bool
	}{
		{"title only", Finding{Title: "x"}, false},
		{"description only", Finding{Description: "y"}, false},
		{"neither", Finding{File: "a.go", Severity: "HIGH"}, true},
		{"whitespace title", Finding{Title: "   "}, true},
		{"valid suggestion range", Finding{Title: "x", Suggestion: "fix", SuggestionStartLine: 3, SuggestionEndLine: 5}, false},
		{"single line suggestion", Finding{Title: "x", Suggestion: "fix", SuggestionStartLine: 3, SuggestionEndLine: 3}, false},
		{"inverted suggestion range", Finding{Title: "x", Suggestion: "fix", SuggestionStartLine: 5, SuggestionEndLine: 3}, true},
		{"negative suggestion line", Finding{Title: "x", Suggestion: "fix", SuggestionStartLine: -1, SuggestionEndLine: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	data := []byte(`[
		{"file": "a.go", "line": 1, "severity": "high", "category": "Security", "title": "injection"},
		{"file": "b.go", "severity": "LOW", "category": "testing", "description": "missing test"}
	]`)

	findings, err := ParseList(data)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, SeverityHigh, findings[0].Severity)
	assert.Equal(t, "security", findings[0].ReviewType)
	assert.Equal(t, "general", findings[1].ReviewType)
}

func TestParseListRejectsInvalidWithIndex(t *testing.T) {
	data := []byte(`[
		{"title": "fine"},
		{"file": "b.go", "severity": "LOW"}
	]`)

	_, err := ParseList(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finding 1")
}

func TestParseListMalformedJSON(t *testing.T) {
	_, err := ParseList([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestAdjudicationResultReason(t *testing.T) {
	reason := "fixture code"
	r := AdjudicationResult{ExclusionReason: &reason, Justification: "other"}
	assert.Equal(t, "fixture code", r.Reason())

	empty := "  "
	r = AdjudicationResult{ExclusionReason: &empty, Justification: "fallback"}
	assert.Equal(t, "fallback", r.Reason())

	r = AdjudicationResult{Justification: "fallback"}
	assert.Equal(t, "fallback", r.Reason())
}

func TestComputeSeverityCounts(t *testing.T) {
	counts := ComputeSeverityCounts([]Finding{
		{Severity: "HIGH"}, {Severity: "high"}, {Severity: "MEDIUM"},
		{Severity: "low"}, {Severity: "unknown"},
	})
	assert.Equal(t, SeverityCounts{High: 2, Medium: 1, Low: 1}, counts)
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityRank(SeverityHigh), SeverityRank(SeverityMedium))
	assert.Greater(t, SeverityRank(SeverityMedium), SeverityRank(SeverityLow))
	assert.Zero(t, SeverityRank("CRITICAL"))
}

func TestExclusionRecordSerialization(t *testing.T) {
	rec := ExclusionRecord{
		Finding: Finding{File: "README.md", Title: "doc issue", Severity: "LOW"},
		Reason:  "Excluded: finding in markdown documentation file",
		Stage:   StageRule,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "README.md", decoded["file"])
	assert.Equal(t, "Excluded: finding in markdown documentation file", decoded["exclusion_reason"])
	assert.Equal(t, "rule", decoded["exclusion_stage"])
}
