package prompts

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearsift/clearsift/internal/finding"
)

func sampleInput() ReviewInput {
	return ReviewInput{
		Number:       123,
		Title:        "Test PR",
		Body:         "Test description",
		Author:       "testuser",
		RepoFullName: "owner/repo",
		ChangedFiles: 1,
		Additions:    10,
		Deletions:    5,
		Files:        []string{"test.py"},
	}
}

func TestUnifiedReview_EmbeddedDiff(t *testing.T) {
	diff := "diff --git a/test.py b/test.py\n+added line"
	prompt := UnifiedReview(sampleInput(), diff, ReviewOptions{IncludeDiff: true})

	assert.Contains(t, prompt, "PR #123")
	assert.Contains(t, prompt, "owner/repo")
	assert.Contains(t, prompt, "- test.py")
	assert.Contains(t, prompt, "+added line")
	assert.Contains(t, strings.ToLower(prompt), "security")
	assert.Contains(t, prompt, `"analysis_summary"`)
	assert.NotContains(t, prompt, "FILE READING INSTRUCTIONS")
}

func TestUnifiedReview_AgenticMode(t *testing.T) {
	prompt := UnifiedReview(sampleInput(), "", ReviewOptions{IncludeDiff: false})
	assert.Contains(t, prompt, "FILE READING INSTRUCTIONS")
	assert.NotContains(t, prompt, "PR DIFF CONTENT")
}

func TestUnifiedReview_CustomInstructions(t *testing.T) {
	prompt := UnifiedReview(sampleInput(), "", ReviewOptions{
		CustomReviewInstructions:   "Focus on the billing module.",
		CustomSecurityInstructions: "Treat all YAML loading as hostile.",
	})
	assert.Contains(t, prompt, "Focus on the billing module.")
	assert.Contains(t, prompt, "Treat all YAML loading as hostile.")
}

func TestAdjudication_DefaultInstructions(t *testing.T) {
	pr := &finding.PRContext{RepoName: "owner/repo", PRNumber: 7, Title: "Fix auth"}
	prompt := Adjudication(`{"title":"x"}`, pr, "", "")

	assert.Contains(t, prompt, "HARD EXCLUSIONS")
	assert.Contains(t, prompt, "PR #7")
	assert.Contains(t, prompt, `"keep_finding"`)
	assert.Contains(t, prompt, `{"title":"x"}`)
}

func TestAdjudication_CustomInstructionsReplaceDefaults(t *testing.T) {
	prompt := Adjudication("{}", nil, "", "ONLY KEEP injection findings.")
	assert.Contains(t, prompt, "ONLY KEEP injection findings.")
	assert.NotContains(t, prompt, "HARD EXCLUSIONS")
}

func TestAdjudication_TruncatesLongDescription(t *testing.T) {
	pr := &finding.PRContext{Description: strings.Repeat("d", 2000)}
	prompt := Adjudication("{}", pr, "", "")
	assert.Contains(t, prompt, strings.Repeat("d", 500)+"...")
	assert.NotContains(t, prompt, strings.Repeat("d", 501))
}

func TestFileContentSection(t *testing.T) {
	assert.Equal(t, "", FileContentSection("", "x", nil))

	s := FileContentSection("main.go", "package main", nil)
	assert.Contains(t, s, "File Content (main.go)")
	assert.Contains(t, s, "package main")

	s = FileContentSection("gone.go", "", errors.New("file not found: gone.go"))
	assert.Contains(t, s, "Error reading file")
	assert.Contains(t, s, "file not found")
}
