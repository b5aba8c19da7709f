package adjudicate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsift/clearsift/internal/finding"
)

// fakeCompleter returns canned replies in order, recording prompts.
type fakeCompleter struct {
	replies []reply
	calls   int
	prompts []string
}

type reply struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(_ context.Context, req Request) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	if f.calls >= len(f.replies) {
		return "", errors.New("unexpected extra call")
	}
	r := f.replies[f.calls]
	f.calls++
	return r.text, r.err
}

type fakeReader struct {
	content string
	err     error
}

func (f fakeReader) Read(string) (string, error) { return f.content, f.err }

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:    maxRetries,
		RateLimitUnit: time.Millisecond,
		RateLimitCap:  time.Millisecond,
		TimeoutDelay:  time.Millisecond,
		OtherDelay:    time.Millisecond,
	}
}

func sampleFinding() finding.Finding {
	return finding.Finding{
		File:        "handlers/auth.go",
		Line:        42,
		Severity:    "HIGH",
		Category:    "security",
		Title:       "SQL injection in login handler",
		Description: "User input is concatenated into the query.",
	}
}

func TestAdjudicateKeep(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: `{"original_severity":"HIGH","confidence_score":9,"keep_finding":true,"exclusion_reason":null,"justification":"Real injection path."}`},
	}}
	a := New(fc, nil, "", fastPolicy(3))

	res, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.NoError(t, err)
	assert.True(t, res.KeepFinding)
	assert.Equal(t, 9, res.ConfidenceScore)
	assert.Equal(t, 1, fc.calls)
}

func TestAdjudicateExclude(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: "The finding is a false positive.\n\n```json\n" +
			`{"original_severity":"MEDIUM","confidence_score":8,"keep_finding":false,"exclusion_reason":"Input is validated upstream.","justification":"Sanitized at the API boundary."}` +
			"\n```"},
	}}
	a := New(fc, nil, "", fastPolicy(3))

	res, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.NoError(t, err)
	assert.False(t, res.KeepFinding)
	assert.Equal(t, "Input is validated upstream.", res.Reason())
}

func TestAdjudicateReasonFallsBackToJustification(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: `{"keep_finding":false,"exclusion_reason":null,"justification":"Test fixture code."}`},
	}}
	a := New(fc, nil, "", fastPolicy(0))

	res, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Test fixture code.", res.Reason())
}

func TestAdjudicateRetriesDecodeFailure(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: "I cannot judge this finding."},
		{text: `{"keep_finding":true,"confidence_score":7,"justification":"ok"}`},
	}}
	a := New(fc, nil, "", fastPolicy(3))

	res, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.NoError(t, err)
	assert.True(t, res.KeepFinding)
	assert.Equal(t, 2, fc.calls)
}

func TestAdjudicateExhaustsBudgetOnBadReplies(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: "no json here"},
		{text: "still no json"},
		{text: "nope"},
	}}
	a := New(fc, nil, "", fastPolicy(2))

	_, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.Error(t, err)
	assert.Equal(t, 3, fc.calls)
	assert.Contains(t, err.Error(), "API call failed after 3 attempts")
	assert.Contains(t, err.Error(), "Invalid JSON response")
}

func TestAdjudicateMixedTransportAndDecodeFailures(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{err: errors.New("rate limit exceeded (429)")},
		{text: "garbled"},
		{text: `{"keep_finding":false,"exclusion_reason":"dup","justification":"dup"}`},
	}}
	a := New(fc, nil, "", fastPolicy(3))

	res, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.NoError(t, err)
	assert.False(t, res.KeepFinding)
	assert.Equal(t, 3, fc.calls)
}

func TestAdjudicatePromptEmbedsFindingAndFile(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: `{"keep_finding":true,"justification":"ok"}`},
	}}
	a := New(fc, fakeReader{content: "func Login() {}\n"}, "", fastPolicy(0))

	pr := &finding.PRContext{RepoName: "acme/api", PRNumber: 7, Title: "Add login"}
	_, err := a.Adjudicate(context.Background(), sampleFinding(), pr)
	require.NoError(t, err)

	require.Len(t, fc.prompts, 1)
	p := fc.prompts[0]
	assert.Contains(t, p, "SQL injection in login handler")
	assert.Contains(t, p, "acme/api")
	assert.Contains(t, p, "func Login() {}")
}

func TestAdjudicatePromptEmbedsReadErrorInPlace(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: `{"keep_finding":true,"justification":"ok"}`},
	}}
	a := New(fc, fakeReader{err: errors.New("file not found: handlers/auth.go")}, "", fastPolicy(0))

	_, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.NoError(t, err)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "file not found")
}

func TestAdjudicateCustomInstructionsReplacePolicy(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{
		{text: `{"keep_finding":true,"justification":"ok"}`},
	}}
	a := New(fc, nil, "Only exclude findings in generated code.", fastPolicy(0))

	_, err := a.Adjudicate(context.Background(), sampleFinding(), nil)
	require.NoError(t, err)
	assert.True(t, strings.Contains(fc.prompts[0], "Only exclude findings in generated code."))
}
