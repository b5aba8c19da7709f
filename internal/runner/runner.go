package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/clearsift/clearsift/internal/extract"
	"github.com/clearsift/clearsift/internal/finding"
	"github.com/clearsift/clearsift/internal/logging"
)

const (
	reviewAttempts = 3
	retrySleepUnit = 5 * time.Second

	versionTimeout  = 10 * time.Second
	largePromptWarn = 1 << 20
)

// ErrPromptTooLong signals the agent rejected the prompt for size. The
// caller retries with the diff omitted from the prompt.
var ErrPromptTooLong = errors.New("prompt too long")

// ReviewSummary is the reviewer's own accounting of the run.
type ReviewSummary struct {
	FilesReviewed   int  `json:"files_reviewed"`
	HighSeverity    int  `json:"high_severity"`
	MediumSeverity  int  `json:"medium_severity"`
	LowSeverity     int  `json:"low_severity"`
	ReviewCompleted bool `json:"review_completed"`
}

// ReviewResult is the decoded payload of a completed review run.
type ReviewResult struct {
	Findings        []finding.Finding `json:"findings"`
	AnalysisSummary ReviewSummary     `json:"analysis_summary"`
}

// agentWrapper is the outer JSON envelope the agent binary prints in
// --output-format json mode. The review payload lives in Result as text.
type agentWrapper struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	IsError bool   `json:"is_error"`
	Result  string `json:"result"`
}

// Runner executes the review agent binary as a subprocess, feeding the
// prompt on stdin and decoding the JSON envelope it prints.
type Runner struct {
	binary  string
	model   string
	timeout time.Duration

	// Swapped out in tests.
	execute func(ctx context.Context, dir, prompt string) (stdout, stderr string, err error)
	sleep   func(d time.Duration)
}

// New creates a Runner. timeout bounds each subprocess attempt.
func New(binary, model string, timeout time.Duration) *Runner {
	r := &Runner{
		binary:  binary,
		model:   model,
		timeout: timeout,
		sleep:   time.Sleep,
	}
	r.execute = r.runProcess
	return r
}

// Review runs one review over repoDir with the given prompt. A transient
// agent failure is retried a few times with a short linear sleep;
// ErrPromptTooLong is returned without retrying so the caller can rebuild
// the prompt without the embedded diff.
func (r *Runner) Review(ctx context.Context, repoDir, prompt string) (*ReviewResult, error) {
	info, err := os.Stat(repoDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("repository directory does not exist: %s", repoDir)
	}

	if len(prompt) > largePromptWarn {
		logging.L().Warnw("large review prompt", "bytes", len(prompt))
	}

	for attempt := 0; attempt < reviewAttempts; attempt++ {
		if attempt > 0 {
			r.sleep(retrySleepUnit * time.Duration(attempt))
		}

		stdout, stderr, err := r.execute(ctx, repoDir, prompt)
		if err != nil {
			if attempt == reviewAttempts-1 {
				return nil, fmt.Errorf("agent execution failed: %w\nstderr: %s\nstdout: %s",
					err, stderr, truncate(stdout, 500))
			}
			logging.L().Warnw("agent execution failed, retrying", "attempt", attempt, "error", err)
			continue
		}

		var wrapper agentWrapper
		if err := extract.ExtractInto(stdout, &wrapper); err != nil {
			if attempt == 0 {
				logging.L().Warnw("unparseable agent output, retrying", "error", err)
				continue
			}
			return nil, fmt.Errorf("failed to parse agent output: %w", err)
		}

		if wrapper.Type == "result" && wrapper.Subtype == "success" &&
			wrapper.IsError && wrapper.Result == "Prompt is too long" {
			return nil, ErrPromptTooLong
		}
		if wrapper.Type == "result" && wrapper.Subtype == "error_during_execution" && attempt == 0 {
			logging.L().Warnw("agent reported execution error, retrying")
			continue
		}

		return decodeResult(wrapper), nil
	}

	return nil, fmt.Errorf("agent review failed after %d attempts", reviewAttempts)
}

// decodeResult pulls the findings payload out of the envelope's result
// text. Anything undecodable yields an empty, not-completed result rather
// than an error.
func decodeResult(wrapper agentWrapper) *ReviewResult {
	var result ReviewResult
	if err := extract.ExtractInto(wrapper.Result, &result); err != nil || result.Findings == nil {
		logging.L().Debugw("no findings payload in agent result")
		return &ReviewResult{Findings: []finding.Finding{}}
	}

	for i := range result.Findings {
		result.Findings[i] = result.Findings[i].Normalize()
	}
	return &result
}

func (r *Runner) runProcess(ctx context.Context, dir, prompt string) (string, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary,
		"--output-format", "json",
		"--model", r.model,
		"--disallowed-tools", "Bash(ps:*)")
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", "", fmt.Errorf("agent execution timed out after %s", r.timeout)
	}
	return stdout.String(), stderr.String(), err
}

// Validate checks the agent binary is installed and answers --version.
func (r *Runner) Validate(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, r.binary, "--version").CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("agent binary %q is not installed or not in PATH", r.binary)
		}
		return fmt.Errorf("agent binary check failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
