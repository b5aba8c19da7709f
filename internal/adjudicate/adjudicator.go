package adjudicate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clearsift/clearsift/internal/extract"
	"github.com/clearsift/clearsift/internal/finding"
	"github.com/clearsift/clearsift/internal/logging"
	"github.com/clearsift/clearsift/internal/prompts"
)

// adjudicationMaxTokens bounds the reply; a decision object is small.
const adjudicationMaxTokens = 2048

// FileReader supplies source file content for prompt embedding.
type FileReader interface {
	Read(path string) (string, error)
}

// Adjudicator asks the external model to judge single findings. It holds no
// mutable state, so one Adjudicator may serve concurrent invocations for
// different findings.
type Adjudicator struct {
	client             Completer
	files              FileReader
	customInstructions string
	policy             Policy
}

// New creates an Adjudicator. files may be nil when no local checkout is
// available; customInstructions overrides the default filtering policy when
// non-empty.
func New(client Completer, files FileReader, customInstructions string, policy Policy) *Adjudicator {
	return &Adjudicator{
		client:             client,
		files:              files,
		customInstructions: customInstructions,
		policy:             policy,
	}
}

// Adjudicate judges one finding. The reply is decoded through the resilient
// extractor; a decode failure consumes a retry attempt just like a transport
// failure, and exhaustion surfaces the last error with the attempt count.
func (a *Adjudicator) Adjudicate(ctx context.Context, f finding.Finding, pr *finding.PRContext) (finding.AdjudicationResult, error) {
	prompt, err := a.buildPrompt(f, pr)
	if err != nil {
		return finding.AdjudicationResult{}, err
	}

	var result finding.AdjudicationResult
	err = a.policy.Do(ctx, func() error {
		text, err := a.client.Complete(ctx, Request{
			Prompt:       prompt,
			SystemPrompt: prompts.AdjudicationSystem,
			MaxTokens:    adjudicationMaxTokens,
		})
		if err != nil {
			return err
		}

		var decoded finding.AdjudicationResult
		if err := extract.ExtractInto(text, &decoded); err != nil {
			return fmt.Errorf("adjudication reply: %w", err)
		}
		result = decoded
		return nil
	})
	if err != nil {
		logging.L().Warnw("adjudication failed", "title", f.Title, "error", err)
		return finding.AdjudicationResult{}, err
	}

	return result, nil
}

func (a *Adjudicator) buildPrompt(f finding.Finding, pr *finding.PRContext) (string, error) {
	findingJSON, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing finding: %w", err)
	}

	var fileSection string
	if f.File != "" && a.files != nil {
		content, readErr := a.files.Read(f.File)
		fileSection = prompts.FileContentSection(f.File, content, readErr)
	}

	return prompts.Adjudication(string(findingJSON), pr, fileSection, a.customInstructions), nil
}
