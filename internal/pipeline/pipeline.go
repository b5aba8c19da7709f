package pipeline

import (
	"context"
	"sync"

	"github.com/clearsift/clearsift/internal/finding"
	"github.com/clearsift/clearsift/internal/logging"
	"github.com/clearsift/clearsift/internal/rules"
)

const defaultConcurrency = 3

// cancelledReason marks findings that were never dispatched because the run
// was cancelled mid-stage.
const cancelledReason = "adjudication cancelled"

// Adjudicator judges one finding. Implementations retry internally; an
// error means the attempt budget is exhausted.
type Adjudicator interface {
	Adjudicate(ctx context.Context, f finding.Finding, pr *finding.PRContext) (finding.AdjudicationResult, error)
}

// PathChecker is the final deterministic exclusion test.
type PathChecker interface {
	IsExcluded(path string) bool
}

// Options configure one filter run.
type Options struct {
	// UseHardExclusions enables the rule stage.
	UseHardExclusions bool
	// UseAdjudication enables the model stage over rule survivors.
	UseAdjudication bool
	// FailClosed drops a finding whose adjudication could not complete.
	// The default keeps it.
	FailClosed bool
	// Concurrency bounds the adjudication worker pool.
	Concurrency int
}

// Orchestrator sequences the filter stages: rules, adjudication, path
// exclusion. Every input finding ends up in exactly one of the report's
// filtered or excluded lists.
type Orchestrator struct {
	rules       *rules.Engine
	adjudicator Adjudicator
	paths       PathChecker
	opts        Options
}

// New creates an Orchestrator. adjudicator and paths may be nil; the
// corresponding stages pass findings through unchanged.
func New(engine *rules.Engine, adjudicator Adjudicator, paths PathChecker, opts Options) *Orchestrator {
	if engine == nil {
		engine = rules.NewEngine()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Orchestrator{
		rules:       engine,
		adjudicator: adjudicator,
		paths:       paths,
		opts:        opts,
	}
}

// Run filters findings through the configured stages and aggregates the
// report. Cancelling ctx stops dispatching adjudication calls; findings not
// yet dispatched fall back to the fail-open or fail-closed policy.
func (o *Orchestrator) Run(ctx context.Context, findings []finding.Finding, pr *finding.PRContext) finding.FilterReport {
	var excluded []finding.ExclusionRecord

	survivors, ruleExcluded := o.ruleStage(findings)
	excluded = append(excluded, ruleExcluded...)

	kept, adjExcluded, failures, skipped := o.adjudicationStage(ctx, survivors, pr)
	excluded = append(excluded, adjExcluded...)

	final, pathExcluded := o.pathStage(kept)
	excluded = append(excluded, pathExcluded...)

	report := finding.FilterReport{
		Filtered: final,
		Excluded: excluded,
		Summary: finding.AnalysisSummary{
			TotalFindings:        len(findings),
			KeptFindings:         len(final),
			RuleExcluded:         len(ruleExcluded),
			AdjudicationExcluded: len(adjExcluded),
			PathExcluded:         len(pathExcluded),
			AdjudicationFailures: failures,
			AdjudicationSkipped:  skipped,
			Severity:             finding.ComputeSeverityCounts(final),
		},
	}

	logging.L().Infow("filter run complete",
		"total", report.Summary.TotalFindings,
		"kept", report.Summary.KeptFindings,
		"rule_excluded", report.Summary.RuleExcluded,
		"adjudication_excluded", report.Summary.AdjudicationExcluded,
		"path_excluded", report.Summary.PathExcluded,
		"adjudication_failures", failures)

	return report
}

func (o *Orchestrator) ruleStage(findings []finding.Finding) ([]finding.Finding, []finding.ExclusionRecord) {
	if !o.opts.UseHardExclusions {
		return findings, nil
	}

	var survivors []finding.Finding
	var excluded []finding.ExclusionRecord
	for _, f := range findings {
		if reason, ok := o.rules.Evaluate(f); ok {
			excluded = append(excluded, finding.ExclusionRecord{
				Finding: f,
				Reason:  reason,
				Stage:   finding.StageRule,
			})
			continue
		}
		survivors = append(survivors, f)
	}
	return survivors, excluded
}

// adjudicationStage fans survivors out over a bounded worker pool. Each
// finding is judged independently; one finding's failure never aborts
// another's call. Returns kept findings, exclusions, the failure count, and
// whether the stage was skipped entirely.
func (o *Orchestrator) adjudicationStage(ctx context.Context, survivors []finding.Finding, pr *finding.PRContext) ([]finding.Finding, []finding.ExclusionRecord, int, bool) {
	if !o.opts.UseAdjudication || len(survivors) == 0 {
		return survivors, nil, 0, false
	}
	if o.adjudicator == nil {
		logging.L().Warnw("adjudication enabled but no adjudicator configured, keeping all findings")
		return survivors, nil, 0, true
	}

	type verdict struct {
		dispatched bool
		result     finding.AdjudicationResult
		err        error
	}

	verdicts := make([]verdict, len(survivors))
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.opts.Concurrency)

dispatch:
	for i, f := range survivors {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}: // acquire
		}

		wg.Add(1)
		go func(i int, f finding.Finding) {
			defer wg.Done()
			defer func() { <-sem }() // release

			res, err := o.adjudicator.Adjudicate(ctx, f, pr)
			verdicts[i] = verdict{dispatched: true, result: res, err: err}
		}(i, f)
	}
	wg.Wait()

	var kept []finding.Finding
	var excluded []finding.ExclusionRecord
	failures := 0

	for i, f := range survivors {
		v := verdicts[i]
		switch {
		case !v.dispatched:
			if o.opts.FailClosed {
				excluded = append(excluded, finding.ExclusionRecord{
					Finding: f,
					Reason:  cancelledReason,
					Stage:   finding.StageAdjudication,
				})
			} else {
				kept = append(kept, f)
			}
		case v.err != nil:
			failures++
			logging.L().Warnw("adjudication failed for finding",
				"title", f.Title, "fail_closed", o.opts.FailClosed, "error", v.err)
			if o.opts.FailClosed {
				excluded = append(excluded, finding.ExclusionRecord{
					Finding: f,
					Reason:  "adjudication failed: " + v.err.Error(),
					Stage:   finding.StageAdjudication,
				})
			} else {
				kept = append(kept, f)
			}
		case v.result.KeepFinding:
			kept = append(kept, f)
		default:
			excluded = append(excluded, finding.ExclusionRecord{
				Finding: f,
				Reason:  v.result.Reason(),
				Stage:   finding.StageAdjudication,
			})
		}
	}

	return kept, excluded, failures, false
}

func (o *Orchestrator) pathStage(kept []finding.Finding) ([]finding.Finding, []finding.ExclusionRecord) {
	if o.paths == nil {
		return kept, nil
	}

	var final []finding.Finding
	var excluded []finding.ExclusionRecord
	for _, f := range kept {
		if f.File != "" && o.paths.IsExcluded(f.File) {
			excluded = append(excluded, finding.ExclusionRecord{
				Finding: f,
				Reason:  "Excluded: file matches an excluded directory or pattern",
				Stage:   finding.StagePath,
			})
			continue
		}
		final = append(final, f)
	}
	return final, excluded
}
