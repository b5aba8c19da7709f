package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearsift/clearsift/internal/adjudicate"
	"github.com/clearsift/clearsift/internal/config"
	"github.com/clearsift/clearsift/internal/filereader"
	"github.com/clearsift/clearsift/internal/github"
	"github.com/clearsift/clearsift/internal/gitinfo"
	"github.com/clearsift/clearsift/internal/logging"
	"github.com/clearsift/clearsift/internal/output"
	"github.com/clearsift/clearsift/internal/pathfilter"
	"github.com/clearsift/clearsift/internal/pipeline"
	"github.com/clearsift/clearsift/internal/prompts"
	"github.com/clearsift/clearsift/internal/rules"
	"github.com/clearsift/clearsift/internal/runner"
)

// Shared flags
var (
	flagRepo        string
	flagPRNumber    int
	flagModel       string
	flagRepoPath    string
	flagFormat      string
	flagOut         string
	flagConcurrency int
	flagMaxRetries  int
	flagTimeout     int
	flagAdjudicate  bool
	flagFailClosed  bool
	flagDebug       bool
)

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name for review and adjudication")
	cmd.Flags().StringVar(&flagFormat, "format", "json", "Output format (json, text)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Adjudication worker pool size")
	cmd.Flags().IntVar(&flagMaxRetries, "max-retries", -1, "Retries per adjudication call")
	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "Per-call timeout in seconds")
	cmd.Flags().BoolVar(&flagAdjudicate, "adjudicate", false, "Enable model adjudication of findings")
	cmd.Flags().BoolVar(&flagFailClosed, "fail-closed", false, "Drop findings whose adjudication cannot complete")
	cmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

func buildOverrides(cmd *cobra.Command) map[string]string {
	m := make(map[string]string)
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagRepoPath != "" {
		m["repoPath"] = flagRepoPath
	}
	if flagConcurrency > 0 {
		m["concurrency"] = strconv.Itoa(flagConcurrency)
	}
	if flagMaxRetries >= 0 {
		m["maxRetries"] = strconv.Itoa(flagMaxRetries)
	}
	if flagTimeout > 0 {
		m["timeoutSeconds"] = strconv.Itoa(flagTimeout)
	}
	if cmd.Flags().Changed("adjudicate") {
		m["useAdjudication"] = strconv.FormatBool(flagAdjudicate)
	}
	if cmd.Flags().Changed("fail-closed") {
		m["failClosed"] = strconv.FormatBool(flagFailClosed)
	}
	if flagDebug {
		m["debug"] = "true"
	}
	return m
}

// buildOrchestrator assembles the filter stack from config. The adjudicator
// is nil when adjudication is disabled; the pipeline then passes rule
// survivors straight through.
func buildOrchestrator(cfg config.Config, repoDir string, checker *pathfilter.Checker) (*pipeline.Orchestrator, error) {
	var adj pipeline.Adjudicator
	if cfg.UseAdjudication {
		client, err := adjudicate.NewClient(cfg.APIKey, cfg.Model, cfg.Timeout())
		if err != nil {
			return nil, &config.ConfigError{Reason: err.Error()}
		}
		var files adjudicate.FileReader
		if repoDir != "" {
			files = filereader.New(repoDir)
		}
		adj = adjudicate.New(client, files, cfg.CustomFilteringInstructions,
			adjudicate.DefaultPolicy(cfg.MaxRetries))
	}

	return pipeline.New(rules.NewEngine(), adj, checker, pipeline.Options{
		UseHardExclusions: cfg.UseHardExclusions,
		UseAdjudication:   cfg.UseAdjudication,
		FailClosed:        cfg.FailClosed,
		Concurrency:       cfg.Concurrency,
	}), nil
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Review a pull request and emit filtered findings",
	Long: "Audit fetches the pull request, runs the review agent over the checkout,\n" +
		"filters the findings, and prints the report. Exits 1 when high-severity\n" +
		"findings survive filtering.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides(cmd))
		if err != nil {
			fail(err)
			return nil
		}
		logging.Init(cfg.Debug)
		if err := cfg.Validate(); err != nil {
			fail(err)
			return nil
		}
		runAudit(cmd.Context(), cfg)
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&flagRepo, "repo", "", `Repository in "owner/repo" form (default: $GITHUB_REPOSITORY)`)
	auditCmd.Flags().IntVar(&flagPRNumber, "pr", 0, "Pull request number (default: $PR_NUMBER)")
	auditCmd.Flags().StringVar(&flagRepoPath, "repo-path", "", "Path to the PR checkout (default: current directory)")
	addCommonFlags(auditCmd)
}

func runAudit(ctx context.Context, cfg config.Config) {
	repoDir := cfg.RepoPath
	if repoDir == "" {
		repoDir = "."
	}

	repoName, prNumber, err := resolveTarget(repoDir)
	if err != nil {
		fail(err)
		return
	}

	if cfg.GitHubToken == "" {
		fail(&config.ConfigError{Reason: "GITHUB_TOKEN environment variable required"})
		return
	}

	checker := pathfilter.New(cfg.ExcludeDirs)
	gh, err := github.NewClient(cfg.GitHubToken, checker)
	if err != nil {
		fail(&config.ConfigError{Reason: err.Error()})
		return
	}

	agent := runner.New(cfg.AgentBinary, cfg.Model, cfg.Timeout())
	if err := agent.Validate(ctx); err != nil {
		fail(err)
		return
	}

	prData, err := gh.GetPRData(ctx, repoName, prNumber)
	if err != nil {
		fail(fmt.Errorf("fetching PR data: %w", err))
		return
	}
	diff, err := gh.GetPRDiff(ctx, repoName, prNumber)
	if err != nil {
		fail(fmt.Errorf("fetching PR diff: %w", err))
		return
	}

	commit := checkoutCommit(repoDir, prData.HeadSHA)

	diffLines := len(strings.Split(diff, "\n"))
	includeDiff := cfg.MaxDiffLines > 0 && diffLines <= cfg.MaxDiffLines
	if !includeDiff {
		logging.L().Infow("using agentic file reading mode",
			"diff_lines", diffLines, "threshold", cfg.MaxDiffLines)
	}

	result, err := runReview(ctx, agent, repoDir, repoName, cfg, prData, diff, includeDiff)
	if err != nil {
		fail(fmt.Errorf("code review failed: %w", err))
		return
	}

	orch, err := buildOrchestrator(cfg, repoDir, checker)
	if err != nil {
		fail(err)
		return
	}
	filterReport := orch.Run(ctx, result.Findings, prData.Context(repoName))

	report := output.NewAuditReport(repoName, prNumber, commit,
		result.AnalysisSummary.FilesReviewed, filterReport)
	if err := output.WriteReport(report, flagFormat, flagOut); err != nil {
		fail(fmt.Errorf("writing output: %w", err))
		return
	}

	if report.HighSeverityCount() > 0 {
		exitCode = ExitGeneral
	}
}

// runReview builds the prompt and runs the agent, falling back to agentic
// mode when the agent rejects the prompt for size.
func runReview(ctx context.Context, agent *runner.Runner, repoDir, repoName string, cfg config.Config, prData *github.PRData, diff string, includeDiff bool) (*runner.ReviewResult, error) {
	build := func(withDiff bool) string {
		in := prompts.ReviewInput{
			Number:       prData.Number,
			Title:        prData.Title,
			Body:         prData.Body,
			Author:       prData.User,
			RepoFullName: repoName,
			ChangedFiles: prData.ChangedFiles,
			Additions:    prData.Additions,
			Deletions:    prData.Deletions,
		}
		for _, f := range prData.Files {
			in.Files = append(in.Files, f.Filename)
		}
		return prompts.UnifiedReview(in, diff, prompts.ReviewOptions{
			IncludeDiff:                withDiff,
			CustomReviewInstructions:   cfg.CustomReviewInstructions,
			CustomSecurityInstructions: cfg.CustomSecurityInstructions,
		})
	}

	result, err := agent.Review(ctx, repoDir, build(includeDiff))
	if includeDiff && errors.Is(err, runner.ErrPromptTooLong) {
		logging.L().Infow("prompt too long, falling back to agentic mode")
		result, err = agent.Review(ctx, repoDir, build(false))
	}
	return result, err
}

// checkoutCommit reads the local HEAD and warns when the checkout is not at
// the PR head, which would make file reads stale.
func checkoutCommit(repoDir, headSHA string) string {
	info, err := gitinfo.Read(repoDir)
	if err != nil {
		logging.L().Debugw("no git info for checkout", "path", repoDir, "error", err)
		return ""
	}
	if !info.MatchesCommit(headSHA) {
		logging.L().Warnw("checkout does not match PR head",
			"checkout", info.CommitHash, "pr_head", headSHA)
	}
	return info.CommitHash
}

// resolveTarget works out which PR to audit: flags first, then the
// environment, then the local checkout's origin remote for the repo name.
func resolveTarget(repoDir string) (string, int, error) {
	repoName := flagRepo
	if repoName == "" {
		repoName = os.Getenv("GITHUB_REPOSITORY")
	}
	if repoName == "" {
		if info, err := gitinfo.Read(repoDir); err == nil && info.RemoteURL != "" {
			repoName, _ = github.ParseRemoteURL(info.RemoteURL)
		}
	}
	if repoName == "" {
		return "", 0, &config.ConfigError{Reason: "repository not specified: use --repo or GITHUB_REPOSITORY"}
	}

	prNumber := flagPRNumber
	if prNumber == 0 {
		if v := os.Getenv("PR_NUMBER"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return "", 0, &config.ConfigError{Reason: "invalid PR_NUMBER: " + v}
			}
			prNumber = n
		}
	}
	if prNumber <= 0 {
		return "", 0, &config.ConfigError{Reason: "pull request not specified: use --pr or PR_NUMBER"}
	}

	return repoName, prNumber, nil
}
