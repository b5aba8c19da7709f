package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearsift/clearsift/internal/config"
	"github.com/clearsift/clearsift/internal/finding"
	"github.com/clearsift/clearsift/internal/logging"
	"github.com/clearsift/clearsift/internal/pathfilter"
)

var (
	flagPRTitle       string
	flagPRDescription string
)

var filterCmd = &cobra.Command{
	Use:   "filter [findings.json]",
	Short: "Filter a findings list without running a review",
	Long: "Filter reads a JSON array of findings from a file or stdin, runs it\n" +
		"through the exclusion rules and optional adjudication, and prints the\n" +
		"filter report.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides(cmd))
		if err != nil {
			fail(err)
			return nil
		}
		logging.Init(cfg.Debug)
		if cfg.UseAdjudication && cfg.APIKey == "" {
			fail(&config.ConfigError{Reason: "ANTHROPIC_API_KEY is required when adjudication is enabled"})
			return nil
		}

		data, err := readFindings(args)
		if err != nil {
			fail(err)
			return nil
		}
		findings, err := finding.ParseList(data)
		if err != nil {
			fail(err)
			return nil
		}

		orch, err := buildOrchestrator(cfg, cfg.RepoPath, pathfilter.New(cfg.ExcludeDirs))
		if err != nil {
			fail(err)
			return nil
		}

		var pr *finding.PRContext
		if flagPRTitle != "" || flagPRDescription != "" {
			pr = &finding.PRContext{Title: flagPRTitle, Description: flagPRDescription}
		}

		report := orch.Run(cmd.Context(), findings, pr)
		if err := writeFilterReport(report, flagOut); err != nil {
			fail(err)
		}
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVar(&flagRepoPath, "repo-path", "", "Checkout root for reading finding file content")
	filterCmd.Flags().StringVar(&flagPRTitle, "pr-title", "", "Pull request title for adjudication context")
	filterCmd.Flags().StringVar(&flagPRDescription, "pr-description", "", "Pull request description for adjudication context")
	addCommonFlags(filterCmd)
}

func readFindings(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading findings file: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading findings from stdin: %w", err)
	}
	return data, nil
}

func writeFilterReport(report finding.FilterReport, outPath string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	data = append(data, '\n')

	if outPath != "" {
		return os.WriteFile(outPath, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}
