package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearsift/clearsift/internal/config"
)

const version = "0.1.0"

// Exit codes: 0 clean run, 1 general failure or kept high-severity
// findings, 2 configuration error.
const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitConfigError = 2
)

var rootCmd = &cobra.Command{
	Use:   "clearsift",
	Short: "Audit automated code-review findings to suppress false positives",
	Long: "Clearsift runs an LLM-driven review over a pull request and filters the\n" +
		"resulting findings through deterministic exclusion rules and an optional\n" +
		"model adjudication pass, so only credible findings reach a human.",
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitGeneral
	}

	return exitCode
}

// fail prints err and sets the exit code, mapping configuration problems to
// their dedicated code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		exitCode = ExitConfigError
		return
	}
	exitCode = ExitGeneral
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print clearsift version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "clearsift version %s\n", version)
	},
}
