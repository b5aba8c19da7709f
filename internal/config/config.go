package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clearsift/clearsift/internal/logging"
)

// FileName is the per-repository config file, looked up in the working
// directory.
const FileName = ".clearsift.yaml"

// ConfigError marks settings problems that are fatal to the run.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// Config is the effective clearsift configuration.
//
// Credentials and instruction text are never read from the YAML file; they
// come from the environment only.
type Config struct {
	UseHardExclusions bool     `yaml:"use_hard_exclusions"`
	UseAdjudication   bool     `yaml:"use_adjudication"`
	Model             string   `yaml:"model"`
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
	MaxRetries        int      `yaml:"max_retries"`
	ExcludeDirs       []string `yaml:"exclude_dirs"`
	Concurrency       int      `yaml:"concurrency"`
	FailClosed        bool     `yaml:"fail_closed"`
	MaxDiffLines      int      `yaml:"max_diff_lines"`
	AgentBinary       string   `yaml:"agent_binary"`
	RepoPath          string   `yaml:"repo_path"`
	Debug             bool     `yaml:"debug"`

	APIKey                      string `yaml:"-"`
	GitHubToken                 string `yaml:"-"`
	CustomFilteringInstructions string `yaml:"-"`
	CustomReviewInstructions    string `yaml:"-"`
	CustomSecurityInstructions  string `yaml:"-"`
}

// fileConfig shadows Config with pointer fields so an absent YAML key is
// distinguishable from an explicit zero.
type fileConfig struct {
	UseHardExclusions *bool    `yaml:"use_hard_exclusions"`
	UseAdjudication   *bool    `yaml:"use_adjudication"`
	Model             string   `yaml:"model"`
	TimeoutSeconds    *int     `yaml:"timeout_seconds"`
	MaxRetries        *int     `yaml:"max_retries"`
	ExcludeDirs       []string `yaml:"exclude_dirs"`
	Concurrency       *int     `yaml:"concurrency"`
	FailClosed        *bool    `yaml:"fail_closed"`
	MaxDiffLines      *int     `yaml:"max_diff_lines"`
	AgentBinary       string   `yaml:"agent_binary"`
	RepoPath          string   `yaml:"repo_path"`
	Debug             *bool    `yaml:"debug"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		UseHardExclusions: true,
		UseAdjudication:   false,
		Model:             "claude-sonnet-4-20250514",
		TimeoutSeconds:    180,
		MaxRetries:        3,
		Concurrency:       3,
		MaxDiffLines:      5000,
		AgentBinary:       "claude",
	}
}

// Timeout returns the per-call timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load builds the effective config by merging: defaults <- file <- env <-
// overrides. The overrides map comes from CLI flags; only non-empty values
// should be set.
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := loadFile(filepath.Join(".", FileName))
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

// loadFile reads the YAML config file. A missing file is not an error.
func loadFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileConfig{}, nil
		}
		return fileConfig{}, &ConfigError{Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, &ConfigError{Reason: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	return cfg, nil
}

func mergeFile(dst *Config, src fileConfig) {
	if src.UseHardExclusions != nil {
		dst.UseHardExclusions = *src.UseHardExclusions
	}
	if src.UseAdjudication != nil {
		dst.UseAdjudication = *src.UseAdjudication
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.TimeoutSeconds != nil {
		dst.TimeoutSeconds = *src.TimeoutSeconds
	}
	if src.MaxRetries != nil {
		dst.MaxRetries = *src.MaxRetries
	}
	if len(src.ExcludeDirs) > 0 {
		dst.ExcludeDirs = src.ExcludeDirs
	}
	if src.Concurrency != nil {
		dst.Concurrency = *src.Concurrency
	}
	if src.FailClosed != nil {
		dst.FailClosed = *src.FailClosed
	}
	if src.MaxDiffLines != nil {
		dst.MaxDiffLines = *src.MaxDiffLines
	}
	if src.AgentBinary != "" {
		dst.AgentBinary = src.AgentBinary
	}
	if src.RepoPath != "" {
		dst.RepoPath = src.RepoPath
	}
	if src.Debug != nil {
		dst.Debug = *src.Debug
	}
}

func mergeEnv(cfg *Config) {
	cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")

	if v := os.Getenv("ENABLE_CLAUDE_FILTERING"); v != "" {
		cfg.UseAdjudication = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("EXCLUDE_DIRECTORIES"); v != "" {
		var dirs []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.ExcludeDirs = append(cfg.ExcludeDirs, dirs...)
	}
	if v := os.Getenv("MAX_DIFF_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDiffLines = n
		}
	}
	if v := os.Getenv("REPO_PATH"); v != "" {
		cfg.RepoPath = v
	}

	cfg.CustomFilteringInstructions = readInstructionFile("FALSE_POSITIVE_FILTERING_INSTRUCTIONS")
	cfg.CustomReviewInstructions = readInstructionFile("CUSTOM_REVIEW_INSTRUCTIONS")
	cfg.CustomSecurityInstructions = readInstructionFile("CUSTOM_SECURITY_SCAN_INSTRUCTIONS")
}

// readInstructionFile loads instruction text from the file an env var
// points at. A missing or unreadable file is logged and skipped, matching
// the tolerant behavior expected in CI.
func readInstructionFile(envVar string) string {
	path := os.Getenv(envVar)
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.L().Warnw("skipping instruction file", "env", envVar, "path", path, "error", err)
		return ""
	}
	return string(data)
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["model"]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := overrides["repoPath"]; ok && v != "" {
		cfg.RepoPath = v
	}
	if v, ok := overrides["agentBinary"]; ok && v != "" {
		cfg.AgentBinary = v
	}
	if v, ok := overrides["timeoutSeconds"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TimeoutSeconds = n
		}
	}
	if v, ok := overrides["maxRetries"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v, ok := overrides["concurrency"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
	if v, ok := overrides["useAdjudication"]; ok && v != "" {
		cfg.UseAdjudication = strings.EqualFold(v, "true")
	}
	if v, ok := overrides["failClosed"]; ok && v != "" {
		cfg.FailClosed = strings.EqualFold(v, "true")
	}
	if v, ok := overrides["debug"]; ok && v != "" {
		cfg.Debug = strings.EqualFold(v, "true")
	}
}

// Validate checks settings that would make a run impossible. Every problem
// is a ConfigError.
func (c Config) Validate() error {
	if c.Model == "" {
		return &ConfigError{Reason: "model must not be empty"}
	}
	if c.AgentBinary == "" {
		return &ConfigError{Reason: "agent_binary must not be empty"}
	}
	if c.TimeoutSeconds <= 0 {
		return &ConfigError{Reason: "timeout_seconds must be positive"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Reason: "max_retries must not be negative"}
	}
	if c.Concurrency <= 0 {
		return &ConfigError{Reason: "concurrency must be positive"}
	}
	if c.MaxDiffLines < 0 {
		return &ConfigError{Reason: "max_diff_lines must not be negative"}
	}
	if c.UseAdjudication && c.APIKey == "" {
		return &ConfigError{Reason: "ANTHROPIC_API_KEY is required when adjudication is enabled"}
	}
	return nil
}
