package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsift/clearsift/internal/config"
)

func TestResolveTargetFromFlags(t *testing.T) {
	flagRepo = "acme/api"
	flagPRNumber = 7
	t.Cleanup(func() { flagRepo = ""; flagPRNumber = 0 })

	repo, pr, err := resolveTarget(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "acme/api", repo)
	assert.Equal(t, 7, pr)
}

func TestResolveTargetFromEnv(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "acme/env-repo")
	t.Setenv("PR_NUMBER", "12")

	repo, pr, err := resolveTarget(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "acme/env-repo", repo)
	assert.Equal(t, 12, pr)
}

func TestResolveTargetMissingRepo(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "")
	t.Setenv("PR_NUMBER", "12")

	_, _, err := resolveTarget(t.TempDir())
	require.Error(t, err)
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestResolveTargetInvalidPRNumber(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "acme/api")
	t.Setenv("PR_NUMBER", "abc")

	_, _, err := resolveTarget(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PR_NUMBER")
}

func TestResolveTargetMissingPRNumber(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "acme/api")
	t.Setenv("PR_NUMBER", "")

	_, _, err := resolveTarget(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pull request not specified")
}

func TestReadFindingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"x"}]`), 0o644))

	data, err := readFindings([]string{path})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"x"}]`, string(data))
}

func TestReadFindingsMissingFile(t *testing.T) {
	_, err := readFindings([]string{filepath.Join(t.TempDir(), "nope.json")})
	assert.Error(t, err)
}

func TestBuildOrchestratorWithoutAdjudication(t *testing.T) {
	cfg := config.Default()
	orch, err := buildOrchestrator(cfg, "", nil)
	require.NoError(t, err)
	assert.NotNil(t, orch)
}

func TestBuildOrchestratorAdjudicationNeedsKey(t *testing.T) {
	cfg := config.Default()
	cfg.UseAdjudication = true
	cfg.APIKey = ""

	_, err := buildOrchestrator(cfg, "", nil)
	require.Error(t, err)
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
