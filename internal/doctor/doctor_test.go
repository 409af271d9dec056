package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TOWER_DATA_DIR", dir)
	t.Setenv("TOWER_SIGNING_KEY", "doctor-test-signing-key-0123456789ab")
	t.Setenv("TOWER_LLM_API_KEY", "test-key")
	t.Setenv("TOWER_POLICY_FILE", "tower.policy.yaml")
	// Empty env vars are ignored by viper, which isolates the test from
	// ambient operator configuration.
	t.Setenv("TOWER_DATASET_DIR", "")
	t.Setenv("TOWER_RISK_KEYWORDS_FILE", "")
	t.Setenv("TOWER_LLM_PROVIDER", "")
	return dir
}

func checkByName(report *Report, name string) *CheckResult {
	for i := range report.Checks {
		if report.Checks[i].Name == name {
			return &report.Checks[i]
		}
	}
	return nil
}

func TestRun_HealthyInstall(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o700))

	report := Run(context.Background())

	assert.Zero(t, report.Summary.Fail)
	for _, name := range []string{"data_dir_writable", "signing_key", "risk_keywords", "llm_provider", "tower_db", "dataset_dir"} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, "pass", c.Status, name)
	}
	// No policy file written, the built-in default applies.
	c := checkByName(report, "policy_valid")
	require.NotNil(t, c)
	assert.Equal(t, "warn", c.Status)
	assert.Equal(t, "warn", report.Status)
}

func TestRun_InvalidPolicyFileFails(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tower.policy.yaml"), []byte("policy: [not, a, mapping]"), 0o600))

	report := Run(context.Background())

	c := checkByName(report, "policy_valid")
	require.NotNil(t, c)
	assert.Equal(t, "fail", c.Status)
	assert.Equal(t, "fail", report.Status)
}

func TestRun_MissingAPIKeyWarns(t *testing.T) {
	setupEnv(t)
	t.Setenv("TOWER_LLM_API_KEY", "")

	report := Run(context.Background())

	c := checkByName(report, "llm_provider")
	require.NotNil(t, c)
	assert.Equal(t, "warn", c.Status)
	assert.Contains(t, c.Message, "placeholder")
}
