// Package doctor provides health checks for a tower installation. Used by
// `ai-tower doctor` to diagnose configuration problems before serving.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Kushall-07/Ai-tower/internal/config"
	"github.com/Kushall-07/Ai-tower/internal/policy"
	"github.com/Kushall-07/Ai-tower/internal/risk"
	"github.com/Kushall-07/Ai-tower/internal/store"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // pass, warn, fail
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Run executes all doctor checks and returns a report.
func Run(ctx context.Context) *Report {
	report := &Report{}

	cfg, err := config.Load()
	if err != nil {
		report.Checks = append(report.Checks, CheckResult{
			Name: "config_load", Status: "fail",
			Message: fmt.Sprintf("Cannot load config: %v", err),
			Fix:     "Check TOWER_* env vars and tower.config.yaml",
		})
	} else {
		report.Checks = append(report.Checks,
			checkDataDir(cfg),
			checkSigningKey(cfg),
			checkPolicy(ctx, cfg),
			checkKeywords(cfg),
			checkLLM(cfg),
			checkDatabase(cfg),
			checkDatasetDir(cfg),
		)
	}

	for _, c := range report.Checks {
		switch c.Status {
		case "pass":
			report.Summary.Pass++
		case "warn":
			report.Summary.Warn++
		case "fail":
			report.Summary.Fail++
		}
	}

	report.Status = "pass"
	if report.Summary.Warn > 0 {
		report.Status = "warn"
	}
	if report.Summary.Fail > 0 {
		report.Status = "fail"
	}
	return report
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Status: "fail",
			Message: fmt.Sprintf("%s — %v", cfg.DataDir, err),
			Fix:     "Ensure directory exists and is writable",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Status: "fail",
			Message: fmt.Sprintf("%s not writable — %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Status: "pass",
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkSigningKey(cfg *config.Config) CheckResult {
	if cfg.UsingDefaultSigningKey() {
		return CheckResult{
			Name: "signing_key", Status: "warn",
			Message: "Using generated default",
			Fix:     "Set TOWER_SIGNING_KEY for production",
		}
	}
	return CheckResult{Name: "signing_key", Status: "pass", Message: "Configured"}
}

func checkPolicy(ctx context.Context, cfg *config.Config) CheckResult {
	path, err := cfg.PolicyPath()
	if err != nil {
		return CheckResult{
			Name: "policy_valid", Status: "fail",
			Message: fmt.Sprintf("%v", err),
			Fix:     "Point policy_file at a location inside the data directory",
		}
	}
	if _, err := os.Stat(path); err != nil {
		return CheckResult{
			Name: "policy_valid", Status: "warn",
			Message: fmt.Sprintf("%s — file not found, built-in default policy applies", path),
			Fix:     "Create a policy file to customize gating",
		}
	}
	pol, err := policy.Load(ctx, path)
	if err != nil {
		return CheckResult{
			Name: "policy_valid", Status: "fail",
			Message: fmt.Sprintf("%s — %v", path, err),
		}
	}
	return CheckResult{
		Name: "policy_valid", Status: "pass",
		Message: fmt.Sprintf("%s (version %s)", path, pol.VersionTag),
	}
}

func checkKeywords(cfg *config.Config) CheckResult {
	path, err := cfg.KeywordsPath()
	if err != nil {
		return CheckResult{
			Name: "risk_keywords", Status: "fail",
			Message: fmt.Sprintf("%v", err),
			Fix:     "Point risk_keywords_file at a location inside the data directory",
		}
	}
	var opts []risk.ClassifierOption
	if path != "" {
		opts = append(opts, risk.WithKeywordFile(path))
	}
	if _, err := risk.NewClassifier(opts...); err != nil {
		return CheckResult{
			Name: "risk_keywords", Status: "fail",
			Message: fmt.Sprintf("%v", err),
			Fix:     "Check TOWER_RISK_KEYWORDS_FILE syntax",
		}
	}
	if path != "" {
		return CheckResult{
			Name: "risk_keywords", Status: "pass",
			Message: fmt.Sprintf("embedded + %s", path),
		}
	}
	return CheckResult{Name: "risk_keywords", Status: "pass", Message: "embedded defaults"}
}

func checkLLM(cfg *config.Config) CheckResult {
	if cfg.LLMProvider == "ollama" {
		return CheckResult{
			Name: "llm_provider", Status: "pass",
			Message: fmt.Sprintf("ollama (%s)", cfg.LLMModel),
		}
	}
	if cfg.LLMAPIKey == "" {
		return CheckResult{
			Name: "llm_provider", Status: "warn",
			Message: "No TOWER_LLM_API_KEY set; runs will use placeholder responses",
			Fix:     "Set TOWER_LLM_API_KEY to call a real model",
		}
	}
	return CheckResult{
		Name: "llm_provider", Status: "pass",
		Message: fmt.Sprintf("%s %s (%s)", cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMModel),
	}
}

func checkDatabase(cfg *config.Config) CheckResult {
	st, err := store.Open(cfg.TowerDBPath(), cfg.SigningKey)
	if err != nil {
		return CheckResult{
			Name: "tower_db", Status: "fail",
			Message: fmt.Sprintf("%v", err),
		}
	}
	_ = st.Close()
	return CheckResult{Name: "tower_db", Status: "pass", Message: cfg.TowerDBPath()}
}

func checkDatasetDir(cfg *config.Config) CheckResult {
	info, err := os.Stat(cfg.DatasetDir)
	if err != nil {
		return CheckResult{
			Name: "dataset_dir", Status: "warn",
			Message: fmt.Sprintf("%s — not found, data endpoints disabled", cfg.DatasetDir),
			Fix:     "Create the directory and add CSV files to enable data browsing",
		}
	}
	if !info.IsDir() {
		return CheckResult{
			Name: "dataset_dir", Status: "fail",
			Message: fmt.Sprintf("%s is not a directory", cfg.DatasetDir),
		}
	}
	return CheckResult{Name: "dataset_dir", Status: "pass", Message: cfg.DatasetDir}
}
