// Package config holds operator-level configuration for a tower
// installation: data directory, database and signing key, LLM endpoint,
// policy and keyword file locations, dataset directory. Set via env vars
// (TOWER_*) or a config file (tower.config.yaml); per-request input comes
// through the HTTP API, never through this package.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/Kushall-07/Ai-tower/internal/policy"
)

// Viper keys. Each maps to an env var with the TOWER_ prefix
// (e.g. "signing_key" → TOWER_SIGNING_KEY) and to a YAML field
// in tower.config.yaml.
const (
	KeyDataDir      = "data_dir"
	KeySigningKey   = "signing_key"
	KeyPolicyFile   = "policy_file"
	KeyKeywordsFile = "risk_keywords_file"
	KeyDatasetDir   = "dataset_dir"
	KeyLLMBaseURL   = "llm_base_url"
	KeyLLMAPIKey    = "llm_api_key"
	KeyLLMModel     = "llm_model"
	KeyLLMProvider  = "llm_provider"
	KeyAPIKeys      = "api_keys"
	KeyListenAddr   = "listen_addr"
)

// Defaults. The signing key intentionally has no baked-in default; when
// unset we derive a deterministic per-machine fallback and warn.
const (
	DefaultPolicyFile = "tower.policy.yaml"
	DefaultLLMBaseURL = "https://api.groq.com/openai"
	DefaultLLMModel   = "llama-3.1-8b-instant"
	DefaultProvider   = "openai"
	DefaultListenAddr = ":8080"
)

// Config holds resolved operator configuration for a tower process.
type Config struct {
	DataDir      string   // Base directory for all state (~/.ai-tower)
	SigningKey   string   // HMAC-SHA256 key for run signing (≥32 bytes)
	PolicyFile   string   // Policy filename, resolved under DataDir when relative
	KeywordsFile string   // Optional extra risk keyword categories
	DatasetDir   string   // Directory of CSV datasets
	LLMBaseURL   string   // OpenAI-compatible endpoint (Groq by default)
	LLMAPIKey    string   // API key; empty enables placeholder mode
	LLMModel     string   // Model identifier
	LLMProvider  string   // "openai" or "ollama"
	APIKeys      []string // Accepted client keys; empty disables auth
	ListenAddr   string   // HTTP listen address

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey reports whether the signing key was derived
// rather than set explicitly. Commands warn when this is the case.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// TowerDBPath returns the full path to the tower SQLite database.
func (c *Config) TowerDBPath() string {
	return filepath.Join(c.DataDir, "tower.db")
}

// PolicyPath returns the policy file location. Absolute paths are taken
// as-is; relative names resolve under the data directory and must not
// escape it.
func (c *Config) PolicyPath() (string, error) {
	if filepath.IsAbs(c.PolicyFile) {
		return c.PolicyFile, nil
	}
	return policy.ResolvePathUnderBase(c.DataDir, c.PolicyFile)
}

// KeywordsPath resolves the optional risk keyword file the same way as
// PolicyPath. Returns "" when no file is configured.
func (c *Config) KeywordsPath() (string, error) {
	if c.KeywordsFile == "" || filepath.IsAbs(c.KeywordsFile) {
		return c.KeywordsFile, nil
	}
	return policy.ResolvePathUnderBase(c.DataDir, c.KeywordsFile)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKeys logs a warning when the signing key is not explicitly
// set. Suppressed when TOWER_QUICKSTART=1 or true.
func (c *Config) WarnIfDefaultKeys() {
	if isQuickstart() {
		return
	}
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default TOWER_SIGNING_KEY — set via env var or config file for production")
	}
}

func isQuickstart() bool {
	v := os.Getenv("TOWER_QUICKSTART")
	return v == "1" || v == "true" || v == "TRUE"
}

func init() {
	viper.SetEnvPrefix("TOWER")
	viper.AutomaticEnv()
	viper.SetDefault(KeyPolicyFile, DefaultPolicyFile)
	viper.SetDefault(KeyLLMBaseURL, DefaultLLMBaseURL)
	viper.SetDefault(KeyLLMModel, DefaultLLMModel)
	viper.SetDefault(KeyLLMProvider, DefaultProvider)
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:      resolveDataDir(),
		SigningKey:   viper.GetString(KeySigningKey),
		PolicyFile:   viper.GetString(KeyPolicyFile),
		KeywordsFile: viper.GetString(KeyKeywordsFile),
		DatasetDir:   viper.GetString(KeyDatasetDir),
		LLMBaseURL:   viper.GetString(KeyLLMBaseURL),
		LLMAPIKey:    viper.GetString(KeyLLMAPIKey),
		LLMModel:     viper.GetString(KeyLLMModel),
		LLMProvider:  viper.GetString(KeyLLMProvider),
		APIKeys:      viper.GetStringSlice(KeyAPIKeys),
		ListenAddr:   viper.GetString(KeyListenAddr),
	}

	if cfg.DatasetDir == "" {
		cfg.DatasetDir = filepath.Join(cfg.DataDir, "data")
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "run-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ai-tower"
	}
	return filepath.Join(home, ".ai-tower")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Not cryptographically strong; it exists
// so the server runs out of the box while still signing records with a
// per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("tower:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	switch c.LLMProvider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("llm_provider must be openai or ollama (got %q)", c.LLMProvider)
	}
	return nil
}

// validateSigningKey accepts either ≥32 raw bytes or 64+ even hex
// characters decoding to ≥32 bytes.
func validateSigningKey(key string) error {
	n := len(key)
	if n >= 64 && n%2 == 0 && isHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return fmt.Errorf("signing_key hex decode: %w", err)
		}
		if len(decoded) < 32 {
			return fmt.Errorf("signing_key hex must decode to at least 32 bytes (got %d)", len(decoded))
		}
		return nil
	}
	if n >= 32 {
		return nil
	}
	return fmt.Errorf("signing_key must be at least 32 bytes or 64+ hex characters (got %d); set TOWER_SIGNING_KEY", n)
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
