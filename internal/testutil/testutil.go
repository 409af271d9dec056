// Package testutil provides shared test helpers and mocks for tower tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Kushall-07/Ai-tower/internal/llm"
	"github.com/Kushall-07/Ai-tower/internal/store"
)

// TestSigningKey is HMAC key material for use in tests only. 32+ bytes.
const TestSigningKey = "test-signing-key-0123456789abcdef"

// MockProvider implements llm.Provider without live API calls. Set Err to
// simulate an upstream failure; otherwise Generate returns Content.
type MockProvider struct {
	Content string
	Err     error
}

// Name returns the provider identifier (implements llm.Provider).
func (m *MockProvider) Name() string { return "mock" }

// Generate returns the canned response or the configured error.
func (m *MockProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &llm.Response{
		Content:      m.Content,
		Model:        req.Model,
		FinishReason: "stop",
		InputTokens:  10,
		OutputTokens: 20,
	}, nil
}

// TempStore opens a store on a fresh temp-dir database, closed on cleanup.
func TempStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tower.db"), TestSigningKey)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// WritePolicyFile creates a tower.policy.yaml in dir with every toggle
// enabled and the given risky action types, and returns its path.
func WritePolicyFile(t *testing.T, dir string, riskyTypes ...string) string {
	t.Helper()
	content := `
policy:
  block_destructive_actions: true
  require_approval_for_security_sensitive: true
  require_approval_for_sensitive_data: true
  require_approval_for_high_risk: true
`
	if len(riskyTypes) > 0 {
		content += "actions:\n  risky_types:\n"
		for _, rt := range riskyTypes {
			content += "    - " + rt + "\n"
		}
	}
	path := filepath.Join(dir, "tower.policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
