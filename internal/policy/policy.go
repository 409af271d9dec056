// Package policy converts risk signals into gating decisions. The decision
// rules are an explicit, immutable configuration value so per-tenant and
// per-test configurations never share state.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Decision is the gating outcome for an agent run.
type Decision string

const (
	DecisionAllow         Decision = "allow"
	DecisionNeedsApproval Decision = "needs_approval"
	DecisionBlock         Decision = "block"
)

// Config holds the decision toggles consumed by Decide. Immutable once
// loaded; pass by value.
type Config struct {
	BlockDestructiveActions             bool `yaml:"block_destructive_actions" json:"block_destructive_actions"`
	RequireApprovalForSecuritySensitive bool `yaml:"require_approval_for_security_sensitive" json:"require_approval_for_security_sensitive"`
	RequireApprovalForSensitiveData     bool `yaml:"require_approval_for_sensitive_data" json:"require_approval_for_sensitive_data"`
	RequireApprovalForHighRisk          bool `yaml:"require_approval_for_high_risk" json:"require_approval_for_high_risk"`
}

// ActionGateConfig lists the action types that must wait for execution
// rather than being auto-simulated.
type ActionGateConfig struct {
	RiskyTypes []string `yaml:"risky_types" json:"risky_types"`
}

// Policy represents a complete tower.policy.yaml configuration.
type Policy struct {
	Decisions Config           `yaml:"policy" json:"policy"`
	Actions   ActionGateConfig `yaml:"actions" json:"actions"`

	// Computed fields (not serialized from YAML)
	Hash       string `yaml:"-" json:"-"`
	VersionTag string `yaml:"-" json:"-"`
}

// DefaultRiskyTypes are the action types gated behind approval when no
// policy file overrides them.
var DefaultRiskyTypes = []string{
	"database_mutation",
	"email_send",
	"api_call_external",
	"file_delete",
}

// Default returns the built-in policy: everything that can be gated is
// gated. Operators loosen from here, never the other way around.
func Default() *Policy {
	p := &Policy{
		Decisions: Config{
			BlockDestructiveActions:             true,
			RequireApprovalForSecuritySensitive: true,
			RequireApprovalForSensitiveData:     true,
			RequireApprovalForHighRisk:          true,
		},
		Actions: ActionGateConfig{
			RiskyTypes: append([]string(nil), DefaultRiskyTypes...),
		},
	}
	p.ComputeHash([]byte("default"))
	return p
}

// ComputeHash sets the policy content hash and short version tag from the
// raw file bytes, so evidence records can pin the exact policy in force.
func (p *Policy) ComputeHash(raw []byte) {
	sum := sha256.Sum256(raw)
	p.Hash = hex.EncodeToString(sum[:])
	p.VersionTag = fmt.Sprintf("sha256:%s", p.Hash[:12])
}
