package policy

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Kushall-07/Ai-tower/internal/risk"
)

// Reason strings emitted by Decide. Every decision carries at least one.
const (
	reasonDestructiveBlocked = "Prompt/response appears to contain destructive actions, and policy is configured to block such requests."
	reasonSecurityApproval   = "Security-sensitive patterns detected (e.g., passwords, tokens). Policy requires human approval."
	reasonSensitiveApproval  = "Access to personal or financial data detected. Policy requires human approval before proceeding."
	reasonHighRiskApproval   = "Overall risk level assessed as HIGH. Policy requires human approval."
	reasonNoViolation        = "No policy violations detected. Request is allowed."
)

// Decide maps risk flags and severity to a gating decision. The rules form
// a short-circuiting ordered chain; the first rule that fires determines
// the decision and contributes the single reason:
//
//  1. destructive_actions present and blocking enabled            -> block
//  2. security_sensitive present and security approval enabled    -> needs_approval
//  3. privacy/financial flag present and data approval enabled    -> needs_approval
//  4. severity high and high-risk approval enabled                -> needs_approval
//  5. otherwise                                                   -> allow
//
// Decide is a total function: it never fails and never returns an empty
// reason list.
func Decide(ctx context.Context, flags risk.FlagSet, level risk.Level, cfg Config) (Decision, []string) {
	_, span := tracer.Start(ctx, "policy.decide")
	defer span.End()

	decision, reasons := decide(flags, level, cfg)

	span.SetAttributes(
		attribute.String("policy.decision", string(decision)),
		attribute.String("risk.level", string(level)),
	)
	return decision, reasons
}

func decide(flags risk.FlagSet, level risk.Level, cfg Config) (Decision, []string) {
	if flags.Has(risk.FlagDestructiveActions) && cfg.BlockDestructiveActions {
		return DecisionBlock, []string{reasonDestructiveBlocked}
	}

	if flags.Has(risk.FlagSecuritySensitive) && cfg.RequireApprovalForSecuritySensitive {
		return DecisionNeedsApproval, []string{reasonSecurityApproval}
	}

	if (flags.Has(risk.FlagPrivacySensitive) || flags.Has(risk.FlagFinancialSensitive)) && cfg.RequireApprovalForSensitiveData {
		return DecisionNeedsApproval, []string{reasonSensitiveApproval}
	}

	if level == risk.LevelHigh && cfg.RequireApprovalForHighRisk {
		return DecisionNeedsApproval, []string{reasonHighRiskApproval}
	}

	return DecisionAllow, []string{reasonNoViolation}
}
