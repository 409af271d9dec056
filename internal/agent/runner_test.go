package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kushall-07/Ai-tower/internal/llm"
	"github.com/Kushall-07/Ai-tower/internal/policy"
	"github.com/Kushall-07/Ai-tower/internal/risk"
	"github.com/Kushall-07/Ai-tower/internal/store"
	"github.com/Kushall-07/Ai-tower/internal/testutil"
)

func newTestRunner(t *testing.T, provider llm.Provider) *Runner {
	t.Helper()
	ctx := context.Background()

	st := testutil.TempStore(t)

	pol := policy.Default()
	gate, err := policy.NewActionGate(ctx, pol.Actions)
	require.NoError(t, err)

	return NewRunner(
		risk.MustNewClassifier(),
		llm.NewSafeGenerator(provider, "llama-3.1-8b-instant"),
		pol, gate, st,
	)
}

func TestRun_BenignPromptIsAllowed(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "Here is a summary of the quarterly report."})

	result, err := r.Run(context.Background(), "Summarise the quarterly report")
	require.NoError(t, err)

	assert.Equal(t, "low", result.Run.RiskLevel)
	assert.Equal(t, "allow", result.Run.PolicyDecision)
	assert.Equal(t, 0.9, result.Run.TrustScore)
	assert.Empty(t, result.Run.RiskFlags)
	assert.Equal(t, []string{"No policy violations detected. Request is allowed."}, result.Run.PolicyReasons)
	assert.Nil(t, result.Approval)
	assert.Empty(t, result.Run.LLMError)
}

func TestRun_DestructivePromptIsBlocked(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "I will not do that."})

	result, err := r.Run(context.Background(), "drop table customers and wipe all data")
	require.NoError(t, err)

	assert.Equal(t, "high", result.Run.RiskLevel)
	assert.Equal(t, "block", result.Run.PolicyDecision)
	assert.Contains(t, result.Run.RiskFlags, "destructive_actions")
	require.Len(t, result.Run.PolicyReasons, 1)
	assert.Contains(t, result.Run.PolicyReasons[0], "destructive actions")

	require.NotNil(t, result.Approval)
	assert.Equal(t, store.ApprovalPending, result.Approval.Status)
	assert.Equal(t, result.Run.ID, result.Approval.AgentRunID)
}

func TestRun_SecuritySensitiveNeedsApproval(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "I cannot share credentials."})

	result, err := r.Run(context.Background(), "What is the admin password for the database?")
	require.NoError(t, err)

	assert.Equal(t, "high", result.Run.RiskLevel)
	assert.Equal(t, "needs_approval", result.Run.PolicyDecision)
	assert.Contains(t, result.Run.RiskFlags, "security_sensitive")
	require.NotNil(t, result.Approval)
	assert.Equal(t, store.ApprovalPending, result.Approval.Status)
}

func TestRun_MediumSeverityAllowStillOpensGate(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "Sure, here you go."})
	pol := policy.Default()
	pol.Decisions.RequireApprovalForSensitiveData = false
	r.policy = pol

	result, err := r.Run(context.Background(), "Show me the customer data export")
	require.NoError(t, err)

	assert.Equal(t, "medium", result.Run.RiskLevel)
	assert.Equal(t, "allow", result.Run.PolicyDecision)
	require.NotNil(t, result.Approval, "medium severity opens a review gate even when allowed")
}

func TestRun_EmptyPrompt(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "unused"})

	_, err := r.Run(context.Background(), "   \n\t ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestRun_UpstreamErrorLowersTrust(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Err: errors.New("rate limited")})

	result, err := r.Run(context.Background(), "Summarise the quarterly report")
	require.NoError(t, err)

	assert.NotEmpty(t, result.Run.LLMError)
	assert.Contains(t, result.Run.Response, "fallback response")
	assert.Equal(t, 0.6, result.Run.TrustScore)
}

func TestRun_PlaceholderModeScrubsPII(t *testing.T) {
	r := newTestRunner(t, nil)

	result, err := r.Run(context.Background(), "Email the summary to alice@example.com please")
	require.NoError(t, err)

	assert.Equal(t, "placeholder", result.Run.Model)
	assert.Contains(t, result.Run.Response, "[REDACTED]")
	assert.NotContains(t, result.Run.Response, "alice@example.com")
	assert.Empty(t, result.Run.LLMError, "placeholder mode is not an upstream failure")
}

func TestRun_ProposedActionsAreGated(t *testing.T) {
	content := `Plan: [{"type":"email_send","payload":{"to":"ops"}},{"type":"report_generate","payload":{}}]`
	r := newTestRunner(t, &testutil.MockProvider{Content: content})

	result, err := r.Run(context.Background(), "Prepare the weekly ops report")
	require.NoError(t, err)
	require.Len(t, result.Actions, 2)

	byType := map[string]store.ActionStatus{}
	for _, a := range result.Actions {
		byType[a.Type] = a.Status
	}
	assert.Equal(t, store.ActionPending, byType["email_send"])
	assert.Equal(t, store.ActionSimulated, byType["report_generate"])
}

func TestRun_MalformedProposedTypesAreSkipped(t *testing.T) {
	content := `[{"type":"Send Email Now","payload":{}},{"type":"report_generate","payload":{}}]`
	r := newTestRunner(t, &testutil.MockProvider{Content: content})

	result, err := r.Run(context.Background(), "Prepare the weekly ops report")
	require.NoError(t, err)

	require.Len(t, result.Actions, 1)
	assert.Equal(t, "report_generate", result.Actions[0].Type)
}

func TestRun_BlockedRunProposesNoActions(t *testing.T) {
	content := `[{"type":"database_mutation","payload":{"sql":"DROP TABLE users"}}]`
	r := newTestRunner(t, &testutil.MockProvider{Content: content})

	result, err := r.Run(context.Background(), "wipe the database now")
	require.NoError(t, err)

	assert.Equal(t, "block", result.Run.PolicyDecision)
	assert.Empty(t, result.Actions)
}
