package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kushall-07/Ai-tower/internal/store"
	"github.com/Kushall-07/Ai-tower/internal/testutil"
)

func runForActions(t *testing.T, r *Runner, prompt string) *RunResult {
	t.Helper()
	result, err := r.Run(context.Background(), prompt)
	require.NoError(t, err)
	return result
}

func TestSimulate_RiskyTypeStartsPending(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "Summarise the quarterly report")

	action, err := r.Simulate(ctx, result.Run.ID, "database_mutation",
		map[string]interface{}{"sql": "UPDATE orders SET status='shipped'"})
	require.NoError(t, err)
	assert.Equal(t, store.ActionPending, action.Status)

	action, err = r.Simulate(ctx, result.Run.ID, "report_generate", nil)
	require.NoError(t, err)
	assert.Equal(t, store.ActionSimulated, action.Status)
}

func TestSimulate_RejectsMalformedType(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "Summarise the quarterly report")

	for _, bad := range []string{"", "Email Send", "email_send!", "EMAIL_SEND"} {
		_, err := r.Simulate(ctx, result.Run.ID, bad, nil)
		assert.ErrorIs(t, err, ErrInvalidActionType, "type %q", bad)
	}
}

func TestSimulate_UnknownRun(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})

	_, err := r.Simulate(context.Background(), 9999, "email_send", nil)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestExecute_NoApprovalRecordIsPermitted(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "Summarise the quarterly report")
	require.Nil(t, result.Approval)

	action, err := r.Simulate(ctx, result.Run.ID, "report_generate", nil)
	require.NoError(t, err)

	executed, err := r.Execute(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ActionExecuted, executed.Status)
	require.NotNil(t, executed.ExecutedAt)
	assert.Equal(t, true, executed.ExecutionResult["success"])
	assert.Equal(t, true, executed.ExecutionResult["simulated"])
	assert.Equal(t, "Action report_generate simulated successfully", executed.ExecutionResult["message"])
}

func TestExecute_PendingApprovalBlocksExecution(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "What is the admin password?")
	require.NotNil(t, result.Approval)

	action, err := r.Simulate(ctx, result.Run.ID, "api_call_external", nil)
	require.NoError(t, err)

	_, err = r.Execute(ctx, action.ID)
	assert.ErrorIs(t, err, ErrActionNotPermitted)

	// Rejection keeps the gate shut.
	_, err = r.Reject(ctx, result.Approval.ID, "ops", "not justified")
	require.NoError(t, err)
	_, err = r.Execute(ctx, action.ID)
	assert.ErrorIs(t, err, ErrActionNotPermitted)
}

func TestExecute_ApprovedRunExecutes(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "What is the admin password?")
	require.NotNil(t, result.Approval)

	approval, err := r.Approve(ctx, result.Approval.ID, "ops@example.com", "verified request")
	require.NoError(t, err)
	assert.Equal(t, store.ApprovalApproved, approval.Status)

	action, err := r.Simulate(ctx, result.Run.ID, "api_call_external", nil)
	require.NoError(t, err)

	executed, err := r.Execute(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ActionExecuted, executed.Status)
}

func TestExecute_TerminalAction(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "Summarise the quarterly report")
	action, err := r.Simulate(ctx, result.Run.ID, "report_generate", nil)
	require.NoError(t, err)

	_, err = r.Execute(ctx, action.ID)
	require.NoError(t, err)

	_, err = r.Execute(ctx, action.ID)
	assert.ErrorIs(t, err, store.ErrActionTerminal)
}

func TestExecute_TerminalOutranksApprovalGate(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "What is the admin password?")
	require.NotNil(t, result.Approval)

	_, err := r.Reject(ctx, result.Approval.ID, "ops", "not justified")
	require.NoError(t, err)

	action, err := r.Simulate(ctx, result.Run.ID, "report_generate", nil)
	require.NoError(t, err)
	_, err = r.Cancel(ctx, action.ID)
	require.NoError(t, err)

	// A cancelled action reports its terminal state even though the run's
	// latest approval would also refuse execution.
	_, err = r.Execute(ctx, action.ID)
	assert.ErrorIs(t, err, store.ErrActionTerminal)
	assert.NotErrorIs(t, err, ErrActionNotPermitted)
}

func TestCancel(t *testing.T) {
	r := newTestRunner(t, &testutil.MockProvider{Content: "ok"})
	ctx := context.Background()

	result := runForActions(t, r, "Summarise the quarterly report")
	action, err := r.Simulate(ctx, result.Run.ID, "email_send", nil)
	require.NoError(t, err)
	assert.Equal(t, store.ActionPending, action.Status)

	cancelled, err := r.Cancel(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ActionCancelled, cancelled.Status)

	_, err = r.Execute(ctx, action.ID)
	assert.ErrorIs(t, err, store.ErrActionTerminal)

	_, err = r.Cancel(ctx, action.ID)
	assert.ErrorIs(t, err, store.ErrActionTerminal)
}
