package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := insertTestRun(t, s, "low", "allow")

	action, err := s.CreateAction(ctx, run.ID, "report_generate",
		map[string]interface{}{"format": "csv"}, ActionSimulated)
	require.NoError(t, err)
	assert.Positive(t, action.ID)
	assert.Equal(t, ActionSimulated, action.Status)

	result := map[string]interface{}{"success": true, "simulated": true}
	require.NoError(t, s.MarkExecuted(ctx, action.ID, result))

	got, err := s.GetAction(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionExecuted, got.Status)
	require.NotNil(t, got.ExecutedAt)
	assert.Equal(t, true, got.ExecutionResult["success"])
	assert.Equal(t, "csv", got.Payload["format"])
}

func TestActionTerminalStates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := insertTestRun(t, s, "low", "allow")

	executed, err := s.CreateAction(ctx, run.ID, "api_call_external", nil, ActionPending)
	require.NoError(t, err)
	require.NoError(t, s.MarkExecuted(ctx, executed.ID, nil))

	assert.ErrorIs(t, s.MarkExecuted(ctx, executed.ID, nil), ErrActionTerminal)
	assert.ErrorIs(t, s.MarkCancelled(ctx, executed.ID), ErrActionTerminal)

	cancelled, err := s.CreateAction(ctx, run.ID, "file_delete", nil, ActionPending)
	require.NoError(t, err)
	require.NoError(t, s.MarkCancelled(ctx, cancelled.ID))

	assert.ErrorIs(t, s.MarkExecuted(ctx, cancelled.ID, nil), ErrActionTerminal)
	assert.ErrorIs(t, s.MarkCancelled(ctx, cancelled.ID), ErrActionTerminal)
}

func TestActionNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetAction(ctx, 404)
	assert.ErrorIs(t, err, ErrActionNotFound)
	assert.ErrorIs(t, s.MarkExecuted(ctx, 404, nil), ErrActionNotFound)
	assert.ErrorIs(t, s.MarkCancelled(ctx, 404), ErrActionNotFound)
}

func TestActionsByRunAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runA := insertTestRun(t, s, "low", "allow")
	runB := insertTestRun(t, s, "low", "allow")

	_, err := s.CreateAction(ctx, runA.ID, "report_generate", nil, ActionSimulated)
	require.NoError(t, err)
	_, err = s.CreateAction(ctx, runA.ID, "email_send", nil, ActionPending)
	require.NoError(t, err)
	_, err = s.CreateAction(ctx, runB.ID, "database_mutation", nil, ActionPending)
	require.NoError(t, err)

	byRun, err := s.ActionsByRun(ctx, runA.ID)
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	pending, err := s.ListActions(ctx, ActionPending, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := s.ListActions(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestActionStatusTerminal(t *testing.T) {
	assert.False(t, ActionPending.Terminal())
	assert.False(t, ActionSimulated.Terminal())
	assert.True(t, ActionExecuted.Terminal())
	assert.True(t, ActionCancelled.Terminal())
}
