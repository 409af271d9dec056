package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := insertTestRun(t, s, "high", "needs_approval")

	approval, err := s.CreateApproval(ctx, run.ID, "high", "needs_approval")
	require.NoError(t, err)
	assert.Positive(t, approval.ID)
	assert.Equal(t, ApprovalPending, approval.Status)
	assert.Nil(t, approval.DecidedAt)

	require.NoError(t, s.Approve(ctx, approval.ID, "ops@example.com", "reviewed and cleared"))

	got, err := s.GetApproval(ctx, approval.ID)
	require.NoError(t, err)
	assert.Equal(t, ApprovalApproved, got.Status)
	assert.Equal(t, "ops@example.com", got.DecidedBy)
	assert.Equal(t, "reviewed and cleared", got.DecisionReason)
	require.NotNil(t, got.DecidedAt)
	assert.WithinDuration(t, time.Now(), *got.DecidedAt, time.Minute)
}

func TestApprovalDecision_IsTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := insertTestRun(t, s, "high", "block")
	approval, err := s.CreateApproval(ctx, run.ID, "high", "block")
	require.NoError(t, err)

	require.NoError(t, s.Reject(ctx, approval.ID, "ops", "too risky"))

	// A decided approval cannot be decided again, in either direction.
	assert.ErrorIs(t, s.Approve(ctx, approval.ID, "ops", ""), ErrApprovalNotPending)
	assert.ErrorIs(t, s.Reject(ctx, approval.ID, "ops", ""), ErrApprovalNotPending)

	got, err := s.GetApproval(ctx, approval.ID)
	require.NoError(t, err)
	assert.Equal(t, ApprovalRejected, got.Status)
	assert.Equal(t, "too risky", got.DecisionReason)
}

func TestApprovalDecision_NotFound(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.Approve(context.Background(), 404, "ops", ""), ErrApprovalNotFound)
	assert.ErrorIs(t, s.Reject(context.Background(), 404, "ops", ""), ErrApprovalNotFound)
}

func TestLatestApprovalForRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := insertTestRun(t, s, "medium", "needs_approval")

	_, err := s.LatestApprovalForRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrApprovalNotFound)

	first, err := s.CreateApproval(ctx, run.ID, "medium", "needs_approval")
	require.NoError(t, err)
	second, err := s.CreateApproval(ctx, run.ID, "medium", "needs_approval")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	latest, err := s.LatestApprovalForRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestListApprovals_JoinsPrompt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := insertTestRun(t, s, "high", "needs_approval")
	approval, err := s.CreateApproval(ctx, run.ID, "high", "needs_approval")
	require.NoError(t, err)
	require.NoError(t, s.Approve(ctx, approval.ID, "ops", ""))

	pending, err := s.ListApprovals(ctx, ApprovalPending, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := s.ListApprovals(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "list all customers", all[0].Prompt)

	approved, err := s.ListApprovals(ctx, ApprovalApproved, 0)
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}
