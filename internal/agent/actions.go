package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/Kushall-07/Ai-tower/internal/store"
)

var (
	// ErrActionNotPermitted means the run's review gate has not cleared the
	// action for execution.
	ErrActionNotPermitted = errors.New("action requires approval before execution")

	// ErrInvalidActionType rejects type tags that don't match the format the
	// policy's risky-type list uses, so gate comparisons cannot be dodged by
	// casing or whitespace.
	ErrInvalidActionType = errors.New("action type must be a lower-case tag ([a-z0-9_.-])")
)

var actionTypeRe = regexp.MustCompile(`^[a-z0-9_.-]+$`)

func validActionType(actionType string) bool {
	return actionTypeRe.MatchString(actionType)
}

// Simulate records an action against an existing run without executing it.
// Risky action types start pending; everything else is stored as simulated.
func (r *Runner) Simulate(ctx context.Context, runID int64, actionType string, payload map[string]interface{}) (*store.Action, error) {
	if !validActionType(actionType) {
		return nil, ErrInvalidActionType
	}
	if _, err := r.store.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return r.createGatedAction(ctx, runID, actionType, payload)
}

// Execute marks an action as executed with a stubbed result. An action in a
// terminal status fails before the gate is consulted. Execution is otherwise
// gated on the run's most recent approval: if one exists it must be in
// approved status. A run with no approval record was never flagged for
// review and is implicitly permitted.
func (r *Runner) Execute(ctx context.Context, actionID int64) (*store.Action, error) {
	action, err := r.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status.Terminal() {
		return nil, store.ErrActionTerminal
	}

	approval, err := r.store.LatestApprovalForRun(ctx, action.AgentRunID)
	switch {
	case errors.Is(err, store.ErrApprovalNotFound):
		// no gate for this run
	case err != nil:
		return nil, err
	case approval.Status != store.ApprovalApproved:
		return nil, ErrActionNotPermitted
	}

	result := map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Action %s simulated successfully", action.Type),
		"simulated": true,
	}
	if err := r.store.MarkExecuted(ctx, actionID, result); err != nil {
		return nil, err
	}

	log.Info().Int64("action_id", actionID).Str("type", action.Type).Msg("action_execution_recorded")
	return r.store.GetAction(ctx, actionID)
}

// Cancel marks a pending or simulated action as cancelled.
func (r *Runner) Cancel(ctx context.Context, actionID int64) (*store.Action, error) {
	if err := r.store.MarkCancelled(ctx, actionID); err != nil {
		return nil, err
	}
	return r.store.GetAction(ctx, actionID)
}
