package agent

import (
	"context"

	"github.com/Kushall-07/Ai-tower/internal/store"
)

// Approve records a human approval decision. decidedBy identifies the
// reviewer; reason is optional free text. The underlying transition is
// compare-and-set, so a second decision on the same record fails with
// store.ErrApprovalNotPending.
func (r *Runner) Approve(ctx context.Context, approvalID int64, decidedBy, reason string) (*store.Approval, error) {
	if err := r.store.Approve(ctx, approvalID, decidedBy, reason); err != nil {
		return nil, err
	}
	return r.store.GetApproval(ctx, approvalID)
}

// Reject records a human rejection decision.
func (r *Runner) Reject(ctx context.Context, approvalID int64, decidedBy, reason string) (*store.Approval, error) {
	if err := r.store.Reject(ctx, approvalID, decidedBy, reason); err != nil {
		return nil, err
	}
	return r.store.GetApproval(ctx, approvalID)
}
