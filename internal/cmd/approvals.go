package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Kushall-07/Ai-tower/internal/store"
)

var (
	approvalsStatus string
	approvalsLimit  int
	decidedBy       string
	decisionReason  string
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Inspect and decide pending approvals",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approvals (pending by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "approvals.list")
		defer span.End()

		t, err := buildTower(ctx)
		if err != nil {
			return err
		}
		defer t.Close()

		approvals, err := t.store.ListApprovals(ctx, store.ApprovalStatus(approvalsStatus), approvalsLimit)
		if err != nil {
			return err
		}
		return printJSON(approvals)
	},
}

var approvalsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decideApproval(cmd, args[0], true)
	},
}

var approvalsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decideApproval(cmd, args[0], false)
	},
}

func decideApproval(cmd *cobra.Command, rawID string, approve bool) error {
	ctx, span := tracer.Start(cmd.Context(), "approvals.decide")
	defer span.End()

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return err
	}

	t, err := buildTower(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	var approval *store.Approval
	if approve {
		approval, err = t.runner.Approve(ctx, id, decidedBy, decisionReason)
	} else {
		approval, err = t.runner.Reject(ctx, id, decidedBy, decisionReason)
	}
	if err != nil {
		return err
	}
	return printJSON(approval)
}

func init() {
	approvalsListCmd.Flags().StringVar(&approvalsStatus, "status", "pending", "filter by status (pending, approved, rejected, empty for all)")
	approvalsListCmd.Flags().IntVar(&approvalsLimit, "limit", 100, "maximum entries")

	for _, c := range []*cobra.Command{approvalsApproveCmd, approvalsRejectCmd} {
		c.Flags().StringVar(&decidedBy, "by", "cli", "reviewer identity")
		c.Flags().StringVar(&decisionReason, "reason", "", "decision reason")
	}

	approvalsCmd.AddCommand(approvalsListCmd, approvalsApproveCmd, approvalsRejectCmd)
	rootCmd.AddCommand(approvalsCmd)
}
