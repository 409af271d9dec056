package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Kushall-07/Ai-tower/internal/store"
)

var (
	logsLimit    int
	logsRisk     string
	logsDecision string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the signed run log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "logs.recent")
		defer span.End()

		t, err := buildTower(ctx)
		if err != nil {
			return err
		}
		defer t.Close()

		runs, err := t.store.ListRuns(ctx, store.RunFilter{
			RiskLevel:      logsRisk,
			PolicyDecision: logsDecision,
			Limit:          logsLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(runs)
	},
}

var logsAnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Aggregate run counts by risk level and policy decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "logs.analytics")
		defer span.End()

		t, err := buildTower(ctx)
		if err != nil {
			return err
		}
		defer t.Close()

		analytics, err := t.store.RunAnalytics(ctx)
		if err != nil {
			return err
		}
		return printJSON(analytics)
	},
}

var logsVerifyCmd = &cobra.Command{
	Use:   "verify <run-id>",
	Short: "Check a run's HMAC signature against its stored fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "logs.verify")
		defer span.End()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}

		t, err := buildTower(ctx)
		if err != nil {
			return err
		}
		defer t.Close()

		valid, err := t.store.VerifyRun(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"run_id": id, "signature_valid": valid})
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "maximum entries")
	logsCmd.Flags().StringVar(&logsRisk, "risk-level", "", "filter by risk level (low, medium, high)")
	logsCmd.Flags().StringVar(&logsDecision, "decision", "", "filter by policy decision (allow, block, needs_approval)")

	logsCmd.AddCommand(logsAnalyticsCmd, logsVerifyCmd)
	rootCmd.AddCommand(logsCmd)
}
