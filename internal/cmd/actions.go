package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Kushall-07/Ai-tower/internal/store"
)

var (
	actionsStatus  string
	actionsLimit   int
	actionsPayload string
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Inspect, execute and cancel recorded actions",
}

var actionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "actions.list")
		defer span.End()

		t, err := buildTower(ctx)
		if err != nil {
			return err
		}
		defer t.Close()

		actions, err := t.store.ListActions(ctx, store.ActionStatus(actionsStatus), actionsLimit)
		if err != nil {
			return err
		}
		return printJSON(actions)
	},
}

var actionsByRunCmd = &cobra.Command{
	Use:   "by-run <run-id>",
	Short: "List actions recorded for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "actions.by_run")
		defer span.End()

		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}

		t, err := buildTower(ctx)
		if err != nil {
			return err
		}
		defer t.Close()

		actions, err := t.store.ActionsByRun(ctx, runID)
		if err != nil {
			return err
		}
		return printJSON(actions)
	},
}

var actionsSimulateCmd = &cobra.Command{
	Use:   "simulate <run-id> <type>",
	Short: "Record a simulated action against a run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "actions.simulate")
		defer span.End()

		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}

		payload := map[string]interface{}{}
		if actionsPayload != "" {
			if err := json.Unmarshal([]byte(actionsPayload), &payload); err != nil {
				return fmt.Errorf("parse payload: %w", err)
			}
		}

		t, err := buildTower(ctx)
		if err != nil {
			return err
		}
		defer t.Close()

		action, err := t.runner.Simulate(ctx, runID, args[1], payload)
		if err != nil {
			return err
		}
		return printJSON(action)
	},
}

var actionsExecuteCmd = &cobra.Command{
	Use:   "execute <id>",
	Short: "Execute an action (requires clearance from the run's approval)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "actions.execute")
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

		action, err := t.runner.Execute(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(action)
	},
}

var actionsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending or simulated action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "actions.cancel")
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

		action, err := t.runner.Cancel(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(action)
	},
}

func init() {
	actionsListCmd.Flags().StringVar(&actionsStatus, "status", "", "filter by status (pending, simulated, executed, cancelled)")
	actionsListCmd.Flags().IntVar(&actionsLimit, "limit", 100, "maximum entries")
	actionsSimulateCmd.Flags().StringVar(&actionsPayload, "payload", "", "action payload as a JSON object")

	actionsCmd.AddCommand(actionsListCmd, actionsByRunCmd, actionsSimulateCmd, actionsExecuteCmd, actionsCancelCmd)
	rootCmd.AddCommand(actionsCmd)
}
