package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kushall-07/Ai-tower/internal/doctor"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and runtime problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "doctor")
		defer span.End()

		report := doctor.Run(ctx)
		if doctorJSON {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			for _, c := range report.Checks {
				fmt.Printf("[%s] %s: %s\n", c.Status, c.Name, c.Message)
				if c.Fix != "" {
					fmt.Printf("       fix: %s\n", c.Fix)
				}
			}
			fmt.Printf("\n%d pass, %d warn, %d fail\n", report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
		}
		if report.Status == "fail" {
			return fmt.Errorf("doctor found failing checks")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "emit the report as JSON")
	rootCmd.AddCommand(doctorCmd)
}
