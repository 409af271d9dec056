package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kushall-07/Ai-tower/internal/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate <policy-file>",
	Short: "Validate a policy file against the schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "validate")
		defer span.End()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		pol, err := policy.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Printf("%s is valid (version %s)\n", args[0], pol.VersionTag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
