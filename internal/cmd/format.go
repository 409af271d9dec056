package cmd

import (
	"encoding/json"
	"fmt"
	"os"
)

// printJSON writes indented JSON to stdout. All command output goes through
// here so results stay pipeable while logs land on stderr.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
