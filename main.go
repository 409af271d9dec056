package main

import (
	"os"

	"github.com/Kushall-07/Ai-tower/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
