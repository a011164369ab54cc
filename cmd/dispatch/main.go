// Package main is the entry point for the dispatch CLI.
package main

import (
	"os"

	"github.com/shineum/dispatch/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
