// Package main provides the entry point for the enginectl CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/amanmcp/cmd/enginectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
