// Package main is the entry point for slugctl, the operator CLI for the
// slug service: outbox inspection and redelivery, ad hoc resolution, and
// outbox schema migration.
package main

import (
	"fmt"
	"os"

	"github.com/summitupfitters/slugsvc/cmd/slugctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
