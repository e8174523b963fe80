// Package main provides the genmigrate CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/genmigrate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
