// Package main provides the sst command.
package main

import (
	"os"

	"github.com/leapstack-labs/sst/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
