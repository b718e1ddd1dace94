// Command orthoatlas is the OrthoAtlas binary: dataset queries against local
// or object-store artifacts, and the serve command hosting the HTTP API.
package main

import (
	"os"

	"github.com/orthoatlas/orthoatlas/internal/interfaces/cli"
)

// Overridden at build time, e.g. -ldflags "-X main.version=v1.2.0".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.Version, cli.GitCommit, cli.BuildDate = version, commit, date

	// Execute prints the failure itself; main only sets the exit code.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
