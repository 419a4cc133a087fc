package main

import (
	"os"

	"github.com/runnerr0/recall/internal/cli"
)

// Set at build time: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
