// Package main is the entry point for the signupcheck CLI.
//
// All commands live in internal/cli. Build-time variables are injected via
// ldflags; during development they default to "dev", "none" and "unknown".
package main

import (
	"github.com/saaskit/signupcheck/internal/cli"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
