// Package model holds the types shared by the validator, the availability
// service, the transport and the CLI: field kinds and validity, check
// results, tenants and plans.
//
// It also defines ExitCode and CLIError, which carry a process exit code up
// to the root command, and the two failure categories of a signup field:
// ConstraintError for local rule violations and ErrRemoteCheck for failed
// availability checks.
package model
