// Package cli implements the cobra-based CLI commands for signupcheck.
//
// Each subcommand (check, watch, serve, allocate, tenants, plans) is defined
// in its own file within this package. This file defines the root command
// that owns the global flags and maps errors to exit codes.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/saaskit/signupcheck/internal/model"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput switches every command to machine-readable JSON output.
	jsonOutput bool

	// verbose forces debug-level logging on stderr.
	verbose bool

	// configPath is the optional YAML/JSON(C) configuration file.
	configPath string
)

// Build information, injected from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signupcheck",
		Short: "Debounced availability checks for SaaS tenant signup",
		Long: `signupcheck validates the port and subdomain a new tenant asks for.

Input is checked locally first (port range, subdomain length). Values that
pass are checked remotely once typing settles, against the tenants found
in Docker labels and configuration. The same rules are served over HTTP
by "signupcheck serve".`,

		// Errors are printed by Execute in text or JSON form.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SIGNUPCHECK_CONFIG"),
		"Configuration file (.yaml, .yml, .json, .jsonc)")

	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewAllocateCommand())
	rootCmd.AddCommand(NewTenantsCommand())
	rootCmd.AddCommand(NewPlansCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code carried by a
// returned *model.CLIError, or 1 for any other error.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(handleError(os.Stderr, err)))
	}
}

// handleError prints err and returns the exit code it maps to.
func handleError(w io.Writer, err error) model.ExitCode {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(w, cliErr.Message, cliErr.Err)
		return cliErr.Code
	}
	printError(w, err.Error(), nil)
	return model.ExitGeneralError
}

// printError writes an error message in text or JSON form. Errors always go
// to stderr so stdout stays parseable.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]any{"message": message}
		if underlying != nil {
			errObj["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]any{"error": errObj}, "", "  ")
		_, _ = fmt.Fprintln(w, string(data))
		return
	}
	if underlying != nil {
		_, _ = fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %s\n", message)
}

// IsJSONOutput reports whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
