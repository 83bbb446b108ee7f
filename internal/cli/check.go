// check.go implements the "signupcheck check" command.
//
// check runs a single validation cycle for one value: the local rules
// first, then the availability check without waiting for the settle delay.
// The settled state is reported through the selected renderer and mapped
// to the process exit code.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saaskit/signupcheck/internal/model"
)

// checkFlags holds the flag values for the check command.
type checkFlags struct {
	remote remoteFlags
	html   bool
}

// NewCheckCommand creates the "check" command.
func NewCheckCommand() *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check <port|subdomain> <value>",
		Short: "Check one port or subdomain",
		Long: `Run one validation cycle for a value and exit with its outcome.

Exit codes:
  0  available
  2  rejected locally (out of range, too short, empty)
  3  the Docker daemon is unreachable
  5  the remote check failed
  6  already taken

Examples:
  signupcheck check port 8082
  signupcheck check subdomain "My Shop" --server http://localhost:8069
  signupcheck check subdomain acme --local --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return runCheck(cmd, kind, args[1], flags)
		},
	}

	cmd.Flags().StringVar(&flags.remote.server, "server", "", "Check server base URL (default: validation.server_url)")
	cmd.Flags().BoolVar(&flags.remote.local, "local", false, "Answer checks in-process instead of calling a server")
	cmd.Flags().BoolVar(&flags.html, "html", false, "Render feedback as HTML fragments")
	cmd.MarkFlagsMutuallyExclusive("server", "local")

	return cmd
}

// runCheck feeds value to a validator, fires the check without waiting for
// the settle delay, and maps the final state to an exit code.
func runCheck(cmd *cobra.Command, kind model.Kind, value string, flags *checkFlags) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	checker := rt.checker(flags.remote)
	defer checker.Close()

	v, err := rt.validator(kind, checker, newRenderer(cmd.OutOrStdout(), flags.html))
	if err != nil {
		return err
	}
	defer v.Close()

	v.Input(value)
	v.Flush()

	return settledError(v.State(), checker)
}

// stateError converts a settled field state into the command's result.
func stateError(state model.FieldState) error {
	code := model.ExitCodeFor(state.Validity)
	if code == model.ExitSuccess {
		return nil
	}
	msg := state.Message
	if msg == "" {
		msg = fmt.Sprintf("value is %s", state.Validity)
	}
	return model.NewCLIError(code, msg)
}
