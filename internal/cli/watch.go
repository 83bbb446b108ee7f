// watch.go implements the "signupcheck watch" command.
//
// watch drives a field validator from a stream: every line read from stdin
// is one input-changed event, exactly as a browser fires them while the
// user types. Feedback is rendered as it changes, so fast typing produces
// only local feedback and a single availability check once input settles.

package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/saaskit/signupcheck/internal/model"
)

// watchFlags holds the flag values for the watch command.
type watchFlags struct {
	remote remoteFlags
	html   bool
}

// NewWatchCommand creates the "watch" command.
func NewWatchCommand() *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch <port|subdomain>",
		Short: "Validate a stream of input events read from stdin",
		Long: `Read one input value per line from stdin and validate it the way the
signup form does: local rules on every line, one availability check once
input has been quiet for validation.settle_delay.

At end of input any scheduled check is fired immediately and the exit code
reflects the last value.

Examples:
  printf 'a\nac\nacme\n' | signupcheck watch subdomain
  signupcheck watch port --server http://localhost:8069 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return runWatch(cmd, kind, flags)
		},
	}

	cmd.Flags().StringVar(&flags.remote.server, "server", "", "Check server base URL (default: validation.server_url)")
	cmd.Flags().BoolVar(&flags.remote.local, "local", false, "Answer checks in-process instead of calling a server")
	cmd.Flags().BoolVar(&flags.html, "html", false, "Render feedback as HTML fragments")
	cmd.MarkFlagsMutuallyExclusive("server", "local")

	return cmd
}

func runWatch(cmd *cobra.Command, kind model.Kind, flags *watchFlags) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	checker := rt.checker(flags.remote)
	defer checker.Close()

	v, err := rt.validator(kind, checker, newRenderer(cmd.OutOrStdout(), flags.html))
	if err != nil {
		return err
	}
	defer v.Close()

	n, err := feedLines(ctx, cmd.InOrStdin(), v.Input)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to read input", err)
	}
	rt.logger.DebugContext(ctx, "input closed", slog.Int("events", n))

	v.Flush()
	return settledError(v.State(), checker)
}

// feedLines calls input once per line of r until EOF or ctx is done and
// returns the number of lines delivered.
func feedLines(ctx context.Context, r io.Reader, input func(string)) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		input(sc.Text())
		n++
	}
	return n, sc.Err()
}
