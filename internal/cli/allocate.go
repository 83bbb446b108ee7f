// allocate.go implements the "signupcheck allocate" command.
//
// allocate suggests the next free tenant port, the value the signup form
// pre-fills before the user types anything. With --subdomain it also checks
// the subdomain and prints the saas.* labels a provisioner puts on the new
// tenant container.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/saaskit/signupcheck/internal/docker"
	"github.com/saaskit/signupcheck/internal/field"
	"github.com/saaskit/signupcheck/internal/model"
	"github.com/saaskit/signupcheck/internal/rpc"
)

// portAllocator is satisfied by both the in-process service and the RPC
// client.
type portAllocator interface {
	field.AvailabilityChecker
	AllocatePort(ctx context.Context) (int, error)
}

// allocateFlags holds the flag values for the allocate command.
type allocateFlags struct {
	remote    remoteFlags
	subdomain string
}

// allocateResult is the JSON output of the allocate command.
type allocateResult struct {
	Port   int               `json:"port"`
	Labels map[string]string `json:"labels,omitempty"`
}

// NewAllocateCommand creates the "allocate" command.
func NewAllocateCommand() *cobra.Command {
	flags := &allocateFlags{}

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Print the next free tenant port",
		Long: `Print the lowest port at or above ports.start that is not reserved and
not claimed by any tenant.

With --subdomain the subdomain is checked as well, and the Docker labels for
the new tenant container are printed. The command fails with exit code 6 if
the subdomain is taken.

Examples:
  signupcheck allocate
  signupcheck allocate --subdomain "Acme Corp"
  signupcheck allocate --server http://localhost:8069 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			alloc, cleanup, err := rt.allocator(ctx, flags.remote)
			defer cleanup()
			if err != nil {
				return err
			}

			res, err := allocate(ctx, alloc, flags.subdomain)
			if err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printAllocateText(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.remote.server, "server", "", "Check server base URL (default: validation.server_url)")
	cmd.Flags().BoolVar(&flags.remote.local, "local", false, "Allocate in-process instead of calling a server")
	cmd.Flags().StringVar(&flags.subdomain, "subdomain", "", "Also check this subdomain and print tenant labels")
	cmd.MarkFlagsMutuallyExclusive("server", "local")

	return cmd
}

// allocator returns the port allocator selected by flags.
func (rt *runtime) allocator(ctx context.Context, f remoteFlags) (portAllocator, func(), error) {
	if url := f.serverURL(rt.cfg); url != "" {
		c, err := rpc.NewClient(url, rpc.WithClientLogger(rt.logger))
		if err != nil {
			return nil, func() {}, model.WrapCLIError(model.ExitConfigError, "invalid check server URL", err)
		}
		return c, func() {}, nil
	}
	return rt.service(ctx)
}

// allocate picks a port and, when subdomain is set, verifies the subdomain
// and builds the tenant's container labels.
func allocate(ctx context.Context, alloc portAllocator, subdomain string) (allocateResult, error) {
	var sub string
	if subdomain != "" {
		var (
			validity model.Validity
			err      error
		)
		sub, validity, err = field.CheckLocal(model.KindSubdomain, subdomain)
		if err != nil {
			return allocateResult{}, model.WrapCLIError(model.ExitCodeFor(validity), "invalid subdomain", err)
		}
		if validity == model.ValidityEmpty {
			return allocateResult{}, model.NewCLIError(model.ExitInvalidInput, "invalid subdomain: empty after normalization")
		}

		check, err := alloc.Check(ctx, model.KindSubdomain, sub)
		if err != nil {
			return allocateResult{}, model.WrapCLIError(model.ExitCheckFailed, "subdomain check failed", err)
		}
		if !check.Available {
			return allocateResult{}, model.NewCLIError(model.ExitUnavailable, check.Message)
		}
	}

	p, err := alloc.AllocatePort(ctx)
	if err != nil {
		// The in-process service already returns a CLIError.
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			return allocateResult{}, err
		}
		return allocateResult{}, model.WrapCLIError(model.ExitPortAllocationFailed, "port allocation failed", err)
	}
	res := allocateResult{Port: p}
	if sub != "" {
		res.Labels = docker.BuildLabels(model.Tenant{Subdomain: sub, Port: p, Type: docker.TypeTenant})
	}
	return res, nil
}

// printAllocateText prints the port, then one docker --label flag per
// label in key order:
//
//	8083
//	--label saas.port=8083
//	--label saas.tenant=acmecorp
//	--label saas.type=tenant
func printAllocateText(w io.Writer, res allocateResult) {
	_, _ = fmt.Fprintln(w, res.Port)

	for _, k := range slices.Sorted(maps.Keys(res.Labels)) {
		_, _ = fmt.Fprintf(w, "--label %s=%s\n", k, res.Labels[k])
	}
}
