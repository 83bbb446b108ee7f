// tenants.go implements the "signupcheck tenants" command.
//
// tenants lists every subdomain and port currently claimed, from Docker
// container labels and the static tenants in configuration. These are the
// claims the availability checks compare against.

package cli

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saaskit/signupcheck/internal/docker"
	"github.com/saaskit/signupcheck/internal/model"
)

// tenantsFlags holds the flag values for the tenants command.
type tenantsFlags struct {
	// typ filters by saas.type: "tenant", "waiting" or "all".
	typ string
}

// NewTenantsCommand creates the "tenants" command.
func NewTenantsCommand() *cobra.Command {
	flags := &tenantsFlags{}

	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List claimed subdomains and ports",
		Long: `List every tenant the availability checks know about.

Tenants come from containers carrying saas.* labels and from the tenants
section of the configuration file. Static tenants have no container.

Examples:
  signupcheck tenants
  signupcheck tenants --type waiting
  signupcheck tenants --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch flags.typ {
			case "all", docker.TypeTenant, docker.TypeWaiting:
			default:
				return model.NewCLIError(model.ExitInvalidInput,
					fmt.Sprintf("invalid type filter %q: valid values are tenant, waiting, all", flags.typ))
			}

			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			src, cleanup, err := rt.tenantSource(ctx)
			defer cleanup()
			if err != nil {
				return err
			}
			tenants, err := src.Tenants(ctx)
			if err != nil {
				return model.WrapCLIError(model.ExitCheckFailed, "failed to list tenants", err)
			}

			tenants = filterTenants(tenants, flags.typ)
			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), tenantsResult{Tenants: tenants})
			}
			printTenantsText(cmd.OutOrStdout(), tenants)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.typ, "type", "all",
		"Filter by type: tenant, waiting, all")

	return cmd
}

// tenantsResult is the JSON output of the tenants command.
type tenantsResult struct {
	Tenants []model.Tenant `json:"tenants"`
}

// filterTenants keeps the tenants of the given type, sorted by subdomain.
// A static tenant without a type counts as "tenant". The result is never
// nil so JSON shows [] rather than null.
func filterTenants(tenants []model.Tenant, typ string) []model.Tenant {
	out := make([]model.Tenant, 0, len(tenants))
	for _, t := range tenants {
		if typ != "all" && tenantType(t) != typ {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b model.Tenant) int {
		return cmp.Or(cmp.Compare(a.Subdomain, b.Subdomain), cmp.Compare(a.Port, b.Port))
	})
	return out
}

func tenantType(t model.Tenant) string {
	if t.Type == "" {
		return docker.TypeTenant
	}
	return t.Type
}

// printTenantsText writes the tenant list as an aligned table:
//
//	SUBDOMAIN      PORT   TYPE      STATUS    CONTAINER
//	acme           8081   tenant    running   acme
//	globex         -      waiting   running   waiting_globex
func printTenantsText(w io.Writer, tenants []model.Tenant) {
	if len(tenants) == 0 {
		_, _ = fmt.Fprintln(w, "No tenants found.")
		return
	}

	_, _ = fmt.Fprintf(w, "%-24s %-6s %-9s %-9s %s\n",
		"SUBDOMAIN", "PORT", "TYPE", "STATUS", "CONTAINER")
	for _, t := range tenants {
		_, _ = fmt.Fprintf(w, "%-24s %-6s %-9s %-9s %s\n",
			orDash(t.Subdomain),
			FormatPort(t.Port),
			tenantType(t),
			orDash(t.Status),
			orDash(t.ContainerName),
		)
	}
}

// FormatPort renders a tenant port, "-" when none is assigned.
func FormatPort(p int) string {
	if p <= 0 {
		return "-"
	}
	return strconv.Itoa(p)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
