// plans.go implements the "signupcheck plans" command.

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saaskit/signupcheck/internal/model"
	"github.com/saaskit/signupcheck/internal/plan"
)

// NewPlansCommand creates the "plans" command.
func NewPlansCommand() *cobra.Command {
	var selectID string

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Show the subscription plan picker",
		Long: `Show the active subscription plans in display order. Exactly one plan is
selected: the first one, or the one named by --select.

Examples:
  signupcheck plans
  signupcheck plans --select premium --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}

			sel, err := plan.New(rt.cfg.Plans)
			if errors.Is(err, plan.ErrNoPlans) {
				return model.WrapCLIError(model.ExitConfigError, "no plans to offer", err)
			}
			if err != nil {
				return model.WrapCLIError(model.ExitConfigError, "invalid plans", err)
			}
			if selectID != "" {
				if err := sel.Select(selectID); err != nil {
					return model.WrapCLIError(model.ExitInvalidInput, "cannot select plan", err)
				}
			}

			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), plansResult{
					Selected: sel.Selected().ID,
					Plans:    sel.Options(),
				})
			}
			printPlansText(cmd.OutOrStdout(), sel.Options())
			return nil
		},
	}

	cmd.Flags().StringVar(&selectID, "select", "", "Plan ID to select instead of the first")

	return cmd
}

type plansResult struct {
	Selected string        `json:"selected"`
	Plans    []plan.Option `json:"plans"`
}

// printPlansText writes one line per plan, marking the selected one:
//
//	* basic      Basic      9.00   sales,crm
//	  standard   Standard   19.00  sales,crm,stock
func printPlansText(w io.Writer, options []plan.Option) {
	for _, o := range options {
		mark := " "
		if o.Selected {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %-12s %-16s %8.2f  %s\n",
			mark, o.Plan.ID, o.Plan.Name, o.Plan.Price, FormatModules(o.Plan.Modules))
	}
}

// FormatModules joins a plan's modules with commas, "-" when it has none.
func FormatModules(modules []string) string {
	if len(modules) == 0 {
		return "-"
	}
	return strings.Join(modules, ",")
}
