package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPoliciesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List the lint policies validate runs",
		Example: `  # Show built-in policies
  milestoner policies

  # Include project policies
  milestoner policies --policy policies/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			defer e.close(context.Background())

			eng, err := e.loadPolicies(cmd.Context())
			if err != nil {
				return err
			}
			policies := eng.ListPolicies()

			if opts.jsonOutput {
				return e.printJSON(policies)
			}

			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSEVERITY\tENABLED\tSOURCE\tDESCRIPTION")
			for _, p := range policies {
				source := p.Source
				if source == "" {
					source = "built-in"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", p.Name, p.Severity, p.Enabled, source, p.Description)
			}
			return w.Flush()
		},
	}

	addPolicyFlag(cmd)

	return cmd
}
