package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/milestoner/milestoner/pkg/stores"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		name   string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		Long: `List the runs recorded by generate, newest first.

Use 'history show <run-id>' to print one run with its event log.`,
		Example: `  # Show the last 20 runs
  milestoner history

  # Show runs of one timeline
  milestoner history --timeline CPT-Alpha --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setupWithStore(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close(context.Background())

			runs, err := e.store.ListRuns(cmd.Context(), name, limit, offset)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return e.printJSON(runs)
			}

			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tTIMELINE\tSTATUS\tSTARTED\tOUTPUT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Timeline, r.Status, r.StartedAt.Local().Format(time.DateTime), r.OutputPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&name, "timeline", "t", "", "only show runs of this timeline")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many runs")
	cmd.PersistentFlags().String("store", "milestoner.db", "run history database")

	cmd.AddCommand(newHistoryShowCommand(opts))

	return cmd
}

func newHistoryShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setupWithStore(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close(context.Background())

			ctx := cmd.Context()
			run, err := e.store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			events, err := e.store.GetEvents(ctx, &run.ID, nil, 0, 0)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return e.printJSON(struct {
					Run    *stores.Run     `json:"run"`
					Events []*stores.Event `json:"events"`
				}{run, events})
			}

			fmt.Fprintf(e.out, "Run:      %s\n", run.ID)
			fmt.Fprintf(e.out, "Timeline: %s\n", run.Timeline)
			fmt.Fprintf(e.out, "Input:    %s\n", run.InputPath)
			fmt.Fprintf(e.out, "Status:   %s\n", run.Status)
			if run.OutputPath != "" {
				fmt.Fprintf(e.out, "Output:   %s\n", run.OutputPath)
			}
			if run.PlanID != nil {
				fmt.Fprintf(e.out, "Plan:     %s\n", *run.PlanID)
			}
			if run.Error != nil {
				fmt.Fprintf(e.out, "Error:    %s\n", *run.Error)
			}

			fmt.Fprintln(e.out)
			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tLEVEL\tMESSAGE\tDETAILS")
			for _, ev := range events {
				details := ""
				if ev.Details != nil {
					details = *ev.Details
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					ev.Timestamp.Local().Format(time.TimeOnly), ev.Level, ev.Message, details)
			}
			return w.Flush()
		},
	}
}

// setupWithStore is setup for commands that only make sense with a store.
func setupWithStore(cmd *cobra.Command, opts *rootOptions) (*env, error) {
	e, err := setup(cmd, opts, true)
	if err != nil {
		return nil, err
	}
	if e.store == nil {
		_ = e.close(context.Background())
		return nil, fmt.Errorf("no run history database configured (set store.path)")
	}
	return e, nil
}
