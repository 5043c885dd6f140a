package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// timelineInfo summarises one timeline for list.
type timelineInfo struct {
	Name       string `json:"name"`
	Milestones int    `json:"milestones"`
	Start      string `json:"start"`
	End        string `json:"end"`
	First      string `json:"first,omitempty"`
	Last       string `json:"last,omitempty"`
	Levels     []int  `json:"levels"`
}

func newListCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <input>",
		Short: "List the timelines in an input file",
		Example: `  # List the CPT sheets of a workbook
  milestoner list plan.xlsx

  # List timelines as JSON
  milestoner list timelines.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			defer e.close(context.Background())

			timelines, err := e.loadTimelines(args[0], nil)
			if err != nil {
				return err
			}

			const day = "2006-01-02"
			infos := make([]timelineInfo, 0, len(timelines))
			for _, tl := range timelines {
				cfg := tl.Config()
				info := timelineInfo{
					Name:       tl.Name(),
					Milestones: tl.Len(),
					Start:      cfg.StartDate.Format(day),
					End:        cfg.EndDate.Format(day),
					Levels:     tl.Levels(),
				}
				if first, last, ok := tl.DateSpan(); ok {
					info.First = first.Format(day)
					info.Last = last.Format(day)
				}
				infos = append(infos, info)
			}

			if opts.jsonOutput {
				return e.printJSON(infos)
			}

			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMILESTONES\tAXIS\tDATES\tLEVELS")
			for _, info := range infos {
				dates := "-"
				if info.First != "" {
					dates = info.First + ".." + info.Last
				}
				fmt.Fprintf(w, "%s\t%d\t%s..%s\t%s\t%v\n",
					info.Name, info.Milestones, info.Start, info.End, dates, info.Levels)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("sheet-prefix", "CPT", "workbook sheets holding timelines start with this prefix")

	return cmd
}
