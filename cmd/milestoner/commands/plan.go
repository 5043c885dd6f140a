package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/render"
)

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "plan <input>",
		Short: "Print the draw plan for one timeline",
		Long: `Lay out one timeline and print its draw plan as JSON without rendering
or recording anything.

The plan lists connectors, markers and labels in draw order with their
positions, tracks and styles. --timeline is required when the input holds
more than one timeline.`,
		Example: `  # Print the plan of the only timeline in a file
  milestoner plan timelines.yaml

  # Inspect label placement for one sheet
  milestoner plan plan.xlsx --timeline CPT-Alpha --debug-labels`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts, false)
			if err != nil {
				return err
			}
			defer e.close(context.Background())

			var names []string
			if name != "" {
				names = []string{name}
			}
			timelines, err := e.loadTimelines(args[0], names)
			if err != nil {
				return err
			}
			if len(timelines) != 1 {
				return fmt.Errorf("input holds %d timelines, choose one with --timeline", len(timelines))
			}
			tl := timelines[0]

			styles, err := e.loadStyles(timelines)
			if err != nil {
				return err
			}
			catalog, err := styles.Catalog(tl.Name())
			if err != nil {
				return err
			}
			layoutOpts, err := e.settings.LayoutOptions()
			if err != nil {
				return err
			}
			layoutOpts = append(layoutOpts, engine.WithName(tl.Name()), engine.WithLogger(e.logger))

			eng, err := engine.NewLayoutEngine(tl.Config(), catalog, layoutOpts...)
			if err != nil {
				return err
			}

			ctx := e.tel.WithContext(cmd.Context())
			ctx, span := e.tel.Tracer.StartLayoutSpan(ctx, tl.Name())
			plan, err := eng.LayoutTimeline(ctx, tl)
			span.End()
			if err != nil {
				return err
			}

			return render.NewJSONRenderer().Render(e.out, plan, tl.Config())
		},
	}

	cmd.Flags().StringVarP(&name, "timeline", "t", "", "timeline to plan")
	addLayoutFlags(cmd)

	return cmd
}
