package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/milestoner/milestoner/pkg/render"
	"github.com/milestoner/milestoner/pkg/timeline"
)

func newReplayCommand(opts *rootOptions) *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-render a stored draw plan",
		Long: `Render the draw plan recorded for a run again, without reading the
original input. The plan is rendered exactly as it was laid out, so later
edits to the input or styles do not affect it.`,
		Example: `  # Re-render a run as SVG into ./out
  milestoner replay 3f2a... --output out

  # Print a stored plan as JSON
  milestoner replay 3f2a... --format json --stdout`,
		Args: cobra.ExactArgs(1),
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
			plan, err := e.store.LoadDrawPlan(ctx, run.ID)
			if err != nil {
				return err
			}

			var cfg timeline.Config
			if err := json.Unmarshal([]byte(run.Config), &cfg); err != nil {
				return fmt.Errorf("failed to decode stored timeline parameters: %w", err)
			}

			s := e.settings
			renderer, err := render.ForFormat(s.Output.Format, render.Options{Scale: s.Render.Scale})
			if err != nil {
				return err
			}

			if toStdout {
				return renderer.Render(e.out, plan, cfg)
			}

			path := render.OutputPath(s.Output.Dir, run.Timeline, renderer.Format())
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := renderer.Render(f, plan, cfg); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			e.logger.Info().Str("run_id", run.ID).Str("path", path).Msg("Replayed plan")
			fmt.Fprintln(e.out, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write to standard output instead of a file")
	addOutputFlags(cmd)
	addStoreFlag(cmd)

	return cmd
}
