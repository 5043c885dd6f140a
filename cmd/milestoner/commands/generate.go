package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/ingest"
	"github.com/milestoner/milestoner/pkg/render"
	"github.com/milestoner/milestoner/pkg/stores"
	"github.com/milestoner/milestoner/pkg/telemetry"
	"github.com/milestoner/milestoner/pkg/timeline"
)

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	var (
		names   []string
		noStore bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "generate <input>",
		Short: "Lay out and render timelines",
		Long: `Lay out every timeline in the input and render each one to
<output>/<name>_out.<format>.

Timelines are laid out concurrently; milestones within one timeline are
always placed in order. Each timeline is recorded as a run in the history
database together with its draw plan, unless --no-store is given.

With --watch the command keeps running and regenerates whenever the input
or styles file changes.`,
		Example: `  # Render every CPT sheet of a workbook as SVG into ./out
  milestoner generate plan.xlsx --output out

  # Render two timelines as JSON draw plans
  milestoner generate timelines.yaml --timeline CPT-Alpha --timeline CPT-Beta --format json

  # Regenerate on every save
  milestoner generate plan.xlsx --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts, !noStore)
			if err != nil {
				return err
			}
			defer e.close(context.Background())

			ctx := e.tel.WithContext(cmd.Context())
			g := &generator{env: e, input: args[0], names: names}

			results, err := g.run(ctx)
			if printErr := g.print(results); printErr != nil {
				return printErr
			}
			if !watch {
				return err
			}
			if err != nil {
				e.logger.Warn().Err(err).Msg("Initial generation incomplete, watching for changes")
			}

			addr, err := e.tel.StartMetricsServer(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				e.logger.Info().Str("addr", addr).Msg("Serving metrics")
			}

			paths := []string{g.input}
			if e.settings.Styles.Path != "" {
				paths = append(paths, e.settings.Styles.Path)
			}
			if dir := e.settings.Styles.Dir; dir != "" {
				for _, pattern := range []string{"*.yaml", "*.yml"} {
					files, _ := filepath.Glob(filepath.Join(dir, pattern))
					paths = append(paths, files...)
				}
			}
			watcher := ingest.NewWatcher(e.logger, e.settings.Watch.Debounce)
			return watcher.Watch(ctx, paths, func(ctx context.Context) error {
				results, err := g.run(ctx)
				if printErr := g.print(results); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}

	cmd.Flags().StringSliceVarP(&names, "timeline", "t", nil, "limit generation to specific timelines")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record runs in the history database")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "regenerate when the input changes")
	cmd.Flags().Int("workers", 4, "timelines laid out concurrently")
	cmd.Flags().String("trace", "none", "trace exporter: none, stdout or otlp")
	cmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this file")
	cmd.Flags().String("metrics-listen", "", "serve Prometheus metrics on this address in watch mode")
	addLayoutFlags(cmd)
	addOutputFlags(cmd)
	addStoreFlag(cmd)

	return cmd
}

// generator runs one generation pass over an input.
type generator struct {
	env   *env
	input string
	names []string
}

// generateResult is one line of the generation report.
type generateResult struct {
	Timeline   string `json:"timeline"`
	RunID      string `json:"run_id,omitempty"`
	Output     string `json:"output,omitempty"`
	Milestones int    `json:"milestones"`
	Duration   string `json:"duration"`
	Error      string `json:"error,omitempty"`
}

// run lays out, renders and records every selected timeline. Per-timeline
// failures are reported in the results and summarised in the error.
func (g *generator) run(ctx context.Context) ([]generateResult, error) {
	e := g.env
	s := e.settings

	timelines, err := e.loadTimelines(g.input, g.names)
	if err != nil {
		return nil, err
	}
	styles, err := e.loadStyles(timelines)
	if err != nil {
		return nil, err
	}
	layoutOpts, err := s.LayoutOptions()
	if err != nil {
		return nil, err
	}
	renderer, err := render.ForFormat(s.Output.Format, render.Options{Scale: s.Render.Scale})
	if err != nil {
		return nil, err
	}

	runs, err := g.startRuns(ctx, timelines)
	if err != nil {
		return nil, err
	}

	resolve := func(name string) (engine.StyleSource, error) {
		c, err := styles.Catalog(name)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	batch := engine.NewBatchWithResolver(resolve, s.Layout.Workers, e.logger, layoutOpts...)
	batch.SetObserver(e.tel)
	layouts, runErr := batch.Run(ctx, timelines)

	results := make([]generateResult, len(layouts))
	failed := 0
	for i, r := range layouts {
		tl := timelines[i]
		res := generateResult{Timeline: r.Timeline, Duration: r.Duration.Round(time.Microsecond).String()}
		if run := runs[tl.Name()]; run != nil {
			res.RunID = run.ID
		}

		err := r.Err
		if err == nil {
			res.Milestones = r.Plan.Summary.Milestones
			res.Output, err = g.write(ctx, renderer, tl, r.Plan)
		}
		if recErr := g.finishRun(ctx, runs[tl.Name()], r.Plan, res.Output, renderer.Format(), err); recErr != nil {
			e.logger.Error().Err(recErr).Str("timeline", tl.Name()).Msg("Failed to record run")
		}

		if err != nil {
			res.Error = err.Error()
			res.Output = ""
			failed++
		}
		results[i] = res
	}

	if err := e.tel.Metrics.WriteTextfile(s.Metrics.Textfile); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to write metrics")
	}

	if runErr != nil {
		return results, fmt.Errorf("generation interrupted: %w", runErr)
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d timelines failed", failed, len(results))
	}
	return results, nil
}

// write renders plan to the timeline's output file.
func (g *generator) write(ctx context.Context, r render.Renderer, tl *timeline.Timeline, plan *engine.DrawPlan) (path string, err error) {
	s := g.env.settings
	path = render.OutputPath(s.Output.Dir, tl.Name(), r.Format())

	op := telemetry.StartOperation(ctx, "render.write",
		telemetry.AttrTimeline.String(tl.Name()),
		attribute.String("render.format", r.Format()),
	)
	defer func() { op.End(err) }()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	if err := r.Render(f, plan, tl.Config()); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	g.env.tel.Metrics.RecordRender(r.Format())
	zl := op.Logger.Zerolog()
	zl.Debug().Str("path", path).Dur("duration", op.Duration()).Msg("Wrote output")
	return path, nil
}

// startRuns records a running run per timeline when a store is open.
func (g *generator) startRuns(ctx context.Context, timelines []*timeline.Timeline) (map[string]*stores.Run, error) {
	runs := make(map[string]*stores.Run, len(timelines))
	store := g.env.store
	if store == nil {
		return runs, nil
	}

	for _, tl := range timelines {
		cfg, err := json.Marshal(tl.Config())
		if err != nil {
			return nil, fmt.Errorf("failed to encode timeline parameters: %w", err)
		}
		run := &stores.Run{
			Timeline:  tl.Name(),
			InputPath: g.input,
			Format:    g.env.settings.Output.Format,
			Config:    string(cfg),
		}
		if err := store.CreateRun(ctx, run); err != nil {
			return nil, err
		}
		runs[tl.Name()] = run
		g.event(ctx, run.ID, stores.EventLevelInfo, "Layout started", nil)
	}
	return runs, nil
}

// finishRun stores the plan and final status of a run.
func (g *generator) finishRun(ctx context.Context, run *stores.Run, plan *engine.DrawPlan, output, format string, runErr error) error {
	store := g.env.store
	if store == nil || run == nil {
		return nil
	}
	// The run is recorded even if the command is being cancelled.
	ctx = context.WithoutCancel(ctx)

	if runErr != nil {
		msg := runErr.Error()
		details := map[string]string{}
		if class, code := engine.ClassOf(runErr); class != "" {
			details["class"], details["code"] = string(class), code
		}
		g.event(ctx, run.ID, stores.EventLevelError, msg, details)
		if plan != nil {
			if err := store.SaveDrawPlan(ctx, run.ID, plan); err != nil {
				return err
			}
		}
		return store.CompleteRun(ctx, run.ID, stores.RunStatusFailed, &msg)
	}

	if err := store.SaveDrawPlan(ctx, run.ID, plan); err != nil {
		return err
	}
	if err := store.UpdateRunOutput(ctx, run.ID, output, format); err != nil {
		return err
	}
	if plan.Summary.Skipped > 0 {
		g.event(ctx, run.ID, stores.EventLevelWarning, "Milestones skipped", plan.Summary)
	}
	g.event(ctx, run.ID, stores.EventLevelInfo, "Layout complete", plan.Summary)
	return store.CompleteRun(ctx, run.ID, stores.RunStatusCompleted, nil)
}

func (g *generator) event(ctx context.Context, runID string, level stores.EventLevel, msg string, details any) {
	event := &stores.Event{RunID: &runID, Level: level, Message: msg}
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			d := string(data)
			event.Details = &d
		}
	}
	if err := g.env.store.AppendEvent(ctx, event); err != nil {
		g.env.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to append event")
	}
}

func (g *generator) print(results []generateResult) error {
	if results == nil {
		return nil
	}
	if g.env.opts.jsonOutput {
		return g.env.printJSON(results)
	}

	w := tabwriter.NewWriter(g.env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMELINE\tMILESTONES\tOUTPUT\tSTATUS")
	for _, r := range results {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Timeline, r.Milestones, r.Output, status)
	}
	return w.Flush()
}
