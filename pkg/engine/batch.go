package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/milestoner/milestoner/pkg/timeline"
)

// Observer is notified as the batch lays out each timeline. Observers are
// called from worker goroutines. The context returned by LayoutStarted is
// used for that timeline's layout and passed to LayoutFinished.
type Observer interface {
	LayoutStarted(ctx context.Context, name string) context.Context
	LayoutFinished(ctx context.Context, name string, plan *DrawPlan, err error, elapsed time.Duration)
}

// StyleResolver returns the style source for one timeline.
type StyleResolver func(timeline string) (StyleSource, error)

// Result is the outcome of laying out one timeline.
type Result struct {
	Timeline string
	Plan     *DrawPlan
	Err      error
	Duration time.Duration
}

// Batch lays out several timelines concurrently. Each timeline gets its own
// engine, so no layout state is shared between workers.
type Batch struct {
	styles   StyleResolver
	workers  int
	options  []Option
	observer Observer
	logger   zerolog.Logger
}

// NewBatch creates a batch runner that lays out every timeline with the same
// styles. workers <= 0 defaults to 4.
func NewBatch(styles StyleSource, workers int, logger zerolog.Logger, opts ...Option) *Batch {
	return NewBatchWithResolver(func(string) (StyleSource, error) { return styles, nil },
		workers, logger, opts...)
}

// NewBatchWithResolver creates a batch runner that asks styles for each
// timeline's style source. A resolver error fails only that timeline.
func NewBatchWithResolver(styles StyleResolver, workers int, logger zerolog.Logger, opts ...Option) *Batch {
	if workers <= 0 {
		workers = 4
	}
	return &Batch{
		styles:  styles,
		workers: workers,
		options: opts,
		logger:  logger,
	}
}

// SetObserver registers an observer for layout progress.
func (b *Batch) SetObserver(o Observer) {
	b.observer = o
}

// Run lays out every timeline and returns one result per timeline in input
// order. Per-timeline failures are reported in the results; the returned
// error is only set when ctx is cancelled before all timelines started.
func (b *Batch) Run(ctx context.Context, timelines []*timeline.Timeline) ([]Result, error) {
	results := make([]Result, len(timelines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, tl := range timelines {
		results[i].Timeline = tl.Name()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			results[i] = b.layoutOne(gctx, tl)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (b *Batch) layoutOne(ctx context.Context, tl *timeline.Timeline) Result {
	name := tl.Name()
	if b.observer != nil {
		ctx = b.observer.LayoutStarted(ctx, name)
	}

	start := time.Now()
	opts := append([]Option{WithName(name), WithLogger(b.logger)}, b.options...)

	var (
		plan *DrawPlan
		eng  *LayoutEngine
	)
	styles, err := b.styles(name)
	if err == nil {
		eng, err = NewLayoutEngine(tl.Config(), styles, opts...)
	}
	if err == nil {
		plan, err = eng.LayoutTimeline(ctx, tl)
	}
	elapsed := time.Since(start)

	if err != nil {
		b.logger.Error().Err(err).Str("timeline", name).Msg("Layout failed")
	} else {
		b.logger.Info().Str("timeline", name).
			Int("milestones", plan.Summary.Milestones).
			Dur("duration", elapsed).
			Msg("Timeline laid out")
	}
	if b.observer != nil {
		b.observer.LayoutFinished(ctx, name, plan, err, elapsed)
	}

	return Result{Timeline: name, Plan: plan, Err: err, Duration: elapsed}
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
