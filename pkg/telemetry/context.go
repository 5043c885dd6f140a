package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/milestoner/milestoner/pkg/engine"
)

// Telemetry combines logging, tracing and metrics.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return newTelemetry(cfg, logger)
}

// NewTelemetryWithLogger creates a telemetry instance around an existing
// logger. The logging section of cfg is ignored.
func NewTelemetryWithLogger(cfg *Config, logger *Logger) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newTelemetry(cfg, logger)
}

func newTelemetry(cfg *Config, logger *Logger) (*Telemetry, error) {
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance and its logger to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown flushes pending spans and writes the metrics textfile if one is
// configured.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	metricsErr := t.Metrics.WriteTextfile(t.Config.Metrics.Textfile)
	tracerErr := t.Tracer.Shutdown(ctx)
	return errors.Join(metricsErr, tracerErr)
}

// StartMetricsServer starts the metrics HTTP server if an address is configured.
func (t *Telemetry) StartMetricsServer(ctx context.Context) (string, error) {
	return t.Metrics.StartMetricsServer(ctx, t.Logger)
}

// layoutSpanKey is the context key for layout spans.
type layoutSpanKey struct{}

// LayoutStarted implements engine.Observer. It opens the timeline's span and
// attaches a timeline-scoped logger to the returned context.
func (t *Telemetry) LayoutStarted(ctx context.Context, name string) context.Context {
	ctx, span := t.Tracer.StartLayoutSpan(ctx, name)
	t.Metrics.RecordLayoutStarted()

	logger := t.Logger.WithTimeline(name)
	if id := TraceID(ctx); id != "" {
		logger = logger.WithField("trace_id", id)
	}
	ctx = logger.WithContext(ctx)
	return context.WithValue(ctx, layoutSpanKey{}, span)
}

// LayoutFinished implements engine.Observer.
func (t *Telemetry) LayoutFinished(ctx context.Context, name string, plan *engine.DrawPlan, err error, elapsed time.Duration) {
	t.Metrics.RecordLayoutCompleted(name, plan, err, elapsed)

	span, ok := ctx.Value(layoutSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if plan != nil {
		span.SetAttributes(
			AttrPlanID.String(plan.ID),
			AttrMilestones.Int(plan.Summary.Milestones),
			AttrMarkerOverrides.Int(plan.Summary.MarkerOverrides),
			AttrLabelOverrides.Int(plan.Summary.LabelOverrides),
		)
	}
	if err != nil {
		if class, code := engine.ClassOf(err); class != "" {
			span.SetAttributes(AttrErrorClass.String(string(class)), AttrErrorCode.String(code))
		}
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	span.End()
}

var _ engine.Observer = (*Telemetry)(nil)

// InstrumentedContext carries the span and logger for one operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	start  time.Time
}

// StartOperation begins an instrumented operation with logging and tracing.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:    ctx,
			Span:   trace.SpanFromContext(context.Background()),
			Logger: FromContext(ctx),
			start:  time.Now(),
		}
	}

	spanCtx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)
	logger := FromContext(ctx).WithField("operation", operation)

	return &InstrumentedContext{
		Ctx:    spanCtx,
		Span:   span,
		Logger: logger,
		start:  time.Now(),
	}
}

// Duration returns the time since the operation started.
func (ic *InstrumentedContext) Duration() time.Duration {
	return time.Since(ic.start)
}

// End finishes the operation, recording success or failure on its span.
func (ic *InstrumentedContext) End(err error) {
	if err != nil {
		RecordError(ic.Span, err)
	} else {
		RecordSuccess(ic.Span)
	}
	ic.Span.End()
}
