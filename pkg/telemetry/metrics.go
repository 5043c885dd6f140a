package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milestoner/milestoner/pkg/engine"
)

// Metrics provides Prometheus metrics for layout runs.
type Metrics struct {
	config MetricsConfig

	layoutsStarted   prometheus.Counter
	layoutsCompleted *prometheus.CounterVec
	layoutDuration   *prometheus.HistogramVec

	milestonesPlaced *prometheus.CounterVec
	milestonesSkip   *prometheus.CounterVec
	overrides        *prometheus.CounterVec
	zonePlacements   *prometheus.CounterVec

	rendersWritten *prometheus.CounterVec

	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	activeLayouts prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		layoutsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layouts_started_total",
				Help:      "Total number of timeline layouts started",
			},
		),
		layoutsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layouts_completed_total",
				Help:      "Total number of timeline layouts completed",
			},
			[]string{"status"},
		),
		layoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_duration_seconds",
				Help:      "Duration of timeline layout in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		milestonesPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "milestones_placed_total",
				Help:      "Total number of milestones placed",
			},
			[]string{"timeline"},
		),
		milestonesSkip: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "milestones_skipped_total",
				Help:      "Total number of milestones skipped as invalid",
			},
			[]string{"timeline"},
		),
		overrides: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "track_overrides_total",
				Help:      "Total number of explicit track overrides applied",
			},
			[]string{"kind"},
		),
		zonePlacements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "zone_placements_total",
				Help:      "Total number of milestones placed per horizontal zone",
			},
			[]string{"zone"},
		),

		rendersWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_written_total",
				Help:      "Total number of rendered outputs written",
			},
			[]string{"format"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of layout errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of layout errors by error code",
			},
			[]string{"code"},
		),

		activeLayouts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_layouts",
				Help:      "Current number of layouts in progress",
			},
		),
	}

	registry.MustRegister(
		m.layoutsStarted,
		m.layoutsCompleted,
		m.layoutDuration,
		m.milestonesPlaced,
		m.milestonesSkip,
		m.overrides,
		m.zonePlacements,
		m.rendersWritten,
		m.errorsByClass,
		m.errorsByCode,
		m.activeLayouts,
	)

	return m, nil
}

// Registry returns the registry metrics are registered with, or nil when
// metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordLayoutStarted counts a layout that has begun.
func (m *Metrics) RecordLayoutStarted() {
	if m.registry == nil {
		return
	}
	m.layoutsStarted.Inc()
	m.activeLayouts.Inc()
}

// RecordLayoutCompleted records the outcome of one timeline layout.
func (m *Metrics) RecordLayoutCompleted(name string, plan *engine.DrawPlan, err error, duration time.Duration) {
	if m.registry == nil {
		return
	}
	status := "completed"
	if err != nil {
		status = "failed"
		class, code := engine.ClassOf(err)
		if class == "" {
			class = "internal"
		}
		m.RecordError(string(class), code)
	}
	m.layoutsCompleted.WithLabelValues(status).Inc()
	m.layoutDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeLayouts.Dec()

	if plan == nil {
		return
	}
	s := plan.Summary
	m.milestonesPlaced.WithLabelValues(name).Add(float64(s.Milestones))
	if s.Skipped > 0 {
		m.milestonesSkip.WithLabelValues(name).Add(float64(s.Skipped))
	}
	m.overrides.WithLabelValues("marker").Add(float64(s.MarkerOverrides))
	m.overrides.WithLabelValues("label").Add(float64(s.LabelOverrides))
	for zone, n := range s.Zones {
		m.zonePlacements.WithLabelValues(zone).Add(float64(n))
	}
}

// RecordRender counts a rendered output.
func (m *Metrics) RecordRender(format string) {
	if m.registry == nil {
		return
	}
	m.rendersWritten.WithLabelValues(format).Inc()
}

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.registry == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// WriteTextfile writes the current metrics to path in the Prometheus text
// format, for collection by node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves metrics until ctx is cancelled. It returns the
// bound address, or "" when metrics or the endpoint are disabled.
func (m *Metrics) StartMetricsServer(ctx context.Context, logger *Logger) (string, error) {
	if m.registry == nil || m.config.ListenAddress == "" {
		return "", nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	ln, err := net.Listen("tcp", m.config.ListenAddress)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", m.config.ListenAddress, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return ln.Addr().String(), nil
}
