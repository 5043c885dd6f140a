// Package telemetry provides logging, tracing and metrics for milestoner.
//
// Structured logging uses zerolog, tracing uses OpenTelemetry with stdout or
// OTLP gRPC exporters, and metrics use Prometheus.
//
// # Usage
//
// Initialize telemetry at startup and hand it to the layout batch as its
// observer:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Tracing.Exporter = "stdout"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	batch := engine.NewBatch(styles, 4, tel.Logger.Zerolog())
//	batch.SetObserver(tel)
//
// Every timeline layout becomes one "timeline.layout" span carrying the
// timeline name, plan ID and override counts. A failed layout records the
// error class and code from engine.LayoutError.
//
// # Metrics
//
// Metrics are registered on a private registry, not the global one:
//
//	milestoner_layouts_started_total
//	milestoner_layouts_completed_total{status}
//	milestoner_layout_duration_seconds{status}
//	milestoner_milestones_placed_total{timeline}
//	milestoner_milestones_skipped_total{timeline}
//	milestoner_track_overrides_total{kind}
//	milestoner_zone_placements_total{zone}
//	milestoner_renders_written_total{format}
//	milestoner_errors_by_class_total{class}
//	milestoner_errors_by_code_total{code}
//	milestoner_active_layouts
//
// One-shot commands write them to MetricsConfig.Textfile on Shutdown. Watch
// mode serves them over HTTP when MetricsConfig.ListenAddress is set.
package telemetry
