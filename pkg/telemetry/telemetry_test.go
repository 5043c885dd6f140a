package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milestoner/milestoner/pkg/engine"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logging.Format = "json"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "no service", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) { c.Tracing.Exporter = "jaeger" }, wantErr: true},
		{name: "otlp without endpoint", mutate: func(c *Config) { c.Tracing.Exporter = "otlp" }, wantErr: true},
		{name: "otlp with endpoint", mutate: func(c *Config) {
			c.Tracing.Exporter = "otlp"
			c.Tracing.Endpoint = "localhost:4317"
		}},
		{name: "sampling above one", mutate: func(c *Config) { c.Tracing.SamplingRate = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.NewComponentLogger("layout").WithTimeline("CPT-Alpha").WithRunID("run-1").Debug("Placed milestone")

	out := buf.String()
	assert.Contains(t, out, `"component":"layout"`)
	assert.Contains(t, out, `"timeline":"CPT-Alpha"`)
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"message":"Placed milestone"`)
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LoggingConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LoggingConfig{Level: "info", Format: "json"})

	ctx := logger.WithField("k", "v").WithContext(context.Background())
	FromContext(ctx).Info("from context")

	assert.Contains(t, buf.String(), `"k":"v"`)
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel("debug").String())
	assert.Equal(t, "info", ParseLevel("bogus").String())
}

func TestMetricsRecordLayout(t *testing.T) {
	m, err := NewMetrics(testConfig().Metrics)
	require.NoError(t, err)

	plan := &engine.DrawPlan{
		ID: "plan-1",
		Summary: engine.Summary{
			Milestones:      3,
			Skipped:         1,
			MarkerOverrides: 1,
			LabelOverrides:  2,
			Zones:           map[string]int{"left": 2, "right": 1},
		},
	}

	m.RecordLayoutStarted()
	m.RecordLayoutCompleted("CPT-Alpha", plan, nil, 10*time.Millisecond)
	m.RecordLayoutStarted()
	m.RecordLayoutCompleted("CPT-Beta", nil,
		engine.NewConfigurationError("bad range", nil).WithCode(engine.ErrCodeDegenerateRange), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.layoutsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.layoutsCompleted.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.layoutsCompleted.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeLayouts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.milestonesPlaced.WithLabelValues("CPT-Alpha")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.milestonesSkip.WithLabelValues("CPT-Alpha")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.overrides.WithLabelValues("label")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.zonePlacements.WithLabelValues("left")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsByClass.WithLabelValues("configuration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsByCode.WithLabelValues(engine.ErrCodeDegenerateRange)))
}

func TestMetricsUnclassifiedError(t *testing.T) {
	m, err := NewMetrics(testConfig().Metrics)
	require.NoError(t, err)

	m.RecordLayoutStarted()
	m.RecordLayoutCompleted("CPT-Alpha", nil, errors.New("boom"), time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsByClass.WithLabelValues("internal")))
}

func TestMetricsDisabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	// No-ops must not panic
	m.RecordLayoutStarted()
	m.RecordLayoutCompleted("x", nil, nil, 0)
	m.RecordRender("svg")
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "none.prom")))

	addr, err := m.StartMetricsServer(context.Background(), FromContext(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, addr)
}

func TestMetricsTextfile(t *testing.T) {
	m, err := NewMetrics(testConfig().Metrics)
	require.NoError(t, err)
	m.RecordRender("svg")

	path := filepath.Join(t.TempDir(), "milestoner.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `milestoner_renders_written_total{format="svg"} 1`)
}

func TestMetricsServer(t *testing.T) {
	cfg := testConfig().Metrics
	cfg.ListenAddress = "127.0.0.1:0"
	m, err := NewMetrics(cfg)
	require.NoError(t, err)
	m.RecordRender("json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := m.StartMetricsServer(ctx, FromContext(ctx))
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "milestoner_renders_written_total")
}

func TestTracerStdout(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := newTracer(TracingConfig{Exporter: "stdout", SamplingRate: 1}, "milestoner", "test", &buf)
	require.NoError(t, err)

	ctx, span := tracer.StartLayoutSpan(context.Background(), "CPT-Alpha")
	assert.NotEmpty(t, TraceID(ctx))
	RecordSuccess(span)
	span.End()

	require.NoError(t, tracer.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "timeline.layout")
	assert.Contains(t, buf.String(), "CPT-Alpha")
}

func TestTracerDisabled(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Exporter: "none"}, "milestoner", "test")
	require.NoError(t, err)

	ctx, span := tracer.StartLayoutSpan(context.Background(), "CPT-Alpha")
	span.End()
	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestTelemetryObserver(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "layout.prom")
	tel, err := NewTelemetryWithLogger(cfg, NewWriterLogger(&buf, LoggingConfig{Level: "info", Format: "json"}))
	require.NoError(t, err)

	ctx := tel.LayoutStarted(context.Background(), "CPT-Alpha")
	FromContext(ctx).Info("inside layout")
	tel.LayoutFinished(ctx, "CPT-Alpha", &engine.DrawPlan{ID: "p", Summary: engine.Summary{Milestones: 2}}, nil, time.Millisecond)

	assert.Contains(t, buf.String(), `"timeline":"CPT-Alpha"`)
	assert.Equal(t, 2.0, testutil.ToFloat64(tel.Metrics.milestonesPlaced.WithLabelValues("CPT-Alpha")))

	require.NoError(t, tel.Shutdown(context.Background()))
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "milestoner_layouts_completed_total"))
}

func TestStartOperationWithoutTelemetry(t *testing.T) {
	op := StartOperation(context.Background(), "render.write")
	op.End(errors.New("ignored"))
	assert.GreaterOrEqual(t, op.Duration(), time.Duration(0))
}
