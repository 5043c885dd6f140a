package config

import (
	"time"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/telemetry"
)

// Settings holds the application settings resolved from defaults, the config
// file, MILESTONER_ environment variables and command flags.
type Settings struct {
	Log     LogSettings     `mapstructure:"log"`
	Store   StoreSettings   `mapstructure:"store"`
	Output  OutputSettings  `mapstructure:"output"`
	Render  RenderSettings  `mapstructure:"render"`
	Styles  StyleSettings   `mapstructure:"styles"`
	Ingest  IngestSettings  `mapstructure:"ingest"`
	Layout  LayoutSettings  `mapstructure:"layout"`
	Tracing TracingSettings `mapstructure:"tracing"`
	Metrics MetricsSettings `mapstructure:"metrics"`
	Watch   WatchSettings   `mapstructure:"watch"`
	Policy  PolicySettings  `mapstructure:"policy"`

	// File is the config file that was read, or "" when none was found.
	File string `mapstructure:"-"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// StoreSettings configures the run history database.
type StoreSettings struct {
	// Path is the SQLite file. Empty disables the store.
	Path string `mapstructure:"path"`
}

// OutputSettings configures where rendered timelines go.
type OutputSettings struct {
	Dir    string `mapstructure:"dir" validate:"required"`
	Format string `mapstructure:"format" validate:"oneof=svg json"`
}

// RenderSettings configures the SVG renderer.
type RenderSettings struct {
	// Scale is SVG pixels per canvas unit. Zero uses the renderer default.
	Scale float64 `mapstructure:"scale" validate:"gte=0"`
}

// StyleSettings locates the style catalog.
type StyleSettings struct {
	// Path is a styles YAML file. Empty uses the built-in catalog.
	Path string `mapstructure:"path"`

	// Dir holds per-timeline style files named <timeline>.yaml. Timelines
	// without one use Path.
	Dir string `mapstructure:"dir"`
}

// IngestSettings configures dataset reading.
type IngestSettings struct {
	SheetPrefix string `mapstructure:"sheet_prefix"`
}

// LayoutSettings configures the layout engine.
type LayoutSettings struct {
	Workers         int    `mapstructure:"workers" validate:"gte=0"`
	EarlyDatePolicy string `mapstructure:"early_date_policy" validate:"oneof=reject clamp"`
	SkipInvalid     bool   `mapstructure:"skip_invalid"`
	DebugLabels     bool   `mapstructure:"debug_labels"`
}

// TracingSettings configures span export.
type TracingSettings struct {
	Exporter string `mapstructure:"exporter" validate:"oneof=none stdout otlp"`
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Exporter otlp"`
	Insecure bool   `mapstructure:"insecure"`
}

// MetricsSettings configures metrics output.
type MetricsSettings struct {
	Textfile string `mapstructure:"textfile"`
	Listen   string `mapstructure:"listen"`
}

// WatchSettings configures watch mode.
type WatchSettings struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// PolicySettings configures the lint policies run by validate.
type PolicySettings struct {
	// Paths are extra .rego/.json policy files or directories.
	Paths []string `mapstructure:"paths"`

	// Disabled names policies, built-in or loaded, that are not evaluated.
	Disabled []string `mapstructure:"disabled"`
}

// EarlyDatePolicy returns the parsed layout policy for milestones dated
// before the timeline start.
func (s *Settings) EarlyDatePolicy() (engine.EarlyDatePolicy, error) {
	return engine.ParseEarlyDatePolicy(s.Layout.EarlyDatePolicy)
}

// LayoutOptions returns the engine options the settings select.
func (s *Settings) LayoutOptions() ([]engine.Option, error) {
	policy, err := s.EarlyDatePolicy()
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithEarlyDatePolicy(policy),
		engine.WithSkipInvalid(s.Layout.SkipInvalid),
		engine.WithDebugLabels(s.Layout.DebugLabels),
	}, nil
}

// Telemetry returns the telemetry configuration for these settings.
func (s *Settings) Telemetry(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Logging.Level = s.Log.Level
	cfg.Logging.Format = s.Log.Format
	cfg.Tracing.Exporter = s.Tracing.Exporter
	cfg.Tracing.Endpoint = s.Tracing.Endpoint
	cfg.Tracing.Insecure = s.Tracing.Insecure
	cfg.Metrics.Textfile = s.Metrics.Textfile
	cfg.Metrics.ListenAddress = s.Metrics.Listen
	return cfg
}
