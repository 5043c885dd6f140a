package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milestoner/milestoner/pkg/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "milestoner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "console", s.Log.Format)
	assert.Equal(t, "milestoner.db", s.Store.Path)
	assert.Equal(t, ".", s.Output.Dir)
	assert.Equal(t, "svg", s.Output.Format)
	assert.Equal(t, "CPT", s.Ingest.SheetPrefix)
	assert.Equal(t, 4, s.Layout.Workers)
	assert.Equal(t, "reject", s.Layout.EarlyDatePolicy)
	assert.Equal(t, "none", s.Tracing.Exporter)
	assert.Equal(t, 500*time.Millisecond, s.Watch.Debounce)
	assert.Empty(t, s.File)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	path := writeConfig(t, `
output:
  dir: out
  format: json
layout:
  workers: 8
  early_date_policy: clamp
watch:
  debounce: 2s
`)

	s, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "out", s.Output.Dir)
	assert.Equal(t, "json", s.Output.Format)
	assert.Equal(t, 8, s.Layout.Workers)
	assert.Equal(t, 2*time.Second, s.Watch.Debounce)
	assert.Equal(t, path, s.File)

	policy, err := s.EarlyDatePolicy()
	require.NoError(t, err)
	assert.Equal(t, engine.EarlyDateClamp, policy)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "milestoner.yaml"), []byte("output:\n  dir: found\n"), 0644))
	t.Chdir(dir)

	s, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "found", s.Output.Dir)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MILESTONER_OUTPUT_FORMAT", "json")
	t.Setenv("MILESTONER_LAYOUT_WORKERS", "2")

	s, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", s.Output.Format)
	assert.Equal(t, 2, s.Layout.Workers)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "output:\n  format: json\n  dir: from-file\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "svg", "")
	flags.String("output", "", "")
	flags.Int("workers", 4, "")
	flags.String("styles-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--format", "svg", "--workers", "1", "--styles-dir", "templates"}))

	s, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "svg", s.Output.Format, "changed flag wins")
	assert.Equal(t, "from-file", s.Output.Dir, "unchanged flag leaves the file value")
	assert.Equal(t, 1, s.Layout.Workers)
	assert.Equal(t, "templates", s.Styles.Dir)
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"format", "output:\n  format: pptx\n"},
		{"policy", "layout:\n  early_date_policy: ignore\n"},
		{"exporter", "tracing:\n  exporter: jaeger\n"},
		{"otlp endpoint", "tracing:\n  exporter: otlp\n"},
		{"workers", "layout:\n  workers: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid settings")
		})
	}
}

func TestSampleFileLoads(t *testing.T) {
	s, err := Load(writeConfig(t, SampleFile), nil)
	require.NoError(t, err)
	assert.Equal(t, "out", s.Output.Dir)
	assert.Equal(t, "styles.yaml", s.Styles.Path)
}

func TestLayoutOptionsAndTelemetry(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := Load("", nil)
	require.NoError(t, err)

	opts, err := s.LayoutOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	s.Metrics.Listen = "127.0.0.1:9100"
	tel := s.Telemetry("1.2.3")
	require.NoError(t, tel.Validate())
	assert.Equal(t, "1.2.3", tel.ServiceVersion)
	assert.Equal(t, "127.0.0.1:9100", tel.Metrics.ListenAddress)
	assert.Equal(t, "none", tel.Tracing.Exporter)
}
