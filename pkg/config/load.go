package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. MILESTONER_OUTPUT_DIR.
	EnvPrefix = "MILESTONER"

	// FileName is the config file name searched for without extension.
	FileName = "milestoner"
)

// FlagBindings maps setting keys to the command flags that override them.
// Flags missing from the flag set are ignored.
var FlagBindings = map[string]string{
	"output.dir":               "output",
	"output.format":            "format",
	"store.path":               "store",
	"styles.path":              "styles",
	"styles.dir":               "styles-dir",
	"ingest.sheet_prefix":      "sheet-prefix",
	"layout.workers":           "workers",
	"layout.early_date_policy": "early-dates",
	"layout.skip_invalid":      "skip-invalid",
	"layout.debug_labels":      "debug-labels",
	"render.scale":             "scale",
	"tracing.exporter":         "trace",
	"metrics.textfile":         "metrics-textfile",
	"metrics.listen":           "metrics-listen",
	"policy.paths":             "policy",
}

// New returns a viper instance with every default set and environment
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("store.path", "milestoner.db")

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.format", "svg")

	v.SetDefault("render.scale", 0.0)

	v.SetDefault("styles.path", "")
	v.SetDefault("styles.dir", "")

	v.SetDefault("ingest.sheet_prefix", "CPT")

	v.SetDefault("layout.workers", 4)
	v.SetDefault("layout.early_date_policy", "reject")
	v.SetDefault("layout.skip_invalid", false)
	v.SetDefault("layout.debug_labels", false)

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.listen", "")

	v.SetDefault("watch.debounce", "500ms")

	v.SetDefault("policy.paths", []string{})
	v.SetDefault("policy.disabled", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load resolves settings. configFile names an explicit file, which must
// exist; when empty, milestoner.yaml is searched for in the working
// directory and $HOME/.config/milestoner, and a missing file is not an
// error. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Settings, error) {
	v := New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "milestoner"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := BindFlags(v, flags); err != nil {
		return nil, err
	}

	return Decode(v)
}

// BindFlags binds every flag named in FlagBindings that flags defines.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for key, name := range FlagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.File = v.ConfigFileUsed()

	if err := validator.New().Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &s, nil
}

// SampleFile is the milestoner.yaml written by `milestoner init`.
const SampleFile = `# milestoner settings. Every key can be overridden with a MILESTONER_
# environment variable, e.g. MILESTONER_OUTPUT_DIR=out.
log:
  level: info
  format: console

store:
  path: milestoner.db

output:
  dir: out
  format: svg

render:
  scale: 0

# A file named <timeline>.yaml in styles.dir overrides styles.path for
# that timeline.
styles:
  path: styles.yaml
  dir: ""

ingest:
  sheet_prefix: CPT

layout:
  workers: 4
  early_date_policy: reject
  skip_invalid: false
  debug_labels: false

tracing:
  exporter: none
  endpoint: ""

metrics:
  textfile: ""
  listen: ""

watch:
  debounce: 500ms

# Extra Rego lint policies for validate, and policies to switch off.
policy:
  paths: []
  disabled: []
`
