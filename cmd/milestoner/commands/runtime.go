package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/milestoner/milestoner/pkg/config"
	"github.com/milestoner/milestoner/pkg/ingest"
	"github.com/milestoner/milestoner/pkg/policy"
	"github.com/milestoner/milestoner/pkg/stores"
	"github.com/milestoner/milestoner/pkg/style"
	"github.com/milestoner/milestoner/pkg/telemetry"
	"github.com/milestoner/milestoner/pkg/timeline"
)

// env is what a command needs once its settings are resolved.
type env struct {
	opts     *rootOptions
	settings *config.Settings
	logger   zerolog.Logger
	tel      *telemetry.Telemetry
	store    stores.Store
	out      io.Writer
}

// setup loads settings for cmd and builds telemetry. The run store is opened
// only when withStore is set and a store path is configured.
func setup(cmd *cobra.Command, opts *rootOptions, withStore bool) (*env, error) {
	settings, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		settings.Log.Level = "debug"
	}

	telCfg := settings.Telemetry(opts.version)
	logger := telemetry.NewWriterLogger(cmd.ErrOrStderr(), telCfg.Logging)
	tel, err := telemetry.NewTelemetryWithLogger(telCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	e := &env{
		opts:     opts,
		settings: settings,
		logger:   logger.Zerolog(),
		tel:      tel,
		out:      cmd.OutOrStdout(),
	}
	if settings.File != "" {
		e.logger.Debug().Str("file", settings.File).Msg("Loaded settings")
	}

	if withStore && settings.Store.Path != "" {
		store, err := openStore(cmd.Context(), settings.Store.Path)
		if err != nil {
			_ = tel.Shutdown(cmd.Context())
			return nil, err
		}
		e.store = store
	}

	return e, nil
}

// close releases the store and flushes telemetry.
func (e *env) close(ctx context.Context) error {
	var errs []error
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	errs = append(errs, e.tel.Shutdown(ctx))
	return errors.Join(errs...)
}

func openStore(ctx context.Context, path string) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// loadTimelines reads input and returns the named timelines, or all of them.
func (e *env) loadTimelines(input string, names []string) ([]*timeline.Timeline, error) {
	mgr, err := ingest.Load(input, ingest.Options{
		SheetPrefix: e.settings.Ingest.SheetPrefix,
		Logger:      e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", input, err)
	}
	return mgr.Select(names)
}

// loadStyles returns the per-timeline style resolver. Timelines without a
// file in styles.dir share the styles.path catalog, or the built-in one.
// Loaders warn about categories the timelines need but a file lacks.
func (e *env) loadStyles(timelines []*timeline.Timeline) (*style.Directory, error) {
	loader := style.NewLoader(e.logger, style.StandardCategories(maxLevel(timelines)))
	shared := style.DefaultCatalog()
	if path := e.settings.Styles.Path; path != "" {
		var err error
		if shared, err = loader.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return style.NewDirectory(e.settings.Styles.Dir, shared, loader), nil
}

// loadPolicies returns a policy engine with the built-ins, the configured
// policy paths and the configured policies disabled.
func (e *env) loadPolicies(ctx context.Context) (*policy.Engine, error) {
	eng, err := policy.NewEngine(ctx, e.logger)
	if err != nil {
		return nil, err
	}
	if paths := e.settings.Policy.Paths; len(paths) > 0 {
		if err := eng.LoadPolicies(ctx, paths); err != nil {
			return nil, err
		}
	}
	for _, name := range e.settings.Policy.Disabled {
		if err := eng.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func maxLevel(timelines []*timeline.Timeline) int {
	top := 0
	for _, tl := range timelines {
		if levels := tl.Levels(); len(levels) > 0 {
			top = max(top, slices.Max(levels))
		}
	}
	return top
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addLayoutFlags(cmd *cobra.Command) {
	cmd.Flags().String("styles", "", "styles YAML file (default: built-in styles)")
	cmd.Flags().String("styles-dir", "", "directory of per-timeline styles files named <timeline>.yaml")
	cmd.Flags().String("sheet-prefix", ingest.DefaultSheetPrefix, "workbook sheets holding timelines start with this prefix")
	cmd.Flags().String("early-dates", "reject", "milestones before the start date: reject or clamp")
	cmd.Flags().Bool("skip-invalid", false, "skip milestones that cannot be placed instead of failing the timeline")
	cmd.Flags().Bool("debug-labels", false, "append day, proportion and shift to label text")
}

func addPolicyFlag(cmd *cobra.Command) {
	cmd.Flags().StringSlice("policy", nil, "extra Rego policy file or directory (repeatable)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", ".", "output directory")
	cmd.Flags().StringP("format", "f", "svg", "output format: svg or json")
	cmd.Flags().Float64("scale", 0, "SVG pixels per canvas unit (default: 96 dpi centimetres)")
}

func addStoreFlag(cmd *cobra.Command) {
	cmd.Flags().String("store", "milestoner.db", "run history database (empty disables)")
}
