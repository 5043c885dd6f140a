package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/milestoner/milestoner/pkg/config"
	"github.com/milestoner/milestoner/pkg/ingest"
	"github.com/milestoner/milestoner/pkg/style"
	"github.com/milestoner/milestoner/pkg/timeline"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var (
		force   bool
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a starter workspace",
		Long: `Create a workspace with a settings file, the built-in styles and a
sample timeline document, then initialise the run history database.

Existing files are left alone unless --force is given.`,
		Example: `  # Initialise the current directory
  milestoner init

  # Initialise a new directory and render the sample
  milestoner init roadmap && cd roadmap && milestoner generate timelines.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			out := cmd.OutOrStdout()

			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}

			styles, err := style.Marshal(style.DefaultCatalog())
			if err != nil {
				return fmt.Errorf("failed to encode styles: %w", err)
			}
			sample, err := sampleTimelines()
			if err != nil {
				return err
			}
			timelines, err := ingest.MarshalYAML(sample)
			if err != nil {
				return fmt.Errorf("failed to encode sample timelines: %w", err)
			}

			files := []struct {
				name string
				data []byte
			}{
				{config.FileName + ".yaml", []byte(config.SampleFile)},
				{"styles.yaml", styles},
				{"timelines.yaml", timelines},
			}
			for _, f := range files {
				path := filepath.Join(dir, f.name)
				written, err := writeIfAbsent(path, f.data, force)
				if err != nil {
					return err
				}
				if written {
					fmt.Fprintf(out, "✓ Created %s\n", path)
				} else {
					fmt.Fprintf(out, "✓ Kept existing %s\n", path)
				}
			}

			if !noStore {
				dbPath := filepath.Join(dir, "milestoner.db")
				store, err := openStore(context.WithoutCancel(cmd.Context()), dbPath)
				if err != nil {
					return err
				}
				if err := store.Close(); err != nil {
					return fmt.Errorf("failed to close store: %w", err)
				}
				fmt.Fprintf(out, "✓ Initialized run history: %s\n", dbPath)
			}

			if !opts.jsonOutput {
				fmt.Fprintf(out, "\nNext steps:\n")
				fmt.Fprintf(out, "  milestoner validate timelines.yaml\n")
				fmt.Fprintf(out, "  milestoner generate timelines.yaml\n")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not create the run history database")

	return cmd
}

// writeIfAbsent writes data to path unless the file exists and force is unset.
func writeIfAbsent(path string, data []byte, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("failed to check %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// sampleTimelines is the starter document written by init.
func sampleTimelines() ([]*timeline.Timeline, error) {
	day := func(m time.Month, d int) time.Time {
		return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
	}
	cfg := timeline.Config{
		StartDate:            day(time.January, 1),
		EndDate:              day(time.December, 31),
		LeftX:                1.5,
		RightX:               32.0,
		CenterY:              9.5,
		NumTextTracks:        3,
		IncludeNumberInLabel: true,
	}
	milestones := []timeline.Milestone{
		{Number: 1, Text: "Kick-off", Date: day(time.January, 15), Level: 1},
		{Number: 2, Text: "Requirements signed off", Date: day(time.February, 28), Level: 2},
		{Number: 3, Text: "Design review", Date: day(time.April, 10), Level: 2},
		{Number: 4, Text: "Alpha release", Date: day(time.June, 2), Level: 1},
		{Number: 5, Text: "Beta release", Date: day(time.August, 18), Level: 1},
		{Number: 6, Text: "Security audit", Date: day(time.September, 5), Level: 3},
		{Number: 7, Text: "General availability", Date: day(time.November, 3), Level: 1, LabelTrackOverride: timeline.Track(-1)},
	}

	tl, err := timeline.NewTimeline("CPT-Roadmap", cfg, milestones)
	if err != nil {
		return nil, fmt.Errorf("failed to build sample timeline: %w", err)
	}
	return []*timeline.Timeline{tl}, nil
}
