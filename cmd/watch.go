// =============================================================================
// INTERLIS Enum Extractor - Watch Command
// =============================================================================
//
// COMMAND USAGE:
//   ilienums watch [flags]
//
// Files already in the input directory are converted first, then every new
// or changed file matching batch.file_patterns is converted after
// watch.debounce. Runs until interrupted (SIGINT/SIGTERM).
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ginjaninja78/interlis-enums/internal/config"
	"github.com/ginjaninja78/interlis-enums/internal/converter"
	"github.com/ginjaninja78/interlis-enums/internal/watch"
	"github.com/ginjaninja78/interlis-enums/pkg/utils"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	format       string
	inputDir     string
	outputDir    string
	skipExisting bool
}

func newWatchCmd(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert transfer files as they appear in the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			if opts.format != "" {
				cfg.Output.Format = opts.format
			}
			if opts.inputDir != "" {
				cfg.Batch.InputDir = opts.inputDir
			}
			if opts.outputDir != "" {
				cfg.Batch.OutputDir = opts.outputDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd.OutOrStdout(), cfg, newLogger(cmd.ErrOrStderr(), cfg), opts.skipExisting)
		},
	}

	watchCmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: json, gml, yaml, xlsx")
	watchCmd.Flags().StringVar(&opts.inputDir, "input", "", "Input directory")
	watchCmd.Flags().StringVar(&opts.outputDir, "output", "", "Output directory")
	watchCmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", false, "Do not convert files present at startup")

	return watchCmd
}

func runWatch(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, skipExisting bool) error {
	conv, err := converter.New(cfg, logger)
	if err != nil {
		return err
	}
	files := conv.FileManager()
	if err := files.EnsureDirectories(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Batch.InputDir, 0755); err != nil {
		return fmt.Errorf("failed to create input directory: %w", err)
	}

	watcher, err := watch.New(watch.Config{
		Dir:      cfg.Batch.InputDir,
		Patterns: cfg.Batch.FilePatterns,
		Debounce: cfg.Watch.Debounce,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	existing, err := files.DiscoverInputFiles(cfg.Batch.FilePatterns)
	if err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}
	for _, path := range existing {
		if !skipExisting {
			report(out, conv.ConvertToDir(path))
		}
		// Archived inputs are gone; only files still in place need a hash.
		if utils.FileExists(path) {
			if err := watcher.Seed(path); err != nil {
				logger.Warn("Failed to record existing file", "file", path, "error", err)
			}
		}
	}

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", cfg.Batch.InputDir)

	for path := range watcher.Events() {
		report(out, conv.ConvertToDir(path))
	}

	if dropped := watcher.DroppedEvents(); dropped > 0 {
		logger.Warn("Watcher dropped events", "count", dropped)
	}
	return nil
}

func report(out io.Writer, result converter.Result) {
	name := filepath.Base(result.FilePath)
	if !result.Success {
		fmt.Fprintf(out, "  ✗ %s: %v\n", name, result.Error)
		return
	}
	fmt.Fprintf(out, "  ✓ %s -> %s (%d types, %d values)\n", name, result.OutputFile, result.Stats.Types, result.Stats.Values)
}
