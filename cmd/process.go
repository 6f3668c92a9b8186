// =============================================================================
// INTERLIS Enum Extractor - Process Command
// =============================================================================
//
// This file defines the 'process' command, which converts every transfer
// file in the input directory.
//
// COMMAND USAGE:
//   ilienums process [flags]
//
// FLAGS:
//   --dry-run   : Extract and report without writing output files
//   --format    : Output format (overrides output.format)
//   --input     : Input directory (overrides batch.input_dir)
//   --output    : Output directory (overrides batch.output_dir)
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Discover transfer files matching batch.file_patterns
//   3. Convert each file concurrently (at most batch.max_concurrency at once)
//   4. Archive converted files
//   5. Print and write the summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ginjaninja78/interlis-enums/internal/config"
	"github.com/ginjaninja78/interlis-enums/internal/converter"
	"github.com/ginjaninja78/interlis-enums/pkg/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// processOptions holds the flags of the process command.
type processOptions struct {
	dryRun    bool
	format    string
	inputDir  string
	outputDir string
}

func newProcessCmd(global *globalOptions) *cobra.Command {
	opts := &processOptions{}

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Convert all transfer files in the input directory",
		Long: `The process command scans the input directory for transfer files matching
batch.file_patterns and converts each of them into the output directory.

Files are converted concurrently. A failure in one file does not affect the
others unless batch.continue_on_error is false.

On successful conversion:
  - The output is written to the output directory
  - With batch.archive_on_success, the input is moved to the input archive
    and the output copied to the output archive

On error:
  - The input file remains in the input directory
  - The error is listed in the summary`,
		Args: cobra.NoArgs,
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
			return runProcess(cmd.OutOrStdout(), cfg, newLogger(cmd.ErrOrStderr(), cfg), opts.dryRun)
		},
	}

	processCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Extract and report without writing output files")
	processCmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: json, gml, yaml, xlsx")
	processCmd.Flags().StringVar(&opts.inputDir, "input", "", "Input directory")
	processCmd.Flags().StringVar(&opts.outputDir, "output", "", "Output directory")

	return processCmd
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// errBatchFailed is returned when at least one file failed.
type errBatchFailed struct {
	failed, total int
}

func (e *errBatchFailed) Error() string {
	return fmt.Sprintf("%d of %d file(s) failed", e.failed, e.total)
}

func runProcess(out io.Writer, cfg *config.Config, logger *slog.Logger, dryRun bool) error {
	startTime := time.Now()
	runID := uuid.New().String()
	logger = logger.With("run", runID)

	conv, err := converter.New(cfg, logger)
	if err != nil {
		return err
	}
	files := conv.FileManager()

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	fmt.Fprintln(out, "=== INTERLIS Enum Extractor ===")

	inputFiles, err := files.DiscoverInputFiles(cfg.Batch.FilePatterns)
	if err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No transfer files found in the input directory.")
		return nil
	}

	fmt.Fprintf(out, "Found %d file(s) to process\n", len(inputFiles))
	logger.Info("Processing started", "files", len(inputFiles), "format", conv.Format(), "dry_run", dryRun)

	if !dryRun {
		if err := files.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 2: CONVERT FILES CONCURRENTLY
	// =========================================================================

	results := convertAll(conv, inputFiles, cfg.Batch.MaxConcurrency, cfg.Batch.ContinueOnError, dryRun)

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		Format:     string(conv.Format()),
		TotalFiles: len(inputFiles),
	}

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
			})
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, result.Error)
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalTypes += result.Stats.Types
		summary.TotalValues += result.Stats.Values
		summary.Warnings += result.Stats.Warnings
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   result.FilePath,
			OutputFile:  result.OutputFile,
			ArchivePath: result.ArchivePath,
			Types:       result.Stats.Types,
			Values:      result.Stats.Values,
			ProcessTime: result.Stats.ProcessingTime,
		})

		target := result.OutputFile
		if dryRun {
			target = "(dry run)"
		}
		fmt.Fprintf(out, "  ✓ %s -> %s (%d types, %d values)\n", name, target, result.Stats.Types, result.Stats.Values)
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	if skipped := summary.TotalFiles - summary.SuccessfulFiles - summary.FailedFiles; skipped > 0 {
		fmt.Fprintf(out, "Skipped:         %d\n", skipped)
	}
	fmt.Fprintf(out, "Enum types:      %d\n", summary.TotalTypes)
	fmt.Fprintf(out, "Enum values:     %d\n", summary.TotalValues)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if cfg.Batch.WriteSummary && !dryRun {
		path, err := utils.WriteSummaryLog(summary, cfg.Batch.OutputDir)
		if err != nil {
			logger.Warn("Failed to write summary", "error", err)
		} else {
			fmt.Fprintf(out, "Summary:         %s\n", path)
		}
	}

	if summary.FailedFiles > 0 {
		return &errBatchFailed{failed: summary.FailedFiles, total: summary.TotalFiles}
	}
	return nil
}

// convertAll converts files with at most limit conversions in flight.
// Without continueOnError no new conversion starts after the first failure.
// Results are returned in input order; files never started are omitted.
func convertAll(conv *converter.Converter, paths []string, limit int, continueOnError, dryRun bool) []converter.Result {
	if limit < 1 {
		limit = 1
	}

	// Output names are claimed in input order before any conversion starts,
	// so clashing inputs get the same suffixes on every run.
	names := make([]string, len(paths))
	if !dryRun {
		for i, path := range paths {
			names[i] = conv.ReserveOutputName(path)
		}
	}

	var (
		wg      sync.WaitGroup
		failed  atomic.Bool
		sem     = make(chan struct{}, limit)
		results = make(chan indexedResult, len(paths))
	)

	for i, path := range paths {
		sem <- struct{}{}
		if failed.Load() && !continueOnError {
			<-sem
			break
		}

		wg.Add(1)
		go func(index int, path, name string) {
			defer wg.Done()
			defer func() { <-sem }()

			var result converter.Result
			if dryRun {
				result = dryRunResult(conv, path)
			} else {
				result = conv.ConvertToDirAs(path, name)
			}
			if !result.Success {
				failed.Store(true)
			}
			results <- indexedResult{index: index, result: result}
		}(i, path, names[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*converter.Result, len(paths))
	for r := range results {
		result := r.result
		ordered[r.index] = &result
	}

	collected := make([]converter.Result, 0, len(paths))
	for _, r := range ordered {
		if r != nil {
			collected = append(collected, *r)
		}
	}
	return collected
}

type indexedResult struct {
	index  int
	result converter.Result
}

// dryRunResult extracts without rendering or writing.
func dryRunResult(conv *converter.Converter, path string) converter.Result {
	startTime := time.Now()
	result := converter.Result{FilePath: path}

	catalog, err := conv.Catalog(path)
	if err != nil {
		result.Error = err
	} else {
		result.Success = true
		result.Stats.Types = len(catalog.Types)
		result.Stats.Values = catalog.ValueCount()
		result.Stats.Sections = catalog.Sections
		result.Stats.Nodes = catalog.Nodes
	}

	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}
