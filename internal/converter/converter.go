// =============================================================================
// INTERLIS Enum Extractor - Converter Module
// =============================================================================
//
// This module contains the per-file conversion pipeline shared by all
// commands.
//
// CONVERSION PIPELINE:
//   1. Read the transfer file (ModelData sections and their enum nodes)
//   2. Extract the enumeration catalog
//   3. Validate the catalog
//   4. Render the catalog in the configured format
//   5. Write the output (stream or file)
//   6. Archive the processed files (batch only)
//
// CONCURRENCY:
//   One Converter may convert several files concurrently. Its only shared
//   state is the set of output names already claimed, guarded by a mutex.
//
// =============================================================================

package converter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/interlis-enums/internal/config"
	"github.com/ginjaninja78/interlis-enums/internal/enums"
	"github.com/ginjaninja78/interlis-enums/internal/render"
	"github.com/ginjaninja78/interlis-enums/internal/transfer"
	"github.com/ginjaninja78/interlis-enums/internal/types"
	"github.com/ginjaninja78/interlis-enums/internal/validation"
	"github.com/ginjaninja78/interlis-enums/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of converting a single file.
type Result struct {
	// FilePath is the path to the input file.
	FilePath string

	// OutputFile is the path to the generated file. It is empty when the
	// output went to a stream or the conversion failed.
	OutputFile string

	// ArchivePath is where the input file was archived, if it was.
	ArchivePath string

	// Success indicates whether the conversion succeeded.
	Success bool

	// Error contains the error if the conversion failed.
	Error error

	// Findings contains the validation findings, warnings included.
	Findings []*validation.ValidationError

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about one conversion.
type ProcessingStats struct {
	// Sections is the number of ModelData sections read.
	Sections int

	// Nodes is the number of enum nodes read.
	Nodes int

	// Types is the number of enumeration types extracted.
	Types int

	// Values is the number of enumeration values extracted.
	Values int

	// Warnings is the number of validation warnings.
	Warnings int

	// Bytes is the size of the rendered output.
	Bytes int

	// ProcessingTime is the time taken for the conversion.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the conversion pipeline.
type Converter struct {
	config    *config.Config
	format    render.Format
	reader    *transfer.Reader
	renderer  render.Renderer
	validator *validation.Validator
	files     *utils.FileManager
	logger    *slog.Logger

	// claims maps lower-cased output file names to the input that owns them.
	claimsMu sync.Mutex
	claims   map[string]string
}

// New creates a Converter for the given configuration. A nil logger
// discards log output.
func New(cfg *config.Config, logger *slog.Logger) (*Converter, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(format, cfg.RenderOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	files := utils.NewFileManager(
		cfg.Batch.InputDir,
		cfg.Batch.OutputDir,
		cfg.Batch.InputArchiveDir,
		cfg.Batch.OutputArchiveDir,
	)
	files.ArchiveOnSuccess = cfg.Batch.ArchiveOnSuccess
	files.UseTimestampSubdirs = cfg.Batch.UseTimestampSubdirs

	return &Converter{
		config:   cfg,
		format:   format,
		reader:   transfer.NewReader(cfg.NamespaceURI),
		renderer: renderer,
		validator: validation.NewValidatorWithOptions(validation.ValidationOptions{
			TreatWarningsAsErrors: cfg.Validation.TreatWarningsAsErrors,
			// Element names only matter when they are written as elements.
			SkipTagNameCheck: format != render.FormatGML,
		}),
		files:  files,
		logger: logger,
		claims: make(map[string]string),
	}, nil
}

// Format returns the output format of the converter.
func (c *Converter) Format() render.Format {
	return c.format
}

// FileManager returns the file manager used for batch output.
func (c *Converter) FileManager() *utils.FileManager {
	return c.files
}

// =============================================================================
// PIPELINE
// =============================================================================

// Catalog reads and extracts the transfer file at path. It does not
// validate or render.
func (c *Converter) Catalog(path string) (*types.Catalog, error) {
	doc, err := c.reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer file: %w", err)
	}

	catalog, err := enums.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to extract enumerations: %w", err)
	}

	return catalog, nil
}

// Convert converts the transfer file at path and writes the rendered output
// to w. Nothing is written unless the whole pipeline succeeds.
func (c *Converter) Convert(path string, w io.Writer) Result {
	startTime := time.Now()

	result, data := c.run(path)
	if !result.Success {
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	if _, err := w.Write(data); err != nil {
		result.Success = false
		result.Error = fmt.Errorf("failed to write output: %w", err)
	}

	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}

// ConvertToDir converts the transfer file at path into the configured
// output directory and archives the files when archival is enabled.
func (c *Converter) ConvertToDir(path string) Result {
	return c.ConvertToDirAs(path, c.ReserveOutputName(path))
}

// ConvertToDirAs is ConvertToDir writing to the output file name, which
// should come from ReserveOutputName.
func (c *Converter) ConvertToDirAs(path, name string) Result {
	startTime := time.Now()

	result, data := c.run(path)
	if !result.Success {
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	outputPath, err := c.writeOutput(name, data)
	if err != nil {
		result.Success = false
		result.Error = fmt.Errorf("failed to write output: %w", err)
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}
	result.OutputFile = outputPath
	c.logger.Info("Wrote output", "file", filepath.Base(path), "output", outputPath)

	// Archival failures are logged; the output is already in place.
	if archived, err := c.files.ArchiveInputFile(path); err != nil {
		c.logger.Warn("Failed to archive input file", "file", path, "error", err)
	} else if archived != path {
		result.ArchivePath = archived
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		c.logger.Warn("Failed to archive output file", "file", outputPath, "error", err)
	}

	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}

// run executes steps 1-4 and returns the rendered bytes.
func (c *Converter) run(path string) (Result, []byte) {
	result := Result{FilePath: path}
	log := c.logger.With("file", filepath.Base(path))

	log.Debug("Reading transfer file", "namespace", c.reader.Namespace())

	doc, err := c.reader.ReadFile(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read transfer file: %w", err)
		return result, nil
	}
	result.Stats.Sections = len(doc.Sections)
	result.Stats.Nodes = doc.NodeCount()

	for i, section := range doc.Sections {
		log.Debug("Read model section", "index", i, "bid", section.BID, "nodes", len(section.Nodes))
	}

	catalog, err := enums.Extract(doc)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract enumerations: %w", err)
		return result, nil
	}
	result.Stats.Types = len(catalog.Types)
	result.Stats.Values = catalog.ValueCount()

	validationResult := c.validator.Validate(catalog)
	result.Findings = validationResult.Errors
	result.Stats.Warnings = validationResult.WarningCount

	for _, finding := range validationResult.Errors {
		log.Warn("Validation finding", "finding", finding.Error())
	}
	if !validationResult.IsValid {
		result.Error = fmt.Errorf("validation failed with %d errors", validationResult.ErrorCount)
		return result, nil
	}

	var buf bytes.Buffer
	if err := c.renderer.Render(&buf, catalog); err != nil {
		result.Error = fmt.Errorf("failed to render %s: %w", c.format, err)
		return result, nil
	}
	result.Stats.Bytes = buf.Len()

	log.Info("Extracted enumerations",
		"format", c.format,
		"sections", result.Stats.Sections,
		"nodes", result.Stats.Nodes,
		"types", result.Stats.Types,
		"values", result.Stats.Values)

	result.Success = true
	return result, buf.Bytes()
}

// OutputFileName returns the output file name for an input path according
// to the configured naming format. {original} is the path relative to the
// input directory, flattened: input/a/model.xtf becomes a_model.
func (c *Converter) OutputFileName(path string) string {
	info, _ := render.GetFormatInfo(c.format)
	return utils.GenerateOutputFileName(c.config.Batch.OutputNameFormat, map[string]string{
		"original": c.files.RelativeName(path),
		"format":   string(c.format),
	}, info.Extension)
}

// ReserveOutputName returns the output file name for path and claims it.
// A name already claimed by another input gets a numeric suffix
// (model_2.json), so two inputs never write the same output file. An input
// converted again keeps its name.
func (c *Converter) ReserveOutputName(path string) string {
	path = filepath.Clean(path)
	name := c.OutputFileName(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	c.claimsMu.Lock()
	defer c.claimsMu.Unlock()

	candidate := name
	for n := 2; ; n++ {
		owner, taken := c.claims[strings.ToLower(candidate)]
		if !taken || owner == path {
			break
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	c.claims[strings.ToLower(candidate)] = path

	if candidate != name {
		c.logger.Warn("Output name already used by another input",
			"file", path, "wanted", name, "output", candidate)
	}
	return candidate
}

func (c *Converter) writeOutput(name string, data []byte) (string, error) {
	if err := os.MkdirAll(c.config.Batch.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(c.config.Batch.OutputDir, name)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", err
	}

	return outputPath, nil
}
