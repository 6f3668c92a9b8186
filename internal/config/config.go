// =============================================================================
// INTERLIS Enum Extractor - Configuration Module
// =============================================================================
//
// This module loads the application configuration from a YAML file. Every
// setting has a default, so running without a configuration file is the
// normal case for single-file extraction.
//
// CONFIGURATION FILE (ilienums.yaml):
//
//   namespace_uri: http://www.interlis.ch/INTERLIS2.3
//   log_level: info
//   output:
//     format: json            # json | gml | yaml | xlsx
//     pretty: true
//     indent: "  "
//     xml_declaration: true
//     json_keys: strict       # strict | overwrite | ordinal
//   validation:
//     treat_warnings_as_errors: false
//   batch:
//     input_dir: ./input
//     output_dir: ./output
//     file_patterns: ["**/*.xtf", "**/*.xml"]
//     output_name_format: "{original}_{uuid}"
//     max_concurrency: 4
//   watch:
//     debounce: 500ms
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/interlis-enums/internal/render"
	"github.com/ginjaninja78/interlis-enums/internal/transfer"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no --config flag
// is given. Its absence is not an error.
const DefaultConfigFile = "ilienums.yaml"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the complete application configuration.
type Config struct {
	// NamespaceURI is the XML namespace of the transfer file elements.
	// Default: "http://www.interlis.ch/INTERLIS2.3"
	NamespaceURI string `yaml:"namespace_uri"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	Output     OutputConfig     `yaml:"output"`
	Validation ValidationConfig `yaml:"validation"`
	Batch      BatchConfig      `yaml:"batch"`
	Watch      WatchConfig      `yaml:"watch"`
}

// OutputConfig selects and tunes the renderer.
type OutputConfig struct {
	// Format is the output format: json, gml, yaml or xlsx.
	// Default: "json"
	Format string `yaml:"format"`

	// Pretty enables indented output.
	// Default: true
	Pretty bool `yaml:"pretty"`

	// Indent is the indentation unit used when Pretty is set.
	// Default: "  "
	Indent string `yaml:"indent"`

	// XMLDeclaration writes an XML declaration before GML output.
	// Default: true
	XMLDeclaration bool `yaml:"xml_declaration"`

	// JSONKeys controls how json and yaml output key enumeration types:
	//   strict    - key by type path, fail when two types share a path
	//   overwrite - key by type path, the later type wins
	//   ordinal   - key by enum<N>_<Name>, like the GML element names
	// Default: "strict"
	JSONKeys string `yaml:"json_keys"`
}

// ValidationConfig tunes catalog validation.
type ValidationConfig struct {
	// TreatWarningsAsErrors fails a conversion on any validation warning.
	TreatWarningsAsErrors bool `yaml:"treat_warnings_as_errors"`
}

// BatchConfig configures the process and watch commands.
type BatchConfig struct {
	// InputDir is scanned for transfer files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the rendered files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after successful conversion.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every output file.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ArchiveOnSuccess moves converted inputs and copies outputs to the
	// archive directories.
	// Default: false
	ArchiveOnSuccess bool `yaml:"archive_on_success"`

	// UseTimestampSubdirs archives into YYYY/MM/DD subdirectories.
	UseTimestampSubdirs bool `yaml:"use_timestamp_subdirs"`

	// FilePatterns are doublestar globs relative to InputDir.
	// Default: ["**/*.xtf", "**/*.xml"]
	FilePatterns []string `yaml:"file_patterns"`

	// OutputNameFormat names output files. Placeholders:
	//   {original}  - input path relative to input_dir without extension,
	//                 directories joined by "_" (a/model.xtf -> a_model)
	//   {uuid}      - a random UUID
	//   {timestamp} - YYYYMMDD_HHMMSS
	//   {date}      - YYYYMMDD
	//   {format}    - output format name
	// The format's extension is appended.
	// Default: "{original}"
	OutputNameFormat string `yaml:"output_name_format"`

	// MaxConcurrency bounds the number of files converted at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps converting other files after a failure.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// WriteSummary writes a processing summary into OutputDir.
	// Default: true
	WriteSummary bool `yaml:"write_summary"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is how long to wait for more changes before converting.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with all defaults applied.
func Default() *Config {
	rendering := render.DefaultOptions()
	return &Config{
		NamespaceURI: transfer.DefaultNamespace,
		LogLevel:     "info",
		Output: OutputConfig{
			Format:         string(render.FormatJSON),
			Pretty:         rendering.Pretty,
			Indent:         rendering.Indent,
			XMLDeclaration: rendering.XMLDeclaration,
			JSONKeys:       string(rendering.Keys),
		},
		Batch: BatchConfig{
			InputDir:         "./input",
			OutputDir:        "./output",
			InputArchiveDir:  "./input_archive",
			OutputArchiveDir: "./output_archive",
			FilePatterns:     []string{"**/*.xtf", "**/*.xml"},
			OutputNameFormat: "{original}",
			MaxConcurrency:   4,
			ContinueOnError:  true,
			WriteSummary:     true,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// applyDefaults fills settings the file explicitly set to a zero value.
func applyDefaults(config *Config) {
	defaults := Default()

	if config.NamespaceURI == "" {
		config.NamespaceURI = defaults.NamespaceURI
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Output.Format == "" {
		config.Output.Format = defaults.Output.Format
	}
	if config.Output.Indent == "" {
		config.Output.Indent = defaults.Output.Indent
	}
	if config.Output.JSONKeys == "" {
		config.Output.JSONKeys = defaults.Output.JSONKeys
	}
	if config.Batch.InputDir == "" {
		config.Batch.InputDir = defaults.Batch.InputDir
	}
	if config.Batch.OutputDir == "" {
		config.Batch.OutputDir = defaults.Batch.OutputDir
	}
	if config.Batch.InputArchiveDir == "" {
		config.Batch.InputArchiveDir = defaults.Batch.InputArchiveDir
	}
	if config.Batch.OutputArchiveDir == "" {
		config.Batch.OutputArchiveDir = defaults.Batch.OutputArchiveDir
	}
	if len(config.Batch.FilePatterns) == 0 {
		config.Batch.FilePatterns = defaults.Batch.FilePatterns
	}
	if config.Batch.OutputNameFormat == "" {
		config.Batch.OutputNameFormat = defaults.Batch.OutputNameFormat
	}
	if config.Batch.MaxConcurrency == 0 {
		config.Batch.MaxConcurrency = defaults.Batch.MaxConcurrency
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = defaults.Watch.Debounce
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NamespaceURI) == "" {
		return fmt.Errorf("namespace_uri is required")
	}
	if _, err := render.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if _, err := render.ParseKeyPolicy(c.Output.JSONKeys); err != nil {
		return fmt.Errorf("output.json_keys: %w", err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Batch.MaxConcurrency < 1 {
		return fmt.Errorf("batch.max_concurrency must be at least 1, got %d", c.Batch.MaxConcurrency)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// RenderOptions converts the output settings for the render package.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Pretty:         c.Output.Pretty,
		Indent:         c.Output.Indent,
		XMLDeclaration: c.Output.XMLDeclaration,
		Keys:           render.KeyPolicy(strings.ToLower(c.Output.JSONKeys)),
	}
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", level)
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Resolve loads path when explicit is set. Otherwise path is optional and
// the defaults are returned when it does not exist.
func Resolve(path string, explicit bool) (*Config, error) {
	if explicit {
		return Load(path)
	}
	if path == "" {
		return Default(), nil
	}

	config, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}
