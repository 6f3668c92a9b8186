// =============================================================================
// INTERLIS Enum Extractor - Root Command
// =============================================================================
//
// This file defines the root command. Given a transfer file it extracts the
// enumerations and writes them to stdout; subcommands cover batch use.
//
// COBRA CLI STRUCTURE:
//   ilienums <file>        (extract one file)
//   ├── process            (convert every file in the input directory)
//   ├── watch              (convert files as they arrive)
//   └── version
//
// The command tree is built by NewRootCommand, so every invocation starts
// with fresh flag values.
//
// =============================================================================

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ginjaninja78/interlis-enums/internal/config"
	"github.com/ginjaninja78/interlis-enums/internal/converter"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	// cfgFile is the path to the configuration file.
	cfgFile string

	// namespace overrides namespace_uri.
	namespace string

	// verbose enables debug logging.
	verbose bool
}

// extractOptions holds the flags of the root command.
type extractOptions struct {
	format   string
	jsonKeys string
	output   string
	compact  bool
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// NewRootCommand builds the complete command tree.
func NewRootCommand() *cobra.Command {
	global := &globalOptions{}
	opts := &extractOptions{}

	rootCmd := &cobra.Command{
		Use:   "ilienums <file>",
		Short: "Extract enumeration hierarchies from INTERLIS IlisMeta07 transfer files",
		Long: `ilienums reads an INTERLIS transfer file holding an IlisMeta07 model
description and writes every enumeration type with its leaf values.

Output formats:
  json  - {"Model.Topic.Type": [{"id": 0, "enum": "a", "enumtxt": "a"}]} (default)
  gml   - OGR feature collection, one feature type per enumeration
  yaml  - the json mapping as YAML
  xlsx  - workbook with one sheet per enumeration

Example Usage:
  ilienums Nutzungsplanung.xml                   # JSON to stdout
  ilienums Nutzungsplanung.xml --format gml      # GML to stdout
  ilienums Nutzungsplanung.xml -f xlsx -o e.xlsx # workbook
  ilienums process                               # convert the input directory
  ilienums watch                                 # convert files as they arrive`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, global, opts, args[0])
		},
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().StringVar(
		&global.cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().StringVar(
		&global.namespace,
		"namespace",
		"",
		"XML namespace of the transfer file (default "+config.Default().NamespaceURI+")",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&global.verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	// ==========================================================================
	// LOCAL FLAGS
	// ==========================================================================

	rootCmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: json, gml, yaml, xlsx")
	rootCmd.Flags().StringVar(&opts.jsonKeys, "json-keys", "", "Key policy for json/yaml: strict, overwrite, ordinal")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to this file instead of stdout")
	rootCmd.Flags().BoolVar(&opts.compact, "compact", false, "Write without indentation")

	rootCmd.AddCommand(
		newProcessCmd(global),
		newWatchCmd(global),
		newVersionCmd(),
	)

	return rootCmd
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// SINGLE FILE EXTRACTION
// =============================================================================

func runExtract(cmd *cobra.Command, global *globalOptions, opts *extractOptions, path string) error {
	cfg, err := loadConfig(cmd, global)
	if err != nil {
		return err
	}

	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.jsonKeys != "" {
		cfg.Output.JSONKeys = opts.jsonKeys
	}
	if opts.compact {
		cfg.Output.Pretty = false
	}

	level := logLevel(cfg)
	if !global.verbose {
		// stdout carries the document; stderr stays quiet unless asked.
		level = max(level, slog.LevelWarn)
	}

	conv, err := converter.New(cfg, newLoggerAt(cmd.ErrOrStderr(), level))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	result := conv.Convert(path, &buf)
	if !result.Success {
		return result.Error
	}

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// loadConfig resolves the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command, global *globalOptions) (*config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Resolve(global.cfgFile, explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if global.namespace != "" {
		cfg.NamespaceURI = global.namespace
	}
	if global.verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// newLogger creates the text logger all commands log through.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return newLoggerAt(w, logLevel(cfg))
}

func newLoggerAt(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func logLevel(cfg *config.Config) slog.Level {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}
